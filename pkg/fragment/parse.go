package fragment

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parser turns HTML fragments into Fragment values.
type Parser struct {
	markers   Markers
	sanitizer *Sanitizer
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMarkers overrides the marker set. Blank entries fall back to defaults.
func WithMarkers(markers Markers) ParserOption {
	return func(p *Parser) {
		p.markers = markers.WithDefaults()
	}
}

// WithSanitizer runs every fragment through the sanitizer before parsing.
func WithSanitizer(s *Sanitizer) ParserOption {
	return func(p *Parser) {
		p.sanitizer = s
	}
}

// NewParser constructs a parser using the default markers unless overridden.
func NewParser(options ...ParserOption) *Parser {
	p := &Parser{markers: DefaultMarkers()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

// Markers reports the marker set in use.
func (p *Parser) Markers() Markers {
	return p.markers
}

// ParseString is a convenience wrapper around Parse.
func (p *Parser) ParseString(markup string) (*Fragment, error) {
	return p.Parse(strings.NewReader(markup))
}

// Parse reads a fragment and extracts its forms, listings and triggers.
func (p *Parser) Parse(r io.Reader) (*Fragment, error) {
	if r == nil {
		return nil, errors.New("fragment: reader is nil")
	}
	if p.sanitizer != nil {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("fragment: read: %w", err)
		}
		r = strings.NewReader(p.sanitizer.Sanitize(string(raw)))
	}

	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, context)
	if err != nil {
		return nil, fmt.Errorf("fragment: parse: %w", err)
	}

	w := &walker{m: p.markers, out: &Fragment{}}
	for _, n := range nodes {
		w.walk(n)
	}
	return w.out, nil
}

type walker struct {
	m       Markers
	out     *Fragment
	form    *Form
	listing *Listing

	labels      map[string]string
	mirrors     map[string]string
	fieldErrors map[string][]string
}

func (w *walker) walk(n *html.Node) {
	if n.Type != html.ElementNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		return
	}

	role := strings.ToLower(attr(n, w.m.RoleAttr))
	if w.form == nil && w.listing == nil {
		if role == RoleListing || hasClass(n, w.m.ListingClass) {
			w.enterListing(n)
			return
		}
		if n.DataAtom == atom.Form || role == RoleForm {
			w.enterForm(n)
			return
		}
	}

	if trigger, ok := w.trigger(n, role); ok {
		w.addTrigger(trigger)
		return
	}

	if hasClass(n, w.m.ErrorClass) {
		w.out.Invalid = true
	}

	if w.form != nil {
		if name := attr(n, w.m.FieldErrorAttr); name != "" {
			w.fieldErrors[name] = append(w.fieldErrors[name], messages(n)...)
			if hasClass(n, w.m.ErrorClass) {
				w.form.Invalid = true
			}
			return
		}
		if hasClass(n, w.m.ErrorClass) {
			w.form.Invalid = true
			w.form.Errors = append(w.form.Errors, messages(n)...)
			return
		}
		if name := attr(n, w.m.MirrorAttr); name != "" {
			w.mirrors[name] = textContent(n)
			return
		}
		if w.control(n) {
			return
		}
	}

	if w.listing != nil && role == RoleItem {
		if text := textContent(n); text != "" {
			w.listing.Items = append(w.listing.Items, text)
		}
	}

	if w.form == nil && w.listing == nil && isTextBlock(n) {
		if text := textContent(n); text != "" {
			w.out.Text = append(w.out.Text, text)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) enterForm(n *html.Node) {
	form := Form{
		ID:      attr(n, "id"),
		Action:  attr(n, "action"),
		Method:  strings.ToUpper(attr(n, "method")),
		Enctype: attr(n, "enctype"),
		Mode:    strings.ToLower(attr(n, w.m.ModeAttr)),
		Invalid: hasClass(n, w.m.ErrorClass),
	}
	if form.Method == "" {
		form.Method = "POST"
	}

	w.form = &form
	w.labels = make(map[string]string)
	w.mirrors = make(map[string]string)
	w.fieldErrors = make(map[string][]string)

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	for i := range form.Fields {
		field := &form.Fields[i]
		if field.ID != "" && field.Label == "" {
			field.Label = w.labels[field.ID]
		}
		if mirror, ok := w.mirrors[field.Name]; ok {
			field.Mirror = mirror
		}
		if errs := w.fieldErrors[field.Name]; len(errs) > 0 {
			field.Errors = append(field.Errors, errs...)
			form.Invalid = true
		}
	}

	w.form = nil
	w.labels, w.mirrors, w.fieldErrors = nil, nil, nil
	if form.Invalid {
		w.out.Invalid = true
	}
	w.out.Forms = append(w.out.Forms, form)
}

func (w *walker) enterListing(n *html.Node) {
	listing := Listing{
		ID:     attr(n, "id"),
		Action: attr(n, "action"),
	}
	if listing.Action == "" {
		listing.Action = attr(n, w.m.EmbedURLAttr)
	}

	w.listing = &listing
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	w.listing = nil
	w.out.Listings = append(w.out.Listings, listing)
}

func (w *walker) trigger(n *html.Node, role string) (Trigger, bool) {
	var action TriggerAction
	switch {
	case role == RoleOverlayTrigger || hasClass(n, w.m.OverlayTriggerClass):
		action = TriggerOpenOverlay
	case role == RoleEditTrigger || hasClass(n, w.m.EditTriggerClass):
		action = TriggerEdit
	default:
		return Trigger{}, false
	}

	t := Trigger{
		Action:    action,
		Label:     textContent(n),
		EmbedURL:  attr(n, w.m.EmbedURLAttr),
		DirectURL: attr(n, w.m.DirectURLAttr),
	}
	if t.Label == "" {
		t.Label = firstNonEmpty(attr(n, "title"), attr(n, "aria-label"))
	}
	if t.DirectURL == "" && n.DataAtom == atom.A {
		t.DirectURL = attr(n, "href")
	}
	return t, true
}

func (w *walker) addTrigger(t Trigger) {
	switch {
	case w.form != nil:
		w.form.Triggers = append(w.form.Triggers, t)
	case w.listing != nil:
		w.listing.Triggers = append(w.listing.Triggers, t)
	default:
		w.out.Triggers = append(w.out.Triggers, t)
	}
}

// control records form controls. It reports true when the node was consumed.
func (w *walker) control(n *html.Node) bool {
	form := w.form
	switch n.DataAtom {
	case atom.Input:
		typ := strings.ToLower(attr(n, "type"))
		if typ == "" {
			typ = "text"
		}
		switch typ {
		case "submit", "image":
			form.HasSubmit = true
			return true
		case "button", "reset":
			return true
		}
		name := attr(n, "name")
		if name == "" {
			return true
		}
		value := attr(n, "value")
		checked := hasAttr(n, "checked")
		if typ == "radio" {
			w.addRadio(n, name, value, checked)
			return true
		}
		field := Field{ID: attr(n, "id"), Name: name, Type: typ, Value: value}
		if typ == "checkbox" {
			field.Checked = checked
			if field.Value == "" {
				field.Value = "on"
			}
		}
		form.Fields = append(form.Fields, field)
		return true
	case atom.Textarea:
		if name := attr(n, "name"); name != "" {
			form.Fields = append(form.Fields, Field{
				ID:    attr(n, "id"),
				Name:  name,
				Type:  "textarea",
				Value: strings.TrimPrefix(rawText(n), "\n"),
			})
		}
		return true
	case atom.Select:
		if name := attr(n, "name"); name != "" {
			field := Field{ID: attr(n, "id"), Name: name, Type: "select"}
			collectOptions(n, &field.Options)
			for _, opt := range field.Options {
				if opt.Selected {
					field.Value = opt.Value
					break
				}
			}
			if field.Value == "" && len(field.Options) > 0 {
				field.Value = field.Options[0].Value
			}
			form.Fields = append(form.Fields, field)
		}
		return true
	case atom.Button:
		typ := strings.ToLower(attr(n, "type"))
		if typ == "" || typ == "submit" {
			form.HasSubmit = true
		}
		return true
	case atom.Label:
		if id := attr(n, "for"); id != "" {
			w.labels[id] = textContent(n)
		}
		return false
	case atom.Legend, atom.H1, atom.H2, atom.H3, atom.H4:
		if form.Title == "" {
			form.Title = textContent(n)
		}
		return true
	}
	return false
}

func (w *walker) addRadio(n *html.Node, name, value string, checked bool) {
	form := w.form
	opt := Option{Value: value, Label: value, Selected: checked}
	for i := range form.Fields {
		field := &form.Fields[i]
		if field.Name != name || field.Type != "radio" {
			continue
		}
		field.Options = append(field.Options, opt)
		if checked {
			field.Value = value
			field.Checked = true
		}
		return
	}
	field := Field{ID: attr(n, "id"), Name: name, Type: "radio", Options: []Option{opt}}
	if checked {
		field.Value = value
		field.Checked = true
	}
	form.Fields = append(form.Fields, field)
}

func collectOptions(n *html.Node, out *[]Option) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Option:
			label := textContent(c)
			value := label
			if v, ok := lookupAttr(c, "value"); ok {
				value = v
			}
			*out = append(*out, Option{Value: value, Label: label, Selected: hasAttr(c, "selected")})
		case atom.Optgroup:
			collectOptions(c, out)
		}
	}
}

func isTextBlock(n *html.Node) bool {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.P:
		return true
	}
	return false
}

// messages returns the text of each list item, or the whole text when the
// node has no list items.
func messages(n *html.Node) []string {
	var out []string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Li {
				if text := textContent(c); text != "" {
					out = append(out, text)
				}
				continue
			}
			visit(c)
		}
	}
	visit(n)
	if len(out) == 0 {
		if text := textContent(n); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return strings.TrimSpace(v)
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}

func hasClass(n *html.Node, class string) bool {
	if class == "" {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
