package dom

import (
	"context"
	"fmt"

	"github.com/goliatone/go-embedform/pkg/fragment"
)

// Document is the live node arena.
type Document struct {
	// URL is the address the page content was loaded from.
	URL     string
	Page    *Content
	Overlay *OverlaySlot

	next     Handle
	forms    map[Handle]*FormNode
	triggers map[Handle]*Trigger
	listings map[Handle]*ListingSlot
	bindings map[Handle]map[EventKind]Handler
}

// New returns an empty document with a hidden overlay.
func New() *Document {
	d := &Document{
		Page:     &Content{},
		forms:    make(map[Handle]*FormNode),
		triggers: make(map[Handle]*Trigger),
		listings: make(map[Handle]*ListingSlot),
		bindings: make(map[Handle]map[EventKind]Handler),
	}
	d.Overlay = &OverlaySlot{Handle: d.alloc(), Content: &Content{}}
	return d
}

func (d *Document) alloc() Handle {
	d.next++
	return d.next
}

// Form resolves a live form node.
func (d *Document) Form(h Handle) (*FormNode, bool) {
	f, ok := d.forms[h]
	return f, ok
}

// Trigger resolves a live trigger.
func (d *Document) Trigger(h Handle) (*Trigger, bool) {
	t, ok := d.triggers[h]
	return t, ok
}

// Forms lists live forms, page first, in document order.
func (d *Document) Forms() []*FormNode {
	var out []*FormNode
	out = append(out, d.Page.Forms...)
	out = append(out, d.Overlay.Content.Forms...)
	return out
}

// Triggers lists live triggers in document order.
func (d *Document) Triggers() []*Trigger {
	var out []*Trigger
	for _, c := range []*Content{d.Page, d.Overlay.Content} {
		out = append(out, c.Triggers...)
		for _, f := range c.Forms {
			out = append(out, f.Triggers...)
		}
		for _, l := range c.Listings {
			out = append(out, l.Triggers...)
		}
	}
	return out
}

// PageForm returns the first form of the page content.
func (d *Document) PageForm() (*FormNode, bool) {
	if len(d.Page.Forms) == 0 {
		return nil, false
	}
	return d.Page.Forms[0], true
}

// FindListing locates a page listing by element id; an empty id selects the
// first listing.
func (d *Document) FindListing(id string) (*ListingSlot, bool) {
	for _, l := range d.Page.Listings {
		if id == "" || l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// ReplacePage swaps the page content for the fragment.
func (d *Document) ReplacePage(frag *fragment.Fragment) []*FormNode {
	d.releaseContent(d.Page)
	d.Page = d.build(frag, ContainerPage)
	return d.Page.Forms
}

// FailPage replaces the page content with a message.
func (d *Document) FailPage(message string) {
	d.releaseContent(d.Page)
	d.Page = &Content{Message: message}
}

// ShowOverlay makes the overlay visible with a placeholder and starts a new
// generation.
func (d *Document) ShowOverlay(placeholder string) uint64 {
	o := d.Overlay
	d.releaseContent(o.Content)
	o.Content = &Content{Message: placeholder}
	o.Visible = true
	o.Loading = true
	o.generation++
	return o.generation
}

// HideOverlay hides the overlay, leaving its content in place.
func (d *Document) HideOverlay() {
	d.Overlay.Visible = false
	d.Overlay.Loading = false
}

// ResetOverlay hides the overlay and releases its content. The generation
// moves on so loads still in flight for the old overlay are superseded.
func (d *Document) ResetOverlay() {
	o := d.Overlay
	d.releaseContent(o.Content)
	o.Content = &Content{}
	o.Visible = false
	o.Loading = false
	o.generation++
}

// FillOverlay replaces the overlay content slot.
func (d *Document) FillOverlay(frag *fragment.Fragment) []*FormNode {
	o := d.Overlay
	d.releaseContent(o.Content)
	o.Content = d.build(frag, ContainerOverlay)
	o.Loading = false
	return o.Content.Forms
}

// FailOverlay replaces the overlay content with a message.
func (d *Document) FailOverlay(message string) {
	o := d.Overlay
	d.releaseContent(o.Content)
	o.Content = &Content{Message: message}
	o.Loading = false
}

// RefillListing replaces the listing inside the slot wholesale.
func (d *Document) RefillListing(slot *ListingSlot, frag *fragment.Fragment) {
	d.releaseListing(slot)
	spec := frag.FirstListing()
	if spec == nil {
		spec = &fragment.Listing{ID: slot.ID, Items: frag.Text, Triggers: frag.Triggers}
	}
	d.fillListing(slot, *spec, ContainerPage)
}

// FailListing replaces the listing body with a message. The slot keeps its
// source URL so a later refresh can recover.
func (d *Document) FailListing(slot *ListingSlot, message string) {
	d.releaseListing(slot)
	slot.Handle = d.alloc()
	d.listings[slot.Handle] = slot
	slot.Items = nil
	slot.Message = message
}

// ReplaceForm swaps a form for the first form of the fragment, keeping its
// position and container. A fragment without a form removes the node and
// returns nil.
func (d *Document) ReplaceForm(h Handle, frag *fragment.Fragment) (*FormNode, error) {
	old, ok := d.forms[h]
	if !ok {
		return nil, fmt.Errorf("dom: replace form %d: %w", h, ErrNotFound)
	}
	parent := old.parent
	idx := indexOf(parent.Forms, old)
	d.releaseForm(old)

	spec := frag.FirstForm()
	if spec == nil {
		parent.Forms = append(parent.Forms[:idx], parent.Forms[idx+1:]...)
		return nil, nil
	}
	node := d.newForm(*spec, old.Container, parent)
	parent.Forms[idx] = node
	return node, nil
}

// RemoveForm detaches a form from its container.
func (d *Document) RemoveForm(h Handle) error {
	f, ok := d.forms[h]
	if !ok {
		return fmt.Errorf("dom: remove form %d: %w", h, ErrNotFound)
	}
	parent := f.parent
	idx := indexOf(parent.Forms, f)
	d.releaseForm(f)
	parent.Forms = append(parent.Forms[:idx], parent.Forms[idx+1:]...)
	return nil
}

// SetNotice replaces the interior of a form with a message, keeping the
// form boundary and its bindings.
func (d *Document) SetNotice(h Handle, message string) error {
	f, ok := d.forms[h]
	if !ok {
		return fmt.Errorf("dom: set notice %d: %w", h, ErrNotFound)
	}
	f.Notice = message
	return nil
}

// Bind attaches a handler. Binding the same event twice replaces the
// previous handler, so repeated initialisation never stacks handlers.
func (d *Document) Bind(h Handle, ev EventKind, fn Handler) error {
	if !d.live(h) {
		return fmt.Errorf("dom: bind %s on %d: %w", ev, h, ErrNotFound)
	}
	set, ok := d.bindings[h]
	if !ok {
		set = make(map[EventKind]Handler)
		d.bindings[h] = set
	}
	set[ev] = fn
	return nil
}

// Bound reports whether a handler is attached.
func (d *Document) Bound(h Handle, ev EventKind) bool {
	_, ok := d.bindings[h][ev]
	return ok
}

// BindingCount returns the number of live bindings in the document.
func (d *Document) BindingCount() int {
	total := 0
	for _, set := range d.bindings {
		total += len(set)
	}
	return total
}

// Dispatch runs the handler bound to the node for the event.
func (d *Document) Dispatch(ctx context.Context, h Handle, ev EventKind) error {
	if !d.live(h) {
		return fmt.Errorf("dom: dispatch %s on %d: %w", ev, h, ErrNotFound)
	}
	fn, ok := d.bindings[h][ev]
	if !ok {
		return fmt.Errorf("dom: dispatch %s on %d: %w", ev, h, ErrUnbound)
	}
	return fn(ctx)
}

func (d *Document) live(h Handle) bool {
	if h == 0 {
		return false
	}
	if h == d.Overlay.Handle {
		return true
	}
	if _, ok := d.forms[h]; ok {
		return true
	}
	if _, ok := d.triggers[h]; ok {
		return true
	}
	_, ok := d.listings[h]
	return ok
}

func (d *Document) build(frag *fragment.Fragment, kind ContainerKind) *Content {
	c := &Content{}
	if frag == nil {
		return c
	}
	c.Text = append(c.Text, frag.Text...)
	for _, spec := range frag.Forms {
		c.Forms = append(c.Forms, d.newForm(spec, kind, c))
	}
	for _, spec := range frag.Listings {
		slot := &ListingSlot{ID: spec.ID}
		d.fillListing(slot, spec, kind)
		c.Listings = append(c.Listings, slot)
	}
	for _, spec := range frag.Triggers {
		c.Triggers = append(c.Triggers, d.newTrigger(spec, 0, kind))
	}
	return c
}

func (d *Document) newForm(spec fragment.Form, kind ContainerKind, parent *Content) *FormNode {
	f := &FormNode{
		Handle:       d.alloc(),
		ID:           spec.ID,
		Title:        spec.Title,
		Action:       spec.Action,
		Method:       spec.Method,
		Enctype:      spec.Enctype,
		Container:    kind,
		Mode:         ModeDisplay,
		DeclaredMode: ParseMode(spec.Mode),
		Errors:       append([]string(nil), spec.Errors...),
		Invalid:      spec.Invalid,
		HasSubmit:    spec.HasSubmit,
		parent:       parent,
	}
	for _, fs := range spec.Fields {
		field := &Field{
			ID:            fs.ID,
			Name:          fs.Name,
			Label:         fs.Label,
			Type:          fs.Type,
			Value:         fs.Value,
			Checked:       fs.Checked,
			Options:       append([]Option(nil), fs.Options...),
			Errors:        append([]string(nil), fs.Errors...),
			Mirror:        fs.Mirror,
			MirrorVisible: true,
		}
		if field.Mirror == "" {
			field.Mirror = field.CurrentValue()
		}
		f.Fields = append(f.Fields, field)
	}
	for _, ts := range spec.Triggers {
		f.Triggers = append(f.Triggers, d.newTrigger(ts, f.Handle, kind))
	}
	d.forms[f.Handle] = f
	return f
}

func (d *Document) newTrigger(spec fragment.Trigger, owner Handle, kind ContainerKind) *Trigger {
	t := &Trigger{
		Handle:    d.alloc(),
		Action:    spec.Action,
		Label:     spec.Label,
		EmbedURL:  spec.EmbedURL,
		DirectURL: spec.DirectURL,
		Form:      owner,
		Container: kind,
		Visible:   true,
	}
	d.triggers[t.Handle] = t
	return t
}

func (d *Document) fillListing(slot *ListingSlot, spec fragment.Listing, kind ContainerKind) {
	slot.Handle = d.alloc()
	if spec.Action != "" {
		slot.Action = spec.Action
	}
	if slot.ID == "" {
		slot.ID = spec.ID
	}
	slot.Items = append([]string(nil), spec.Items...)
	slot.Message = ""
	slot.Triggers = nil
	for _, ts := range spec.Triggers {
		slot.Triggers = append(slot.Triggers, d.newTrigger(ts, 0, kind))
	}
	d.listings[slot.Handle] = slot
}

func (d *Document) releaseContent(c *Content) {
	if c == nil {
		return
	}
	for _, f := range c.Forms {
		d.releaseForm(f)
	}
	for _, l := range c.Listings {
		d.releaseListing(l)
	}
	for _, t := range c.Triggers {
		d.release(t.Handle)
	}
}

func (d *Document) releaseForm(f *FormNode) {
	for _, t := range f.Triggers {
		d.release(t.Handle)
	}
	delete(d.forms, f.Handle)
	delete(d.bindings, f.Handle)
	f.Mode = ModeRemoved
}

func (d *Document) releaseListing(slot *ListingSlot) {
	for _, t := range slot.Triggers {
		d.release(t.Handle)
	}
	slot.Triggers = nil
	delete(d.listings, slot.Handle)
	delete(d.bindings, slot.Handle)
}

func (d *Document) release(h Handle) {
	delete(d.triggers, h)
	delete(d.bindings, h)
}

func indexOf(forms []*FormNode, target *FormNode) int {
	for i, f := range forms {
		if f == target {
			return i
		}
	}
	return -1
}
