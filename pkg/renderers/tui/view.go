package tui

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/fragment"
)

// Render draws the visible document as text.
func Render(doc *dom.Document, theme Theme) string {
	var b strings.Builder
	title := "Page"
	if doc.URL != "" {
		title += " " + doc.URL
	}
	b.WriteString(theme.Heading.Render("== "+title+" ==") + "\n")
	writeContent(&b, doc.Page, theme)

	if doc.Overlay.Visible {
		b.WriteString("\n" + theme.Heading.Render("== Overlay ==") + "\n")
		writeContent(&b, doc.Overlay.Content, theme)
	}
	return b.String()
}

func writeContent(b *strings.Builder, c *dom.Content, theme Theme) {
	if c == nil {
		return
	}
	if c.Message != "" {
		b.WriteString(theme.Notice.Render(c.Message) + "\n")
		return
	}
	for _, line := range c.Text {
		b.WriteString(line + "\n")
	}
	for _, form := range c.Forms {
		writeForm(b, form, theme)
	}
	for _, listing := range c.Listings {
		writeListing(b, listing, theme)
	}
	for _, t := range c.Triggers {
		writeTrigger(b, t, theme, "")
	}
}

func writeForm(b *strings.Builder, form *dom.FormNode, theme Theme) {
	b.WriteString(fmt.Sprintf("%s %s\n", theme.Heading.Render("["+FormLabel(form)+"]"), theme.Muted.Render("("+string(form.Mode)+")")))
	for _, msg := range form.Errors {
		b.WriteString("  " + theme.Error.Render("! "+msg) + "\n")
	}
	if form.Notice != "" {
		b.WriteString("  " + theme.Notice.Render(form.Notice) + "\n")
	}
	for _, field := range form.Fields {
		switch {
		case field.InputVisible:
			b.WriteString(fmt.Sprintf("  %s: %s\n", fieldLabel(field), theme.Input.Render(inputText(field))))
		case field.MirrorVisible:
			b.WriteString(fmt.Sprintf("  %s: %s\n", fieldLabel(field), field.Mirror))
		default:
			continue
		}
		for _, msg := range field.Errors {
			b.WriteString("    " + theme.Error.Render("! "+msg) + "\n")
		}
	}
	for _, t := range form.Triggers {
		writeTrigger(b, t, theme, "  ")
	}
	if form.Mode == dom.ModeEdit && form.HasSubmit {
		b.WriteString("  " + theme.Trigger.Render("[Submit]") + "\n")
	}
}

func writeListing(b *strings.Builder, listing *dom.ListingSlot, theme Theme) {
	name := listing.ID
	if name == "" {
		name = "listing"
	}
	b.WriteString(theme.Heading.Render(name) + "\n")
	if listing.Message != "" {
		b.WriteString("  " + theme.Notice.Render(listing.Message) + "\n")
	}
	for _, item := range listing.Items {
		b.WriteString("  - " + item + "\n")
	}
	for _, t := range listing.Triggers {
		writeTrigger(b, t, theme, "  ")
	}
}

func writeTrigger(b *strings.Builder, t *dom.Trigger, theme Theme, indent string) {
	if !t.Visible {
		return
	}
	b.WriteString(indent + theme.Trigger.Render("["+TriggerLabel(t)+"]") + "\n")
}

// FormLabel names a form for display.
func FormLabel(form *dom.FormNode) string {
	switch {
	case form.Title != "":
		return form.Title
	case form.ID != "":
		return form.ID
	default:
		return fmt.Sprintf("form %d", form.Handle)
	}
}

// TriggerLabel names a trigger for display.
func TriggerLabel(t *dom.Trigger) string {
	if t.Label != "" {
		return t.Label
	}
	if t.Action == fragment.TriggerEdit {
		return "Edit"
	}
	if t.EmbedURL != "" {
		return t.EmbedURL
	}
	return t.DirectURL
}

func fieldLabel(field *dom.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func inputText(field *dom.Field) string {
	switch field.Type {
	case "checkbox":
		if field.Checked {
			return "[x]"
		}
		return "[ ]"
	case "file":
		if len(field.Files) == 0 {
			return "(no file)"
		}
	case "password":
		return strings.Repeat("*", len(field.Value))
	}
	return field.CurrentValue()
}
