package dom

import (
	"context"
	"strings"

	"github.com/goliatone/go-embedform/pkg/fragment"
)

// Handle identifies a live node. The zero handle never resolves.
type Handle uint64

// ContainerKind records where a node was inserted.
type ContainerKind int

const (
	ContainerPage ContainerKind = iota
	ContainerOverlay
)

func (k ContainerKind) String() string {
	if k == ContainerOverlay {
		return "overlay"
	}
	return "page"
}

// Mode is the presentation state of a form node.
type Mode string

const (
	ModeDisplay    Mode = "display"
	ModeEdit       Mode = "edit"
	ModeSubmitting Mode = "submitting"
	ModeRemoved    Mode = "removed"
)

// ParseMode maps a declared mode string, returning "" when unknown.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeDisplay:
		return ModeDisplay
	case ModeEdit:
		return ModeEdit
	}
	return ""
}

// Action is what a trigger does when activated.
type Action = fragment.TriggerAction

// EventKind names a bindable event.
type EventKind string

const (
	EventClick   EventKind = "click"
	EventSubmit  EventKind = "submit"
	EventDismiss EventKind = "dismiss"
)

// Handler reacts to a dispatched event.
type Handler func(ctx context.Context) error

// File is an attachment selected for a file input.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Option is a choice offered by a select or radio field.
type Option = fragment.Option

// Field is one named control plus its read-only mirror.
type Field struct {
	ID      string
	Name    string
	Label   string
	Type    string
	Value   string
	Checked bool
	Options []Option
	Files   []File
	Errors  []string

	Mirror        string
	InputVisible  bool
	MirrorVisible bool
}

// Hidden reports whether the field is a hidden input.
func (f *Field) Hidden() bool {
	return f.Type == "hidden"
}

// CurrentValue is the value the mirror shows for the field.
func (f *Field) CurrentValue() string {
	switch f.Type {
	case "checkbox":
		if f.Checked {
			return f.Value
		}
		return ""
	case "file":
		names := make([]string, 0, len(f.Files))
		for _, file := range f.Files {
			names = append(names, file.Name)
		}
		return strings.Join(names, ", ")
	default:
		return f.Value
	}
}

// Trigger is a clickable element with action metadata.
type Trigger struct {
	Handle    Handle
	Action    Action
	Label     string
	EmbedURL  string
	DirectURL string
	// Form is the owning form, zero for page-level triggers.
	Form      Handle
	Container ContainerKind
	Visible   bool
}

// FormNode is one editable object.
type FormNode struct {
	Handle    Handle
	ID        string
	Title     string
	Action    string
	Method    string
	Enctype   string
	Container ContainerKind
	Mode      Mode
	// DeclaredMode is the mode requested by the markup, empty when absent.
	DeclaredMode Mode
	Fields       []*Field
	Triggers     []*Trigger
	Errors       []string
	Invalid      bool
	HasSubmit    bool
	// Notice replaces the form's interior when set.
	Notice string

	parent *Content
}

// StartsInEdit resolves the initial mode: a declared mode wins over the
// caller's fallback.
func (f *FormNode) StartsInEdit(fallback bool) bool {
	switch f.DeclaredMode {
	case ModeEdit:
		return true
	case ModeDisplay:
		return false
	}
	return fallback
}

// Field returns the named field or nil.
func (f *FormNode) Field(name string) *Field {
	for _, field := range f.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

// EditTriggers returns the triggers that switch this form to edit mode.
func (f *FormNode) EditTriggers() []*Trigger {
	var out []*Trigger
	for _, t := range f.Triggers {
		if t.Action == fragment.TriggerEdit {
			out = append(out, t)
		}
	}
	return out
}

// Content is the body of a container: the page, the overlay content slot.
type Content struct {
	Forms    []*FormNode
	Listings []*ListingSlot
	Triggers []*Trigger
	Text     []string
	// Message replaces the content entirely (placeholder or error).
	Message string
}

// Empty reports whether the content holds nothing at all.
func (c *Content) Empty() bool {
	return c == nil || (len(c.Forms) == 0 && len(c.Listings) == 0 && len(c.Triggers) == 0 &&
		len(c.Text) == 0 && c.Message == "")
}

// ListingSlot is a stable reference to a listing container. Refreshing
// replaces the listing node inside the slot; the slot itself stays valid.
type ListingSlot struct {
	ID       string
	Handle   Handle
	Action   string
	Items    []string
	Triggers []*Trigger
	Message  string
}

// OverlaySlot is the page-wide overlay singleton.
type OverlaySlot struct {
	Handle     Handle
	Visible    bool
	Loading    bool
	Content    *Content
	generation uint64
}

// Generation increments on every open so late results can be recognised.
func (o *OverlaySlot) Generation() uint64 {
	return o.generation
}
