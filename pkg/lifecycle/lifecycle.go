// Package lifecycle switches forms between display and edit mode, binds
// submission and trigger handling on newly inserted content, and resolves
// the form and container a handle belongs to.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/fragment"
)

// Opener opens the overlay for a trigger.
type Opener interface {
	Open(ctx context.Context, trigger *dom.Trigger) error
}

// Submitter submits a form.
type Submitter interface {
	Submit(ctx context.Context, form *dom.FormNode) error
}

// Dismisser closes the overlay.
type Dismisser interface {
	Close(ctx context.Context)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller owns the per-form interaction state machine.
type Controller struct {
	doc          *dom.Document
	opener       Opener
	submitter    Submitter
	dismisser    Dismisser
	overlayWired bool
	logger       zerolog.Logger
}

// New constructs a Controller over doc.
func New(doc *dom.Document, options ...Option) *Controller {
	c := &Controller{
		doc:    doc,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Wire installs the collaborators invoked from bound handlers.
func (c *Controller) Wire(opener Opener, submitter Submitter, dismisser Dismisser) {
	c.opener = opener
	c.submitter = submitter
	c.dismisser = dismisser
}

// NearestForm resolves a handle to its form. A form handle resolves to
// itself, a trigger to its owning form, and the zero handle to the first
// page form. A trigger without an owner resolves to the first form of its
// container.
func (c *Controller) NearestForm(h dom.Handle) (*dom.FormNode, error) {
	if h == 0 {
		if form, ok := c.doc.PageForm(); ok {
			return form, nil
		}
		return nil, fmt.Errorf("lifecycle: nearest form: page has no form: %w", dom.ErrNotFound)
	}
	if form, ok := c.doc.Form(h); ok {
		return form, nil
	}
	t, ok := c.doc.Trigger(h)
	if !ok {
		return nil, fmt.Errorf("lifecycle: nearest form of %d: %w", h, dom.ErrNotFound)
	}
	if t.Form != 0 {
		if form, ok := c.doc.Form(t.Form); ok {
			return form, nil
		}
		return nil, fmt.Errorf("lifecycle: owner %d of trigger %d: %w", t.Form, h, dom.ErrNotFound)
	}
	content := c.doc.Page
	if t.Container == dom.ContainerOverlay {
		content = c.doc.Overlay.Content
	}
	if len(content.Forms) > 0 {
		return content.Forms[0], nil
	}
	return nil, fmt.Errorf("lifecycle: nearest form of trigger %d: %w", h, dom.ErrNotFound)
}

// EnclosingOverlay reports whether form lives inside the overlay.
func (c *Controller) EnclosingOverlay(form *dom.FormNode) bool {
	return form != nil && form.Container == dom.ContainerOverlay
}

// EnterEdit shows the inputs, hides the mirrors and the edit triggers, and
// makes sure submission is bound.
func (c *Controller) EnterEdit(form *dom.FormNode) error {
	if err := c.live(form); err != nil {
		return err
	}
	form.Mode = dom.ModeEdit
	for _, field := range form.Fields {
		field.InputVisible = !field.Hidden()
		field.MirrorVisible = false
	}
	for _, t := range form.EditTriggers() {
		t.Visible = false
	}
	return c.bindSubmit(form)
}

// EnterDisplay hides the inputs and shows each mirror carrying its input's
// current value.
func (c *Controller) EnterDisplay(form *dom.FormNode) error {
	if err := c.live(form); err != nil {
		return err
	}
	form.Mode = dom.ModeDisplay
	for _, field := range form.Fields {
		field.Mirror = field.CurrentValue()
		field.InputVisible = false
		field.MirrorVisible = !field.Hidden()
	}
	for _, t := range form.EditTriggers() {
		t.Visible = true
	}
	return nil
}

// Initialize prepares a newly inserted form: every trigger in the document
// is (re)bound, submission is bound on the form, the overlay dismiss
// binding is installed once, and the form enters the requested mode.
func (c *Controller) Initialize(ctx context.Context, form *dom.FormNode, startInEdit bool) error {
	if err := c.live(form); err != nil {
		return err
	}
	c.BindTriggers(ctx)
	if err := c.bindSubmit(form); err != nil {
		return err
	}
	if c.EnclosingOverlay(form) && !c.overlayWired {
		if err := c.wireOverlay(); err != nil {
			return err
		}
	}
	c.logger.Debug().
		Uint64("form", uint64(form.Handle)).
		Str("container", form.Container.String()).
		Bool("edit", startInEdit).
		Msg("form initialized")
	if startInEdit {
		return c.EnterEdit(form)
	}
	return c.EnterDisplay(form)
}

// InitializePage runs the full pass over the page: bind every trigger and
// initialize every page form, display mode unless the markup says otherwise.
func (c *Controller) InitializePage(ctx context.Context) error {
	c.BindTriggers(ctx)
	for _, form := range append([]*dom.FormNode(nil), c.doc.Page.Forms...) {
		if err := c.Initialize(ctx, form, form.StartsInEdit(false)); err != nil {
			return err
		}
	}
	return nil
}

// BindTriggers attaches the click handler to every live trigger. Binding
// replaces any previous handler, so calling it repeatedly is harmless.
func (c *Controller) BindTriggers(_ context.Context) {
	for _, t := range c.doc.Triggers() {
		handle := t.Handle
		if err := c.doc.Bind(handle, dom.EventClick, func(ctx context.Context) error {
			return c.Click(ctx, handle)
		}); err != nil {
			c.logger.Warn().Err(err).Uint64("trigger", uint64(handle)).Msg("bind trigger failed")
		}
	}
}

// Click classifies a trigger activation: open-overlay triggers go to the
// overlay, edit triggers switch their form to edit mode.
func (c *Controller) Click(ctx context.Context, h dom.Handle) error {
	t, ok := c.doc.Trigger(h)
	if !ok {
		return fmt.Errorf("lifecycle: click %d: %w", h, dom.ErrNotFound)
	}
	switch t.Action {
	case fragment.TriggerOpenOverlay:
		if c.opener == nil {
			return ErrNotWired
		}
		return c.opener.Open(ctx, t)
	case fragment.TriggerEdit:
		form, err := c.NearestForm(h)
		if err != nil {
			return err
		}
		if form.Mode != dom.ModeDisplay {
			return nil
		}
		return c.EnterEdit(form)
	default:
		return fmt.Errorf("lifecycle: click %d: %w: %q", h, ErrUnknownAction, t.Action)
	}
}

func (c *Controller) bindSubmit(form *dom.FormNode) error {
	return c.doc.Bind(form.Handle, dom.EventSubmit, func(ctx context.Context) error {
		if c.submitter == nil {
			return ErrNotWired
		}
		return c.submitter.Submit(ctx, form)
	})
}

func (c *Controller) wireOverlay() error {
	err := c.doc.Bind(c.doc.Overlay.Handle, dom.EventDismiss, func(ctx context.Context) error {
		if c.dismisser == nil {
			return ErrNotWired
		}
		c.dismisser.Close(ctx)
		return nil
	})
	if err != nil {
		return err
	}
	c.overlayWired = true
	return nil
}

func (c *Controller) live(form *dom.FormNode) error {
	if form == nil {
		return fmt.Errorf("lifecycle: nil form: %w", dom.ErrNotFound)
	}
	if current, ok := c.doc.Form(form.Handle); !ok || current != form {
		return fmt.Errorf("lifecycle: form %d: %w", form.Handle, dom.ErrNotFound)
	}
	return nil
}
