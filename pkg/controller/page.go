// Package controller wires the loader, overlay manager, lifecycle controller
// and submission coordinator around one document and exposes the user
// actions a front end can perform on it.
//
// A Page is not safe for concurrent use. Call its methods from the goroutine
// that drives the event loop, typically alternating actions with Settle.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/eventloop"
	"github.com/goliatone/go-embedform/pkg/fragment"
	"github.com/goliatone/go-embedform/pkg/lifecycle"
	"github.com/goliatone/go-embedform/pkg/loader"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/overlay"
	"github.com/goliatone/go-embedform/pkg/submission"
	"github.com/goliatone/go-embedform/pkg/transport"
)

// Page is one embedded-form document and its controllers.
type Page struct {
	doc        *dom.Document
	loop       *eventloop.Loop
	client     transport.Client
	parser     *fragment.Parser
	lifecycle  *lifecycle.Controller
	loader     *loader.Loader
	overlay    *overlay.Manager
	submission *submission.Coordinator

	listingID   string
	listing     *dom.ListingSlot
	navigator   overlay.Navigator
	placeholder string
	logger      zerolog.Logger
	metrics     *metrics.Collector
}

// New constructs a Page talking to client.
func New(client transport.Client, options ...Option) *Page {
	p := &Page{
		client: client,
		parser: fragment.NewParser(),
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}

	p.doc = dom.New()
	p.loop = eventloop.New(eventloop.WithLogger(p.logger))
	p.lifecycle = lifecycle.New(p.doc, lifecycle.WithLogger(p.logger))
	p.loader = loader.New(p.doc, p.loop, client, p.lifecycle,
		loader.WithParser(p.parser),
		loader.WithLogger(p.logger),
		loader.WithMetrics(p.metrics),
	)

	nav := p.navigator
	if nav == nil {
		nav = overlay.NavigatorFunc(p.navigate)
	}
	p.overlay = overlay.New(p.doc, p.loader,
		overlay.WithNavigator(nav),
		overlay.WithPlaceholder(p.placeholder),
		overlay.WithLogger(p.logger),
		overlay.WithMetrics(p.metrics),
	)
	p.submission = submission.New(p.doc, p.loop, client, p.lifecycle, p.overlay,
		submission.WithParser(p.parser),
		submission.WithLogger(p.logger),
		submission.WithMetrics(p.metrics),
	)
	p.lifecycle.Wire(p.overlay, p.submission, p.overlay)
	return p
}

// Document returns the live document.
func (p *Page) Document() *dom.Document { return p.doc }

// Loop returns the event loop.
func (p *Page) Loop() *eventloop.Loop { return p.loop }

// Lifecycle returns the form lifecycle controller.
func (p *Page) Lifecycle() *lifecycle.Controller { return p.lifecycle }

// Overlay returns the overlay manager.
func (p *Page) Overlay() *overlay.Manager { return p.overlay }

// Submission returns the submission coordinator.
func (p *Page) Submission() *submission.Coordinator { return p.submission }

// Listing returns the listing slot located at page load, or nil.
func (p *Page) Listing() *dom.ListingSlot { return p.listing }

// Load fetches url as the page content. Once installed, the listing slot is
// located and the page initialization pass runs.
func (p *Page) Load(ctx context.Context, url string) {
	p.doc.URL = url
	p.doc.ResetOverlay()
	p.loader.Load(ctx, url, p.doc.PageTarget(),
		loader.SkipInitialize(),
		loader.OnDone(func(ctx context.Context, err error) {
			p.locateListing()
			if err != nil {
				return
			}
			if err := p.lifecycle.InitializePage(ctx); err != nil {
				p.logger.Warn().Err(err).Msg("page initialization failed")
			}
		}),
	)
}

// Reload fetches the current page again.
func (p *Page) Reload(ctx context.Context) {
	p.Load(ctx, p.doc.URL)
}

// Settle runs the event loop until no work is queued or outstanding.
func (p *Page) Settle(ctx context.Context) error {
	return p.loop.RunUntilIdle(ctx)
}

// Click activates a trigger.
func (p *Page) Click(ctx context.Context, trigger dom.Handle) error {
	return p.doc.Dispatch(ctx, trigger, dom.EventClick)
}

// Submit submits a form through its bound handler.
func (p *Page) Submit(ctx context.Context, form dom.Handle) error {
	return p.doc.Dispatch(ctx, form, dom.EventSubmit)
}

// Dismiss closes the overlay.
func (p *Page) Dismiss(ctx context.Context) error {
	err := p.doc.Dispatch(ctx, p.doc.Overlay.Handle, dom.EventDismiss)
	if errors.Is(err, dom.ErrUnbound) {
		p.overlay.Close(ctx)
		return nil
	}
	return err
}

// SetValue changes a text, select or radio field of a form in edit mode.
func (p *Page) SetValue(form dom.Handle, name, value string) error {
	field, err := p.editable(form, name)
	if err != nil {
		return err
	}
	switch field.Type {
	case "checkbox", "file":
		return fmt.Errorf("controller: set %q: %w", name, ErrFieldType)
	case "select", "radio":
		if !hasOption(field.Options, value) {
			return fmt.Errorf("controller: set %q to %q: %w", name, value, ErrNoOption)
		}
		field.Checked = field.Type == "radio"
	}
	field.Value = value
	return nil
}

// SetChecked toggles a checkbox field.
func (p *Page) SetChecked(form dom.Handle, name string, checked bool) error {
	field, err := p.editable(form, name)
	if err != nil {
		return err
	}
	if field.Type != "checkbox" {
		return fmt.Errorf("controller: check %q: %w", name, ErrFieldType)
	}
	field.Checked = checked
	return nil
}

// Attach adds a file to a file field.
func (p *Page) Attach(form dom.Handle, name string, file dom.File) error {
	field, err := p.editable(form, name)
	if err != nil {
		return err
	}
	if field.Type != "file" {
		return fmt.Errorf("controller: attach %q: %w", name, ErrFieldType)
	}
	field.Files = append(field.Files, file)
	return nil
}

func (p *Page) editable(h dom.Handle, name string) (*dom.Field, error) {
	form, ok := p.doc.Form(h)
	if !ok {
		return nil, fmt.Errorf("controller: form %d: %w", h, dom.ErrNotFound)
	}
	if form.Mode != dom.ModeEdit {
		return nil, ErrNotEditing
	}
	field := form.Field(name)
	if field == nil {
		return nil, fmt.Errorf("controller: %q: %w", name, ErrNoField)
	}
	return field, nil
}

func (p *Page) locateListing() {
	slot, ok := p.doc.FindListing(p.listingID)
	if !ok {
		p.listing = nil
		p.submission.SetListing(nil)
		return
	}
	p.listing = slot
	p.submission.SetListing(p.loader.Listing(slot))
}

func (p *Page) navigate(ctx context.Context, url string) error {
	p.logger.Info().Str("url", url).Msg("navigating")
	p.Load(ctx, url)
	return nil
}

func hasOption(options []dom.Option, value string) bool {
	for _, opt := range options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
