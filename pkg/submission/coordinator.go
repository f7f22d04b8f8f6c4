// Package submission sends edited forms and drives what happens next: a
// validation failure swaps the form for the server's re-rendered version in
// edit mode, a successful overlay edit closes the overlay and refreshes the
// listing, and a successful page edit swaps the form and returns it to
// display mode.
package submission

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/eventloop"
	"github.com/goliatone/go-embedform/pkg/fragment"
	"github.com/goliatone/go-embedform/pkg/loader"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/transport"
)

// Initializer re-initializes a replaced form.
type Initializer interface {
	Initialize(ctx context.Context, form *dom.FormNode, startInEdit bool) error
}

// OverlayHandle closes the overlay after a successful overlay edit.
type OverlayHandle interface {
	Close(ctx context.Context)
}

// ListingRefresher reloads the listing affected by overlay edits.
type ListingRefresher interface {
	Refresh(ctx context.Context)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithParser overrides the fragment parser.
func WithParser(parser *fragment.Parser) Option {
	return func(c *Coordinator) {
		if parser != nil {
			c.parser = parser
		}
	}
}

// WithListing sets the listing refreshed after overlay edits.
func WithListing(listing ListingRefresher) Option {
	return func(c *Coordinator) {
		c.listing = listing
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics records submission outcomes on the collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Coordinator) {
		c.metrics = collector
	}
}

// Coordinator submits forms and applies the post-submission protocol.
type Coordinator struct {
	doc     *dom.Document
	loop    *eventloop.Loop
	client  transport.Client
	init    Initializer
	overlay OverlayHandle
	listing ListingRefresher
	parser  *fragment.Parser
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New constructs a Coordinator.
func New(doc *dom.Document, loop *eventloop.Loop, client transport.Client, init Initializer, overlay OverlayHandle, options ...Option) *Coordinator {
	c := &Coordinator{
		doc:     doc,
		loop:    loop,
		client:  client,
		init:    init,
		overlay: overlay,
		parser:  fragment.NewParser(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetListing replaces the listing refresher. A nil refresher disables
// refreshes.
func (c *Coordinator) SetListing(listing ListingRefresher) {
	c.listing = listing
}

// Submit sends form to its action URL. It returns once the request is
// issued; the outcome is applied on the event loop.
func (c *Coordinator) Submit(ctx context.Context, form *dom.FormNode) error {
	if form == nil {
		return fmt.Errorf("submission: nil form: %w", dom.ErrNotFound)
	}
	if current, ok := c.doc.Form(form.Handle); !ok || current != form {
		return fmt.Errorf("submission: form %d: %w", form.Handle, dom.ErrNotFound)
	}
	switch form.Mode {
	case dom.ModeEdit:
	case dom.ModeSubmitting:
		return ErrInFlight
	default:
		return fmt.Errorf("%w: mode %s", ErrNotEditable, form.Mode)
	}

	payload := Serialize(form)
	form.Mode = dom.ModeSubmitting
	form.Notice = ""

	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("request_id", requestID).
		Uint64("form", uint64(form.Handle)).
		Str("container", form.Container.String()).
		Str("action", form.Action).
		Logger()
	logger.Debug().Int("fields", len(payload.Fields)).Int("files", len(payload.Files)).Msg("submission started")

	finish := c.metrics.StartRequest("submit")
	method, action := form.Method, form.Action
	eventloop.Go(c.loop, ctx, func(ctx context.Context) (*transport.Response, error) {
		defer finish()
		return c.client.Submit(ctx, method, action, payload)
	}, func(ctx context.Context, resp *transport.Response, err error) {
		c.complete(ctx, logger, form, resp, err)
	})
	return nil
}

func (c *Coordinator) complete(ctx context.Context, logger zerolog.Logger, form *dom.FormNode, resp *transport.Response, err error) {
	container := form.Container.String()
	if current, ok := c.doc.Form(form.Handle); !ok || current != form {
		logger.Warn().Msg("form replaced while submitting, dropping response")
		c.metrics.SubmissionFinished(container, "stale")
		return
	}

	var frag *fragment.Fragment
	if err == nil {
		frag, err = c.parser.Parse(bytes.NewReader(resp.Body))
	}
	if err != nil {
		logger.Warn().Err(err).Msg("submission failed")
		c.metrics.SubmissionFinished(container, "error")
		form.Notice = loader.ErrorMessage
		form.Mode = dom.ModeEdit
		return
	}

	switch {
	case resp.Outcome == transport.OutcomeInvalid:
		c.metrics.SubmissionFinished(container, "invalid")
		if frag.FirstForm() == nil {
			logger.Warn().Msg("validation response carried no form, keeping the submitted form")
			form.Notice = loader.ErrorMessage
			form.Mode = dom.ModeEdit
			return
		}
		logger.Debug().Msg("submission rejected by validation")
		c.replace(ctx, logger, form, frag, true)
	case form.Container == dom.ContainerOverlay:
		c.metrics.SubmissionFinished(container, "success")
		logger.Debug().Msg("overlay submission accepted")
		if c.overlay != nil {
			c.overlay.Close(ctx)
		}
		if err := c.doc.RemoveForm(form.Handle); err != nil {
			logger.Warn().Err(err).Msg("remove overlay form failed")
		}
		if c.listing != nil {
			c.listing.Refresh(ctx)
		}
	default:
		c.metrics.SubmissionFinished(container, "success")
		logger.Debug().Msg("page submission accepted")
		c.replace(ctx, logger, form, frag, false)
	}
}

func (c *Coordinator) replace(ctx context.Context, logger zerolog.Logger, form *dom.FormNode, frag *fragment.Fragment, edit bool) {
	node, err := c.doc.ReplaceForm(form.Handle, frag)
	if err != nil {
		logger.Warn().Err(err).Msg("replace form failed")
		return
	}
	if node == nil {
		logger.Warn().Msg("response carried no form, form removed")
		return
	}
	if c.init == nil {
		return
	}
	if err := c.init.Initialize(ctx, node, edit); err != nil {
		logger.Warn().Err(err).Msg("initialize replaced form failed")
	}
}
