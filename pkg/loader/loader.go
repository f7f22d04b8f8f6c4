// Package loader fetches HTML fragments and installs them into a target
// container. A failed load replaces the target with a fixed message; errors
// never propagate past the loader.
package loader

import (
	"bytes"
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/eventloop"
	"github.com/goliatone/go-embedform/pkg/fragment"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/transport"
)

// ErrorMessage replaces a container whose content could not be loaded.
const ErrorMessage = "Sorry there has been an error.  Please try back later."

// ErrSuperseded reports a load whose result arrived after its target moved
// on.
var ErrSuperseded = errors.New("loader: load superseded")

// Initializer prepares newly inserted content for interaction.
type Initializer interface {
	BindTriggers(ctx context.Context)
	Initialize(ctx context.Context, form *dom.FormNode, startInEdit bool) error
}

// Option configures a Loader.
type Option func(*Loader)

// WithParser overrides the fragment parser.
func WithParser(parser *fragment.Parser) Option {
	return func(l *Loader) {
		if parser != nil {
			l.parser = parser
		}
	}
}

// WithLogger sets the loader logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMetrics records load outcomes on the collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(l *Loader) {
		l.metrics = collector
	}
}

// Loader issues fragment reads and fills targets on the event loop.
type Loader struct {
	doc     *dom.Document
	loop    *eventloop.Loop
	client  transport.Client
	init    Initializer
	parser  *fragment.Parser
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New constructs a Loader.
func New(doc *dom.Document, loop *eventloop.Loop, client transport.Client, init Initializer, options ...Option) *Loader {
	l := &Loader{
		doc:    doc,
		loop:   loop,
		client: client,
		init:   init,
		parser: fragment.NewParser(),
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Parser returns the fragment parser shared with the submission path.
func (l *Loader) Parser() *fragment.Parser {
	return l.parser
}

type loadConfig struct {
	startInEdit bool
	skipInit    bool
	guard       func() bool
	done        func(ctx context.Context, err error)
}

// LoadOption adjusts a single load.
type LoadOption func(*loadConfig)

// StartInEdit sets the mode for forms that do not declare one.
func StartInEdit(edit bool) LoadOption {
	return func(c *loadConfig) {
		c.startInEdit = edit
	}
}

// SkipInitialize leaves the new content unbound; the caller initializes it
// from OnDone.
func SkipInitialize() LoadOption {
	return func(c *loadConfig) {
		c.skipInit = true
	}
}

// WithGuard drops the result when guard reports false at completion.
func WithGuard(guard func() bool) LoadOption {
	return func(c *loadConfig) {
		c.guard = guard
	}
}

// OnDone runs after the target has been filled or failed.
func OnDone(fn func(ctx context.Context, err error)) LoadOption {
	return func(c *loadConfig) {
		c.done = fn
	}
}

// Load fetches url and installs the fragment into target. It returns
// immediately; the target is filled on the event loop once the read
// completes.
func (l *Loader) Load(ctx context.Context, url string, target dom.Target, options ...LoadOption) {
	cfg := loadConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	requestID := uuid.NewString()
	logger := l.logger.With().Str("request_id", requestID).Str("target", target.Name()).Str("url", url).Logger()
	logger.Debug().Msg("fragment load started")
	finish := l.metrics.StartRequest("fetch")

	eventloop.Go(l.loop, ctx, func(ctx context.Context) (*transport.Response, error) {
		defer finish()
		return l.client.Fetch(ctx, url)
	}, func(ctx context.Context, resp *transport.Response, err error) {
		if cfg.guard != nil && !cfg.guard() {
			logger.Debug().Msg("fragment load superseded")
			l.metrics.LoadFinished(target.Name(), "superseded")
			l.complete(ctx, cfg, ErrSuperseded)
			return
		}

		var frag *fragment.Fragment
		if err == nil {
			frag, err = l.parser.Parse(bytes.NewReader(resp.Body))
		}
		if err != nil {
			logger.Warn().Err(err).Msg("fragment load failed")
			l.metrics.LoadFinished(target.Name(), "error")
			target.Fail(ErrorMessage)
			l.complete(ctx, cfg, err)
			return
		}

		forms := target.Fill(frag)
		l.metrics.LoadFinished(target.Name(), "ok")
		logger.Debug().Int("forms", len(forms)).Msg("fragment installed")
		if !cfg.skipInit {
			l.install(ctx, forms, cfg.startInEdit)
		}
		l.complete(ctx, cfg, nil)
	})
}

// install binds triggers in the new content and initializes each form.
func (l *Loader) install(ctx context.Context, forms []*dom.FormNode, startInEdit bool) {
	if l.init == nil {
		return
	}
	l.init.BindTriggers(ctx)
	for _, form := range forms {
		if err := l.init.Initialize(ctx, form, form.StartsInEdit(startInEdit)); err != nil {
			l.logger.Warn().Err(err).Uint64("form", uint64(form.Handle)).Msg("form initialization failed")
		}
	}
}

func (l *Loader) complete(ctx context.Context, cfg loadConfig, err error) {
	if cfg.done != nil {
		cfg.done(ctx, err)
	}
}
