// Package overlay manages the single page-wide overlay. Opening shows the
// overlay with a loading placeholder before the fragment read starts;
// triggers already inside the overlay navigate instead of nesting.
package overlay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/loader"
	"github.com/goliatone/go-embedform/pkg/metrics"
)

// LoadingPlaceholder is shown while overlay content loads.
const LoadingPlaceholder = "Loading..."

// Navigator replaces the top-level view with url.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate calls fn.
func (fn NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return fn(ctx, url)
}

// Option configures a Manager.
type Option func(*Manager)

// WithNavigator sets the navigator used by triggers inside the overlay.
func WithNavigator(nav Navigator) Option {
	return func(m *Manager) {
		m.nav = nav
	}
}

// WithPlaceholder overrides the loading placeholder.
func WithPlaceholder(text string) Option {
	return func(m *Manager) {
		if text != "" {
			m.placeholder = text
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records overlay activations on the collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(m *Manager) {
		m.metrics = collector
	}
}

// Manager owns the overlay singleton.
type Manager struct {
	doc         *dom.Document
	loader      *loader.Loader
	nav         Navigator
	placeholder string
	logger      zerolog.Logger
	metrics     *metrics.Collector
}

// New constructs a Manager.
func New(doc *dom.Document, ld *loader.Loader, options ...Option) *Manager {
	m := &Manager{
		doc:         doc,
		loader:      ld,
		placeholder: LoadingPlaceholder,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Open activates an overlay trigger. A trigger inside the overlay navigates
// to its direct URL. Any other trigger shows the overlay with the placeholder
// and loads its embed URL into it, forms defaulting to edit mode. A newer
// Open supersedes a load still in flight.
func (m *Manager) Open(ctx context.Context, trigger *dom.Trigger) error {
	if trigger == nil {
		return fmt.Errorf("overlay: open: %w", dom.ErrNotFound)
	}
	if trigger.Container == dom.ContainerOverlay {
		target := trigger.DirectURL
		if target == "" {
			target = trigger.EmbedURL
		}
		if target == "" {
			return ErrNoEmbedURL
		}
		if m.nav == nil {
			return ErrNoNavigator
		}
		m.metrics.OverlayOpened("navigate")
		m.logger.Debug().Str("url", target).Msg("navigating from overlay")
		return m.nav.Navigate(ctx, target)
	}

	if trigger.EmbedURL == "" {
		return ErrNoEmbedURL
	}
	generation := m.doc.ShowOverlay(m.placeholder)
	m.metrics.OverlayOpened("overlay")
	m.logger.Debug().Str("url", trigger.EmbedURL).Uint64("generation", generation).Msg("overlay opened")

	m.loader.Load(ctx, trigger.EmbedURL, m.doc.OverlayTarget(),
		loader.StartInEdit(true),
		loader.WithGuard(func() bool {
			return m.doc.Overlay.Generation() == generation
		}),
	)
	return nil
}

// Close hides the overlay. Its content stays in place until the next open.
func (m *Manager) Close(_ context.Context) {
	m.doc.HideOverlay()
	m.logger.Debug().Msg("overlay closed")
}

// IsOpen reports whether the overlay is visible.
func (m *Manager) IsOpen() bool {
	return m.doc.Overlay.Visible
}
