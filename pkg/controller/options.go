package controller

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/fragment"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/overlay"
)

// Option customises a Page.
type Option func(*Page)

// WithParser injects the fragment parser shared by loads and submissions.
func WithParser(parser *fragment.Parser) Option {
	return func(p *Page) {
		if parser != nil {
			p.parser = parser
		}
	}
}

// WithListingID selects the listing refreshed after overlay edits. Empty
// selects the first listing on the page.
func WithListingID(id string) Option {
	return func(p *Page) {
		p.listingID = id
	}
}

// WithNavigator replaces the default navigator, which loads the target as
// the new page.
func WithNavigator(nav overlay.Navigator) Option {
	return func(p *Page) {
		p.navigator = nav
	}
}

// WithPlaceholder overrides the overlay loading placeholder.
func WithPlaceholder(text string) Option {
	return func(p *Page) {
		p.placeholder = text
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// WithMetrics records component activity on the collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(p *Page) {
		p.metrics = collector
	}
}
