// Package embedform assembles the embedded-form controller from a
// configuration. Callers that need finer control can use pkg/controller and
// pkg/transport directly.
package embedform

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/config"
	"github.com/goliatone/go-embedform/pkg/controller"
	"github.com/goliatone/go-embedform/pkg/fragment"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/transport"
)

// Page aliases controller.Page for callers using the top-level module.
type Page = controller.Page

// Settings carries the runtime collaborators that do not come from the
// configuration file.
type Settings struct {
	Logger  zerolog.Logger
	Metrics *metrics.Collector
	// Extra options applied after the configured ones.
	Options []controller.Option
}

// NewClient builds the HTTP fragment transport described by cfg.
func NewClient(cfg config.ClientConfig, logger zerolog.Logger) *transport.HTTPClient {
	options := []transport.Option{
		transport.WithBaseURL(cfg.BaseURL),
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithHiddenFields(transport.HiddenFromMap(cfg.Hidden)...),
		transport.WithCSRF(cfg.CSRF.Field, cfg.CSRF.Header, cfg.CSRF.Token),
		transport.WithLegacyMarker(cfg.EffectiveLegacyMarker()),
		transport.WithLogger(logger),
	}
	return transport.NewHTTPClient(options...)
}

// NewParser builds the fragment parser for cfg.
func NewParser(cfg *config.Config) *fragment.Parser {
	options := []fragment.ParserOption{fragment.WithMarkers(cfg.Markers)}
	if cfg.Client.SanitizeEnabled() {
		options = append(options, fragment.WithSanitizer(fragment.DefaultSanitizer()))
	}
	return fragment.NewParser(options...)
}

// NewPage builds a Page wired to the configured transport, parser and
// listing.
func NewPage(cfg *config.Config, settings Settings) *Page {
	client := NewClient(cfg.Client, settings.Logger)

	options := []controller.Option{
		controller.WithParser(NewParser(cfg)),
		controller.WithListingID(cfg.Listing.ID),
		controller.WithLogger(settings.Logger),
		controller.WithMetrics(settings.Metrics),
	}
	options = append(options, settings.Options...)
	return controller.New(client, options...)
}
