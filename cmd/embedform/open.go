package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	embedform "github.com/goliatone/go-embedform"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/renderers/tui"
)

var (
	openBaseURL string
	openListing string
	openPlain   bool
)

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Open a page and edit its forms interactively",
	Long: `Load the page at <url>, print it as text and offer the actions a
browser user would have: follow triggers, edit fields, attach files, submit,
dismiss the overlay and reload.

Relative URLs resolve against client.base_url (or --base-url).

Examples:
  embedform open http://127.0.0.1:8000/
  embedform open / --base-url http://127.0.0.1:8000
  EMBEDFORM_METRICS_ADDR=127.0.0.1:9464 embedform open http://127.0.0.1:8000/`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringVar(&openBaseURL, "base-url", "", "base URL for relative addresses (overrides client.base_url)")
	openCmd.Flags().StringVar(&openListing, "listing", "", "id of the listing refreshed after overlay edits")
	openCmd.Flags().BoolVar(&openPlain, "plain", false, "disable colours")
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if openBaseURL != "" {
		cfg.Client.BaseURL = openBaseURL
	}
	if openListing != "" {
		cfg.Listing.ID = openListing
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		collector = metrics.NewWithRegistry(reg)
		go serveMetrics(ctx, cfg.Metrics.Addr, reg, logger)
	}

	page := embedform.NewPage(cfg, embedform.Settings{
		Logger:  logger,
		Metrics: collector,
	})

	theme := tui.DefaultTheme()
	if openPlain {
		theme = tui.PlainTheme()
	}
	session := tui.NewSession(page,
		tui.WithOutput(cmd.OutOrStdout()),
		tui.WithTheme(theme),
		tui.WithLogger(logger),
	)
	err = session.Run(ctx, args[0])
	if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
