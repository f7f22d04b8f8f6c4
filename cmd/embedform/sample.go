package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-embedform/internal/sample"
)

var sampleAddr string

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Serve the sample blog application",
	Long: `Serve a small blog whose pages speak the embedded-form fragment
protocol: the blog form edits inline, posts open in an overlay and the post
listing refreshes after each overlay save.

Environment variables:
  EMBEDFORM_SAMPLE_ADDR     - Listen address (default: 127.0.0.1:8000)
  EMBEDFORM_SAMPLE_DSN      - SQLite DSN (default: shared in-memory database)
  EMBEDFORM_CSRF_TOKEN      - Require this token on every POST

Examples:
  embedform sample
  embedform sample --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleAddr, "addr", "", "listen address (overrides sample.addr)")
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sample.OpenStore(ctx, cfg.Sample.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	blog, err := store.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	srv, err := sample.New(ctx, store,
		sample.WithLogger(logger),
		sample.WithCSRFToken(cfg.Client.CSRF.Token),
	)
	if err != nil {
		return err
	}

	addr := cfg.Sample.Addr
	if sampleAddr != "" {
		addr = sampleAddr
	}
	logger.Info().Int64("blog_id", blog.ID).Str("addr", addr).Msg("serving sample blog")
	return srv.ListenAndServe(ctx, addr)
}
