package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-embedform/pkg/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "embedform",
	Short: "Embedded-form controller for server-rendered HTML fragments",
	Long: `embedform loads server-rendered pages that follow the embedded-form
fragment protocol and lets you edit their forms inline or in an overlay.

Quick start:
  embedform sample                              # serve the sample blog
  embedform open http://127.0.0.1:8000/         # edit it interactively

Configuration is read from --config, or from EMBEDFORM_* environment
variables when no file is given.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	return config.NewLogger(cfg.Logging, out).With().Str("service", "embedform").Logger()
}
