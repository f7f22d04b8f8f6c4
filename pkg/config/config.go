// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-embedform/pkg/fragment"
)

// Config is the root configuration structure.
type Config struct {
	Client  ClientConfig     `yaml:"client"`
	Markers fragment.Markers `yaml:"markers"`
	Listing ListingConfig    `yaml:"listing"`
	Logging LoggingConfig    `yaml:"logging"`
	Metrics MetricsConfig    `yaml:"metrics"`
	Sample  SampleConfig     `yaml:"sample"`
}

// ClientConfig configures the fragment transport.
type ClientConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	CSRF      CSRFConfig    `yaml:"csrf"`
	// Hidden fields are appended to every submission.
	Hidden       map[string]string `yaml:"hidden"`
	Legacy       bool              `yaml:"legacy"`
	LegacyMarker string            `yaml:"legacy_marker"`
	Sanitize     *bool             `yaml:"sanitize,omitempty"`
}

// CSRFConfig carries the anti-forgery token issued by the server.
type CSRFConfig struct {
	Field  string `yaml:"field"`
	Header string `yaml:"header"`
	Token  string `yaml:"token"`
}

// ListingConfig selects the listing refreshed after overlay edits.
type ListingConfig struct {
	// ID is the listing element id; empty selects the first listing.
	ID string `yaml:"id"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SampleConfig configures the sample fragment server.
type SampleConfig struct {
	Addr string `yaml:"addr"`
	DSN  string `yaml:"dsn"`
}

// SanitizeEnabled reports whether fragments are sanitized before parsing.
func (c ClientConfig) SanitizeEnabled() bool {
	return c.Sanitize == nil || *c.Sanitize
}

// EffectiveLegacyMarker returns the body marker for validation failures, or
// "" when legacy detection is off.
func (c ClientConfig) EffectiveLegacyMarker() string {
	if !c.Legacy {
		return ""
	}
	return c.LegacyMarker
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	EMBEDFORM_BASE_URL       - Base URL for relative fragment addresses
//	EMBEDFORM_TIMEOUT        - Per-request timeout (default: none)
//	EMBEDFORM_CSRF_TOKEN     - CSRF token sent with every submission
//	EMBEDFORM_CSRF_FIELD     - CSRF form field (default: csrfmiddlewaretoken)
//	EMBEDFORM_CSRF_HEADER    - CSRF header (default: X-CSRFToken)
//	EMBEDFORM_LEGACY         - Treat the form-errors marker as validation failure
//	EMBEDFORM_LISTING_ID     - Listing refreshed after overlay edits
//	EMBEDFORM_LOG_LEVEL      - debug, info, warn, error (default: info)
//	EMBEDFORM_LOG_FORMAT     - json or console (default: console)
//	EMBEDFORM_METRICS_ADDR   - Serve /metrics on this address
//	EMBEDFORM_SAMPLE_ADDR    - Sample server address (default: 127.0.0.1:8000)
//	EMBEDFORM_SAMPLE_DSN     - Sample server SQLite DSN (default: in-memory)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when given, otherwise the environment.
func LoadWithFallback(path string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		return Load(path)
	}
	return LoadFromEnv()
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMBEDFORM_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("EMBEDFORM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.Timeout = d
		}
	}
	if v := os.Getenv("EMBEDFORM_USER_AGENT"); v != "" {
		cfg.Client.UserAgent = v
	}
	if v := os.Getenv("EMBEDFORM_CSRF_TOKEN"); v != "" {
		cfg.Client.CSRF.Token = v
	}
	if v := os.Getenv("EMBEDFORM_CSRF_FIELD"); v != "" {
		cfg.Client.CSRF.Field = v
	}
	if v := os.Getenv("EMBEDFORM_CSRF_HEADER"); v != "" {
		cfg.Client.CSRF.Header = v
	}
	if v := os.Getenv("EMBEDFORM_LEGACY"); v != "" {
		cfg.Client.Legacy = parseBool(v)
	}
	if v := os.Getenv("EMBEDFORM_LISTING_ID"); v != "" {
		cfg.Listing.ID = v
	}

	if v := os.Getenv("EMBEDFORM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EMBEDFORM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("EMBEDFORM_METRICS_ADDR"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("EMBEDFORM_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("EMBEDFORM_SAMPLE_ADDR"); v != "" {
		cfg.Sample.Addr = v
	}
	if v := os.Getenv("EMBEDFORM_SAMPLE_DSN"); v != "" {
		cfg.Sample.DSN = v
	}
	if v := os.Getenv("EMBEDFORM_SAMPLE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Sample.Addr = fmt.Sprintf("127.0.0.1:%d", port)
		}
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Client.UserAgent == "" {
		cfg.Client.UserAgent = "go-embedform"
	}
	if cfg.Client.CSRF.Field == "" {
		cfg.Client.CSRF.Field = "csrfmiddlewaretoken"
	}
	if cfg.Client.CSRF.Header == "" {
		cfg.Client.CSRF.Header = "X-CSRFToken"
	}
	if cfg.Client.LegacyMarker == "" {
		cfg.Client.LegacyMarker = fragment.DefaultMarkers().ErrorClass
	}

	cfg.Markers = cfg.Markers.WithDefaults()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = "127.0.0.1:9464"
	}

	if cfg.Sample.Addr == "" {
		cfg.Sample.Addr = "127.0.0.1:8000"
	}
	if cfg.Sample.DSN == "" {
		cfg.Sample.DSN = "file:embedform-sample?mode=memory&cache=shared"
	}
}

func validate(cfg *Config) error {
	if cfg.Client.BaseURL != "" {
		u, err := url.Parse(cfg.Client.BaseURL)
		if err != nil {
			return fmt.Errorf("client.base_url: %w", err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("client.base_url must be absolute, got %q", cfg.Client.BaseURL)
		}
	}
	if cfg.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, disabled")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	return nil
}
