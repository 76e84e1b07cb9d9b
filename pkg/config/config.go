// Package config loads raven client settings from a YAML file, a .env file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/strongdm/raven/pkg/raven"
)

// ErrMissingDSN is returned when neither the file nor the environment sets a DSN.
var ErrMissingDSN = errors.New("SENTRY_DSN is required")

// Config holds the client settings. Precedence, lowest first: Default, the
// YAML file, the environment.
type Config struct {
	DSN        string            `yaml:"dsn" env:"SENTRY_DSN"`
	BaseURL    string            `yaml:"base_url" env:"SENTRY_BASE_URL"`
	Tags       map[string]string `yaml:"tags" env:"SENTRY_TAGS" envSeparator:"," envKeyValSeparator:":"` // env form: k:v,k:v
	CrashDir   string            `yaml:"crash_dir" env:"SENTRY_CRASH_DIR"`
	AppPrefix  string            `yaml:"app_prefix" env:"SENTRY_APP_PREFIX"`
	ServerName string            `yaml:"server_name" env:"SENTRY_SERVER_NAME"`
	Compress   bool              `yaml:"compress" env:"SENTRY_COMPRESS"`
	Scrub      bool              `yaml:"scrub" env:"SENTRY_SCRUB"`
	Timeout    time.Duration     `yaml:"timeout" env:"SENTRY_TIMEOUT"` // 0 = no timeout
	LogLevel   string            `yaml:"log_level" env:"SENTRY_LOG_LEVEL"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Scrub:    true,
		LogLevel: "info",
	}
}

// Load reads the environment (and a .env file in the working directory, if
// any) on top of the defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads path as YAML, then applies the environment. An empty path
// skips the file; a missing file is an error.
func LoadFile(path string) (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// Unset variables leave the file values alone.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings without contacting the collector.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return ErrMissingDSN
	}
	if _, err := raven.ParseDSN(c.DSN); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Level parses LogLevel into a slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Options translates the settings into client options. Extra options are
// appended and therefore win.
func (c *Config) Options(logger *slog.Logger, extra ...raven.Option) []raven.Option {
	var httpOpts []raven.HTTPOption
	if c.Compress {
		httpOpts = append(httpOpts, raven.WithGzip())
	}
	if c.Timeout > 0 {
		httpOpts = append(httpOpts, raven.WithTimeout(c.Timeout))
	}

	opts := []raven.Option{
		raven.WithDeliverer(raven.NewHTTPDeliverer(httpOpts...)),
		raven.WithLogger(logger),
	}
	if c.BaseURL != "" {
		opts = append(opts, raven.WithBaseURL(c.BaseURL))
	}
	if len(c.Tags) > 0 {
		opts = append(opts, raven.WithTags(c.Tags))
	}
	if c.CrashDir != "" {
		opts = append(opts, raven.WithCrashDir(c.CrashDir))
	}
	if c.AppPrefix != "" {
		opts = append(opts, raven.WithAppPrefix(c.AppPrefix))
	}
	if c.ServerName != "" {
		opts = append(opts, raven.WithServerName(c.ServerName))
	}
	if c.Scrub {
		opts = append(opts, raven.WithDefaultScrubbing())
	}
	return append(opts, extra...)
}
