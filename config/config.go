// Package config defines the JSON configuration for both harness
// binaries, with validation and defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/c360/seqcheck/errors"
	"github.com/c360/seqcheck/generator"
	"github.com/c360/seqcheck/verifier"
)

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URL           string        `json:"url"`
	Name          string        `json:"name,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`
	TLS           NATSTLSConfig `json:"tls,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// MetricsConfig defines the metrics HTTP endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LogConfig defines structured logging behavior
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json, text
}

// Config represents the complete harness configuration. Each binary
// reads the section it runs plus the shared NATS, metrics, and logging
// sections.
type Config struct {
	NATS      NATSConfig       `json:"nats"`
	Generator generator.Config `json:"generator"`
	Verifier  verifier.Config  `json:"verifier"`
	Metrics   MetricsConfig    `json:"metrics"`
	Log       LogConfig        `json:"log"`
}

// Default returns a configuration with every section at its defaults.
func Default() Config {
	return Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Generator: generator.DefaultConfig(),
		Verifier:  verifier.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "nats url must not be empty")
	}
	if err := c.Generator.Validate(); err != nil {
		return errors.Wrap(err, "Config", "Validate", "generator section")
	}
	if err := c.Verifier.Validate(); err != nil {
		return errors.Wrap(err, "Config", "Validate", "verifier section")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(
			fmt.Errorf("metrics port %d out of range", c.Metrics.Port),
			"Config", "Validate", "metrics section")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log level %q", c.Log.Level),
			"Config", "Validate", "log section")
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log format %q", c.Log.Format),
			"Config", "Validate", "log section")
	}
	return nil
}

// Load reads a JSON config file over the defaults and validates the
// result. A missing path returns pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.WrapInvalid(err, "Config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.WrapInvalid(err, "Config", "Load", "parse config file")
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
