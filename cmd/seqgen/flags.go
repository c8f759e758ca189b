package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c360/seqcheck/config"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Subject         string
	VLen            int
	SampleRate      float64
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SEQCHECK_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: SEQCHECK_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SEQCHECK_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: SEQCHECK_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SEQCHECK_LOG_FORMAT", ""),
		"Log format: json, text (env: SEQCHECK_LOG_FORMAT)")

	flag.StringVar(&cfg.Subject, "subject",
		getEnv("SEQCHECK_SUBJECT", ""),
		"Subject to publish the stream on (env: SEQCHECK_SUBJECT)")

	flag.IntVar(&cfg.VLen, "vlen",
		getEnvInt("SEQCHECK_VLEN", 0),
		"Elements per vector (env: SEQCHECK_VLEN)")

	flag.Float64Var(&cfg.SampleRate, "sample-rate",
		getEnvFloat("SEQCHECK_SAMPLE_RATE", -1),
		"Target elements per second, 0 for unthrottled (env: SEQCHECK_SAMPLE_RATE)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SEQCHECK_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: SEQCHECK_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

// loadConfig loads the file config and layers CLI overrides on top.
func loadConfig(cliCfg *CLIConfig) (config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}
	if cliCfg.Subject != "" {
		cfg.Generator.Subject = cliCfg.Subject
	}
	if cliCfg.VLen > 0 {
		cfg.Generator.VLen = cliCfg.VLen
	}
	if cliCfg.SampleRate >= 0 {
		cfg.Generator.SampleRate = cliCfg.SampleRate
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Sequence Stream Generator

Publishes a monotonically increasing vector sequence for integrity
verification by seqsink.

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with defaults against a local NATS server
  %s

  # Drive a 16-element vector stream at 8M elements/s
  %s --vlen=16 --sample-rate=8000000

  # Run with a config file and debug logging
  %s --config=/etc/seqcheck/config.json --log-level=debug

  # Validate configuration only
  %s --config=/etc/seqcheck/config.json --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
