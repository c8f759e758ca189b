// Package logging provides the shared slog setup for the seqgen and
// seqsink binaries.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a structured logger with the given level and format.
// Format is "json" or "text"; unknown values fall back to json.
// The returned logger carries service identity attributes on every line.
func New(service, version, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", service,
		"version", version,
		"pid", os.Getpid(),
	)
}
