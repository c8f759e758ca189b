package component

import (
	"context"
	"log/slog"

	"github.com/c360/seqcheck/metric"
)

// Messenger is the transport surface components publish and subscribe
// through. *natsclient.Client satisfies it; tests substitute an in-memory
// implementation.
type Messenger interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
	SubscribeWithLimits(ctx context.Context, subject string, pendingMsgs int,
		handler func(context.Context, []byte)) error
}

// Dependencies provides all external dependencies needed by components.
// Components receive this struct at construction rather than reaching for
// package-level state.
type Dependencies struct {
	Messenger       Messenger               // Transport for vector records
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
