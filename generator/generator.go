// Package generator provides the source component that publishes the
// monotonically increasing vector stream.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/seqcheck/component"
	"github.com/c360/seqcheck/engine"
	"github.com/c360/seqcheck/errors"
	"github.com/c360/seqcheck/metric"
	"github.com/c360/seqcheck/pkg/retry"
	"github.com/c360/seqcheck/seq"
	"github.com/c360/seqcheck/throttle"
	"github.com/c360/seqcheck/wire"
)

// Metrics holds Prometheus metrics for the generator component
type Metrics struct {
	vectorsPublished prometheus.Counter
	bytesPublished   prometheus.Counter
	publishErrors    prometheus.Counter
	publishLatency   prometheus.Histogram
	rate             prometheus.Gauge
	lastActivity     prometheus.Gauge
}

// newMetrics creates and registers generator metrics
func newMetrics(registry *metric.MetricsRegistry, name string) *Metrics {
	// Return nil if no registry provided (nil input = nil feature pattern)
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		vectorsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "generator",
			Name:      "vectors_published_total",
			Help:      "Total vectors published to the stream",
		}),
		bytesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "generator",
			Name:      "bytes_published_total",
			Help:      "Total bytes published to the stream",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "generator",
			Name:      "publish_errors_total",
			Help:      "Publish attempts that failed after retries",
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seqcheck",
			Subsystem: "generator",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish one record",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqcheck",
			Subsystem: "generator",
			Name:      "rate_per_second",
			Help:      "Long-run emission rate in vectors per second",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqcheck",
			Subsystem: "generator",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of the last published record",
		}),
	}

	registry.RegisterCounter(name, "vectors_published", metrics.vectorsPublished)
	registry.RegisterCounter(name, "bytes_published", metrics.bytesPublished)
	registry.RegisterCounter(name, "publish_errors", metrics.publishErrors)
	registry.RegisterHistogram(name, "publish_latency", metrics.publishLatency)
	registry.RegisterGauge(name, "rate", metrics.rate)
	registry.RegisterGauge(name, "last_activity", metrics.lastActivity)

	return metrics
}

// Config holds configuration for the generator component
type Config struct {
	Subject        string  `json:"subject"`
	VLen           int     `json:"vlen"`
	SampleRate     float64 `json:"sample_rate"`     // elements/second, <= 0 means unthrottled
	UpdateInterval uint64  `json:"update_interval"` // elements between progress log lines
	BatchSize      int     `json:"batch_size"`
}

// DefaultConfig returns sensible defaults for the generator
func DefaultConfig() Config {
	return Config{
		Subject:        "seq.data",
		VLen:           1,
		SampleRate:     throttle.DefaultSampleRate,
		UpdateInterval: seq.DefaultUpdateInterval,
		BatchSize:      256,
	}
}

// Validate implements config validation for the generator component
func (c *Config) Validate() error {
	if c.Subject == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", "subject must not be empty")
	}
	if c.VLen < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("vlen %d out of range", c.VLen),
			"Config", "Validate", "vector length must be at least 1")
	}
	if c.BatchSize < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("batch size %d out of range", c.BatchSize),
			"Config", "Validate", "batch size must be at least 1")
	}
	return nil
}

// Deps holds runtime dependencies for the generator component
type Deps struct {
	Name            string
	Config          Config
	Messenger       component.Messenger
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Generator publishes the increasing vector sequence to the transport.
// It owns a seq.Generator for values, a throttle for pacing, and a wire
// codec for the record format.
type Generator struct {
	name      string
	config    Config
	messenger component.Messenger
	logger    *slog.Logger

	source *seq.Generator
	codec  *wire.Codec
	pace   *throttle.Throttle
	runner *engine.Runner

	retryConfig retry.Config

	// Lifecycle management
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.Mutex

	// Flow counters
	vectorsPublished atomic.Int64
	bytesPublished   atomic.Int64
	publishErrors    atomic.Int64
	lastActivity     atomic.Value // stores time.Time
	lastError        atomic.Value // stores string

	metrics *Metrics
}

// Ensure Generator implements all required interfaces
var _ component.Discoverable = (*Generator)(nil)
var _ component.LifecycleComponent = (*Generator)(nil)

// New creates a generator component from its dependencies.
func New(deps Deps) (*Generator, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if deps.Messenger == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil messenger"),
			"Generator", "New", "messenger validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "generator")
	}

	source, err := seq.NewGenerator(deps.Config.VLen,
		seq.WithGeneratorLogger(logger),
		seq.WithGeneratorUpdateInterval(deps.Config.UpdateInterval))
	if err != nil {
		return nil, err
	}

	codec, err := wire.NewCodec(deps.Config.VLen)
	if err != nil {
		return nil, err
	}

	pace, err := throttle.New(deps.Config.SampleRate, deps.Config.VLen)
	if err != nil {
		return nil, err
	}

	runner, err := engine.NewRunner(deps.Config.BatchSize)
	if err != nil {
		return nil, err
	}

	name := deps.Name
	if name == "" {
		name = "generator"
	}

	g := &Generator{
		name:        name,
		config:      deps.Config,
		messenger:   deps.Messenger,
		logger:      logger,
		source:      source,
		codec:       codec,
		pace:        pace,
		runner:      runner,
		retryConfig: retry.Quick(),
		startTime:   time.Now(),
		metrics:     newMetrics(deps.MetricsRegistry, name),
	}
	g.lastActivity.Store(time.Time{})
	return g, nil
}

// Meta returns the component metadata
func (g *Generator) Meta() component.Metadata {
	return component.Metadata{
		Name: g.name,
		Type: "source",
		Description: fmt.Sprintf("sequence generator publishing vlen=%d vectors to %s",
			g.config.VLen, g.config.Subject),
		Version: "1.0.0",
	}
}

// Health returns the current health status of the component
func (g *Generator) Health() component.HealthStatus {
	lastError, _ := g.lastError.Load().(string)
	return component.HealthStatus{
		Healthy:    g.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(g.publishErrors.Load()),
		LastError:  lastError,
		Uptime:     time.Since(g.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (g *Generator) DataFlow() component.FlowMetrics {
	vectors := g.vectorsPublished.Load()
	bytes := g.bytesPublished.Load()
	errorCount := g.publishErrors.Load()
	lastActivity, _ := g.lastActivity.Load().(time.Time)

	var vectorsPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(g.startTime).Seconds(); uptime > 0 {
		vectorsPerSecond = float64(vectors) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if vectors > 0 {
		errorRate = float64(errorCount) / float64(vectors)
	}

	return component.FlowMetrics{
		VectorsPerSecond: vectorsPerSecond,
		BytesPerSecond:   bytesPerSecond,
		ErrorRate:        errorRate,
		LastActivity:     lastActivity,
	}
}

// Initialize validates the component is ready to start
func (g *Generator) Initialize() error {
	if err := g.config.Validate(); err != nil {
		return err
	}
	if g.messenger == nil {
		return errors.WrapInvalid(fmt.Errorf("nil messenger"),
			"Generator", "Initialize", "messenger validation")
	}
	return nil
}

// Start begins generating and publishing vectors. The loop runs until the
// context is cancelled or Stop is called.
func (g *Generator) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running.Load() {
		return nil // Already running, idempotent
	}

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	g.running.Store(true)
	g.startTime = time.Now()

	done := g.done
	go func() {
		defer close(done)
		err := g.runner.RunProducer(runCtx, g.source, g.emit)
		if err != nil && runCtx.Err() == nil {
			g.lastError.Store(err.Error())
			g.logger.Error("generator loop stopped", "error", err)
		}
		g.running.Store(false)
	}()

	g.logger.Info("generator started",
		"subject", g.config.Subject,
		"vlen", g.config.VLen,
		"sample_rate", g.config.SampleRate,
		"batch_size", g.config.BatchSize)

	return nil
}

// emit paces a batch and publishes each vector as one wire record.
func (g *Generator) emit(ctx context.Context, batch [][]uint64) error {
	if err := g.pace.Wait(ctx, len(batch)); err != nil {
		return errors.WrapTransient(err, "Generator", "emit", "throttle wait")
	}

	// The transport copies data before Publish returns, so one scratch
	// buffer serves every record.
	buf := make([]byte, g.codec.Size())
	for _, vec := range batch {
		if _, err := g.codec.Encode(buf, vec); err != nil {
			return err
		}

		var start time.Time
		if g.metrics != nil {
			start = time.Now()
		}

		publish := func() error {
			return g.messenger.Publish(ctx, g.config.Subject, buf)
		}
		if err := retry.Do(ctx, g.retryConfig, publish); err != nil {
			g.publishErrors.Add(1)
			g.lastError.Store(err.Error())
			if g.metrics != nil {
				g.metrics.publishErrors.Inc()
			}
			// The record is lost; the verifier will see it as a gap.
			// Keep the stream going unless the transport is gone for good.
			if errors.IsFatal(err) {
				return err
			}
			continue
		}

		g.vectorsPublished.Add(1)
		g.bytesPublished.Add(int64(len(buf)))
		now := time.Now()
		g.lastActivity.Store(now)

		if g.metrics != nil {
			g.metrics.vectorsPublished.Inc()
			g.metrics.bytesPublished.Add(float64(len(buf)))
			g.metrics.publishLatency.Observe(time.Since(start).Seconds())
			g.metrics.lastActivity.Set(float64(now.Unix()))
		}
	}

	if g.metrics != nil {
		g.metrics.rate.Set(g.source.Rate())
	}
	return nil
}

// Stop gracefully stops the generator with the specified timeout
func (g *Generator) Stop(timeout time.Duration) error {
	g.mu.Lock()
	cancel := g.cancel
	done := g.done
	g.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"Generator", "Stop", "graceful shutdown")
	}

	g.running.Store(false)
	g.logger.Info("generator stopped",
		"vectors_published", g.vectorsPublished.Load(),
		"publish_errors", g.publishErrors.Load())
	return nil
}

// Counter returns the next sequence value to be emitted.
func (g *Generator) Counter() uint64 {
	return g.source.Counter()
}
