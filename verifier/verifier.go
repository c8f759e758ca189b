// Package verifier provides the sink component that consumes the vector
// stream and checks its integrity.
//
// Records arrive on a NATS subscription whose pending queue is capped by
// the configured high-water mark; the delivery callback copies each
// record into a ring buffer, and a synchronous work loop drains the ring
// in batches: decode, homogeneity check, continuity check. When the
// cumulative drop count exceeds the configured threshold the verifier
// halts and closes the channel returned by Halted, which the binary
// observes to exit cleanly.
package verifier

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
	"github.com/c360/seqcheck/pkg/buffer"
	"github.com/c360/seqcheck/seq"
	"github.com/c360/seqcheck/wire"
)

// DefaultBufferSize is the default ring buffer capacity in records.
const DefaultBufferSize = 8192

// Metrics holds Prometheus metrics for the verifier component
type Metrics struct {
	vectorsReceived prometheus.Counter
	bytesReceived   prometheus.Counter
	drops           prometheus.Counter
	resets          prometheus.Counter
	corruption      prometheus.Counter
	bufferDropped   prometheus.Counter
	rate            prometheus.Gauge
	lastActivity    prometheus.Gauge
}

// newMetrics creates and registers verifier metrics
func newMetrics(registry *metric.MetricsRegistry, name string) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		vectorsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "vectors_received_total",
			Help:      "Total vectors consumed from the stream",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "bytes_received_total",
			Help:      "Total bytes consumed from the stream",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "drops_total",
			Help:      "Sequence gap events detected",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "resets_total",
			Help:      "Sequence reset events detected",
		}),
		corruption: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "corruption_total",
			Help:      "Mis-sized or non-homogeneous records",
		}),
		bufferDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "buffer_dropped_total",
			Help:      "Records shed by the ring buffer under backpressure",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "rate_per_second",
			Help:      "Observed throughput in items per second since last anchor",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqcheck",
			Subsystem: "verifier",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of the last received record",
		}),
	}

	registry.RegisterCounter(name, "vectors_received", metrics.vectorsReceived)
	registry.RegisterCounter(name, "bytes_received", metrics.bytesReceived)
	registry.RegisterCounter(name, "drops", metrics.drops)
	registry.RegisterCounter(name, "resets", metrics.resets)
	registry.RegisterCounter(name, "corruption", metrics.corruption)
	registry.RegisterCounter(name, "buffer_dropped", metrics.bufferDropped)
	registry.RegisterGauge(name, "rate", metrics.rate)
	registry.RegisterGauge(name, "last_activity", metrics.lastActivity)

	return metrics
}

// Config holds configuration for the verifier component
type Config struct {
	Subject        string `json:"subject"`
	VLen           int    `json:"vlen"`
	HWM            int    `json:"hwm"`     // subscription pending cap; < 0 means unbounded
	MaxErr         int    `json:"max_err"` // drop events tolerated before halting
	UpdateInterval uint64 `json:"update_interval"`
	BatchSize      int    `json:"batch_size"`
	BufferSize     int    `json:"buffer_size"` // ring buffer capacity in records
}

// DefaultConfig returns sensible defaults for the verifier
func DefaultConfig() Config {
	return Config{
		Subject:        "seq.data",
		VLen:           1,
		HWM:            -1,
		MaxErr:         seq.DefaultMaxErr,
		UpdateInterval: seq.DefaultUpdateInterval,
		BatchSize:      256,
		BufferSize:     DefaultBufferSize,
	}
}

// Validate implements config validation for the verifier component
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
	if c.BufferSize < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("buffer size %d out of range", c.BufferSize),
			"Config", "Validate", "buffer size must be at least 1")
	}
	return nil
}

// Deps holds runtime dependencies for the verifier component
type Deps struct {
	Name            string
	Config          Config
	Messenger       component.Messenger
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Verifier consumes the vector stream and checks continuity and
// homogeneity, halting once the drop threshold is exceeded.
type Verifier struct {
	name      string
	config    Config
	messenger component.Messenger
	logger    *slog.Logger

	codec  *wire.Codec
	ring   *buffer.Ring[[]byte]
	runner *engine.Runner

	// comparator is driven by the work loop; cmpMu lets the accessors and
	// health probes read it without racing.
	cmpMu      sync.Mutex
	comparator *seq.Comparator

	halted   chan struct{}
	haltOnce sync.Once

	// Lifecycle management
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.Mutex

	// Flow counters
	vectorsReceived atomic.Int64
	bytesReceived   atomic.Int64
	corruptions     atomic.Int64
	callsToWork     atomic.Int64
	lastActivity    atomic.Value // stores time.Time
	lastError       atomic.Value // stores string

	metrics *Metrics
}

// Ensure Verifier implements all required interfaces
var _ component.Discoverable = (*Verifier)(nil)
var _ component.LifecycleComponent = (*Verifier)(nil)

// New creates a verifier component from its dependencies.
func New(deps Deps) (*Verifier, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if deps.Messenger == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil messenger"),
			"Verifier", "New", "messenger validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "verifier")
	}

	codec, err := wire.NewCodec(deps.Config.VLen)
	if err != nil {
		return nil, err
	}

	comparator := seq.NewComparator(
		seq.WithComparatorLogger(logger),
		seq.WithMaxErr(deps.Config.MaxErr))

	runner, err := engine.NewRunner(deps.Config.BatchSize)
	if err != nil {
		return nil, err
	}

	name := deps.Name
	if name == "" {
		name = "verifier"
	}

	v := &Verifier{
		name:       name,
		config:     deps.Config,
		messenger:  deps.Messenger,
		logger:     logger,
		codec:      codec,
		comparator: comparator,
		runner:     runner,
		halted:     make(chan struct{}),
		startTime:  time.Now(),
		metrics:    newMetrics(deps.MetricsRegistry, name),
	}

	ring, err := buffer.NewRing(deps.Config.BufferSize,
		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
		buffer.WithDropCallback[[]byte](func([]byte) {
			if v.metrics != nil {
				v.metrics.bufferDropped.Inc()
			}
		}))
	if err != nil {
		return nil, err
	}
	v.ring = ring

	v.lastActivity.Store(time.Time{})
	return v, nil
}

// Meta returns the component metadata
func (v *Verifier) Meta() component.Metadata {
	return component.Metadata{
		Name: v.name,
		Type: "sink",
		Description: fmt.Sprintf("sequence verifier consuming vlen=%d vectors from %s",
			v.config.VLen, v.config.Subject),
		Version: "1.0.0",
	}
}

// Health returns the current health status of the component
func (v *Verifier) Health() component.HealthStatus {
	lastError, _ := v.lastError.Load().(string)
	v.cmpMu.Lock()
	phase := v.comparator.Phase()
	dropped := v.comparator.Dropped()
	v.cmpMu.Unlock()

	return component.HealthStatus{
		Healthy:    v.running.Load() && phase != seq.PhaseTerminated,
		LastCheck:  time.Now(),
		ErrorCount: dropped + int(v.corruptions.Load()),
		LastError:  lastError,
		Uptime:     time.Since(v.startTime),
	}
}

// DataFlow returns the current data flow metrics
func (v *Verifier) DataFlow() component.FlowMetrics {
	vectors := v.vectorsReceived.Load()
	bytes := v.bytesReceived.Load()
	errorCount := int64(v.Dropped()) + v.corruptions.Load()
	lastActivity, _ := v.lastActivity.Load().(time.Time)

	var vectorsPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(v.startTime).Seconds(); uptime > 0 {
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
func (v *Verifier) Initialize() error {
	if err := v.config.Validate(); err != nil {
		return err
	}
	if v.messenger == nil {
		return errors.WrapInvalid(fmt.Errorf("nil messenger"),
			"Verifier", "Initialize", "messenger validation")
	}
	return nil
}

// Start subscribes to the stream and begins the verification loop.
func (v *Verifier) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running.Load() {
		return nil // Already running, idempotent
	}

	runCtx, cancel := context.WithCancel(ctx)

	// Delivery callback: copy and buffer. The record slice is only valid
	// for the duration of the callback.
	err := v.messenger.SubscribeWithLimits(runCtx, v.config.Subject, v.config.HWM,
		func(_ context.Context, data []byte) {
			rec := make([]byte, len(data))
			copy(rec, data)
			_ = v.ring.Write(rec)

			v.bytesReceived.Add(int64(len(data)))
			if v.metrics != nil {
				v.metrics.bytesReceived.Add(float64(len(data)))
			}
		})
	if err != nil {
		cancel()
		return errors.WrapTransient(err, "Verifier", "Start", "subscribe")
	}

	v.cancel = cancel
	v.done = make(chan struct{})
	v.running.Store(true)
	v.startTime = time.Now()

	done := v.done
	go func() {
		defer close(done)
		err := v.runner.RunConsumer(runCtx, v.fetch, v)
		if err != nil && runCtx.Err() == nil {
			v.lastError.Store(err.Error())
			v.logger.Error("verifier loop stopped", "error", err)
		}
		v.running.Store(false)
	}()

	v.logger.Info("verifier started",
		"subject", v.config.Subject,
		"vlen", v.config.VLen,
		"hwm", v.config.HWM,
		"max_err", v.config.MaxErr)

	return nil
}

// fetch drains up to one batch of records from the ring and decodes them.
// Mis-sized records are corruption events: logged, counted, skipped.
func (v *Verifier) fetch(ctx context.Context) ([][]uint64, error) {
	var records [][]byte
	for {
		records = v.ring.ReadBatch(v.runner.BatchSize())
		if records != nil {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}

	batch := make([][]uint64, 0, len(records))
	for _, rec := range records {
		vec, err := v.codec.Decode(rec, nil)
		if err != nil {
			v.recordCorruption()
			v.logger.Error("corrupt record",
				"size", len(rec),
				"want", v.codec.Size(),
				"error", err)
			continue
		}
		batch = append(batch, vec)
	}
	return batch, nil
}

// Consume checks each vector for homogeneity and continuity. It returns
// the number of vectors consumed; returning early signals the drop
// threshold tripped and stops the loop.
func (v *Verifier) Consume(batch [][]uint64) int {
	v.callsToWork.Add(1)

	for i, vec := range batch {
		ref, bad := seq.Reference(vec)
		if bad > 0 {
			v.recordCorruption()
			v.logger.Error("vector not homogeneous",
				"reference", ref,
				"mismatched", bad,
				"vlen", len(vec))
			// The reference still feeds the continuity check; a corrupt
			// payload says nothing about ordering.
		}

		v.cmpMu.Lock()
		outcome := v.comparator.Check(ref)
		dropped := v.comparator.Dropped()
		expected := v.comparator.Expected()
		v.cmpMu.Unlock()

		switch outcome {
		case seq.OutcomeDrop:
			if v.metrics != nil {
				v.metrics.drops.Inc()
			}
		case seq.OutcomeReset:
			if v.metrics != nil {
				v.metrics.resets.Inc()
			}
		case seq.OutcomeHalt:
			v.logger.Error("drop threshold exceeded, halting",
				"dropped", dropped,
				"max_err", v.config.MaxErr,
				"expected", expected)
			v.lastError.Store(errors.ErrThresholdExceeded.Error())
			v.haltOnce.Do(func() { close(v.halted) })
			return i
		}

		v.vectorsReceived.Add(1)
		now := time.Now()
		v.lastActivity.Store(now)

		if v.metrics != nil {
			v.metrics.vectorsReceived.Inc()
			v.metrics.lastActivity.Set(float64(now.Unix()))
		}

		v.logProgress(len(batch))
	}

	if v.metrics != nil {
		v.metrics.rate.Set(v.Rate())
	}
	return len(batch)
}

// logProgress emits a telemetry line every UpdateInterval elements.
func (v *Verifier) logProgress(batchLen int) {
	interval := v.config.UpdateInterval
	if interval == 0 {
		return
	}
	v.cmpMu.Lock()
	seen := v.comparator.Seq() * uint64(v.config.VLen)
	expected := v.comparator.Expected()
	rate := v.comparator.Rate()
	v.cmpMu.Unlock()

	if seen%interval != 0 {
		return
	}
	v.logger.Info("verifier progress",
		"time", time.Now(),
		"calls_to_work", v.callsToWork.Load(),
		"expected", expected,
		"rate_per_sec", rate,
		"batch", batchLen)
}

func (v *Verifier) recordCorruption() {
	v.corruptions.Add(1)
	if v.metrics != nil {
		v.metrics.corruption.Inc()
	}
}

// Halted returns a channel closed when the drop threshold is exceeded.
func (v *Verifier) Halted() <-chan struct{} {
	return v.halted
}

// Dropped returns the cumulative count of drop events.
func (v *Verifier) Dropped() int {
	v.cmpMu.Lock()
	defer v.cmpMu.Unlock()
	return v.comparator.Dropped()
}

// Expected returns the next sequence value the verifier expects.
func (v *Verifier) Expected() uint64 {
	v.cmpMu.Lock()
	defer v.cmpMu.Unlock()
	return v.comparator.Expected()
}

// Rate returns the observed throughput in items per second.
func (v *Verifier) Rate() float64 {
	v.cmpMu.Lock()
	defer v.cmpMu.Unlock()
	return v.comparator.Rate()
}

// Stop gracefully stops the verifier with the specified timeout
func (v *Verifier) Stop(timeout time.Duration) error {
	v.mu.Lock()
	cancel := v.cancel
	done := v.done
	v.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"Verifier", "Stop", "graceful shutdown")
	}

	v.running.Store(false)
	_ = v.ring.Close()

	v.logger.Info("verifier stopped",
		"vectors_received", v.vectorsReceived.Load(),
		"dropped", v.Dropped(),
		"corruptions", v.corruptions.Load(),
		"rate_per_sec", v.Rate())
	return nil
}
