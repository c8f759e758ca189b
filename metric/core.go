package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the harness-level metrics shared by every component.
type Metrics struct {
	// Component metrics
	ComponentStatus *prometheus.GaugeVec
	ErrorsTotal     *prometheus.CounterVec

	// Stream metrics
	VectorsEmitted   *prometheus.CounterVec
	VectorsReceived  *prometheus.CounterVec
	BytesTransferred *prometheus.CounterVec
	StreamRate       *prometheus.GaugeVec
	DropsTotal       *prometheus.CounterVec
	ResetsTotal      *prometheus.CounterVec
	CorruptionTotal  *prometheus.CounterVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all harness metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "seqcheck",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"component"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		VectorsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "vectors_emitted_total",
				Help:      "Total number of vectors published",
			},
			[]string{"component", "subject"},
		),

		VectorsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "vectors_received_total",
				Help:      "Total number of vectors consumed",
			},
			[]string{"component", "subject"},
		),

		BytesTransferred: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "bytes_total",
				Help:      "Total bytes moved over the stream",
			},
			[]string{"component", "direction"},
		),

		StreamRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "rate_per_second",
				Help:      "Observed long-run throughput in items per second",
			},
			[]string{"component"},
		),

		DropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "drops_total",
				Help:      "Total number of sequence gap events detected",
			},
			[]string{"component"},
		),

		ResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "resets_total",
				Help:      "Total number of sequence reset events detected",
			},
			[]string{"component"},
		),

		CorruptionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "stream",
				Name:      "corruption_total",
				Help:      "Total number of non-homogeneous or short vectors",
			},
			[]string{"component"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "seqcheck",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "seqcheck",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "seqcheck",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "seqcheck",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordComponentStatus updates a component's lifecycle status metric.
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordError increments the error counter.
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordVectorsEmitted adds published vectors to the emit counter.
func (c *Metrics) RecordVectorsEmitted(component, subject string, n int) {
	c.VectorsEmitted.WithLabelValues(component, subject).Add(float64(n))
}

// RecordVectorsReceived adds consumed vectors to the receive counter.
func (c *Metrics) RecordVectorsReceived(component, subject string, n int) {
	c.VectorsReceived.WithLabelValues(component, subject).Add(float64(n))
}

// RecordBytes adds transferred bytes for a direction ("in" or "out").
func (c *Metrics) RecordBytes(component, direction string, n int) {
	c.BytesTransferred.WithLabelValues(component, direction).Add(float64(n))
}

// RecordStreamRate updates the observed throughput gauge.
func (c *Metrics) RecordStreamRate(component string, rate float64) {
	c.StreamRate.WithLabelValues(component).Set(rate)
}

// RecordDrop increments the drop event counter.
func (c *Metrics) RecordDrop(component string) {
	c.DropsTotal.WithLabelValues(component).Inc()
}

// RecordReset increments the reset event counter.
func (c *Metrics) RecordReset(component string) {
	c.ResetsTotal.WithLabelValues(component).Inc()
}

// RecordCorruption increments the corruption event counter.
func (c *Metrics) RecordCorruption(component string) {
	c.CorruptionTotal.WithLabelValues(component).Inc()
}

// RecordNATSStatus updates NATS connection status.
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time.
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments the reconnection counter.
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates the circuit breaker status.
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.NATSCircuitBreaker.Set(float64(state))
}
