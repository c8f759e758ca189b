package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seqcheck/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test counter",
	})

	err := registry.RegisterCounter("generator", "test_counter", counter)
	require.NoError(t, err)

	// Same key again must be rejected as invalid, not fatal.
	dup := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "another_counter_total",
		Help: "another counter",
	})
	err = registry.RegisterCounter("generator", "test_counter", dup)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_PrometheusConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conflicting_gauge",
		Help: "gauge",
	})
	require.NoError(t, registry.RegisterGauge("generator", "g1", gauge))

	// Different key, identical descriptor. Prometheus itself rejects it.
	same := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conflicting_gauge",
		Help: "gauge",
	})
	err := registry.RegisterGauge("verifier", "g2", same)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "removable_counter_total",
		Help: "counter",
	})
	require.NoError(t, registry.RegisterCounter("verifier", "removable", counter))

	assert.True(t, registry.Unregister("verifier", "removable"))
	assert.False(t, registry.Unregister("verifier", "removable"), "second unregister is a no-op")
	assert.False(t, registry.Unregister("verifier", "never_registered"))

	// Slot is free again after unregistering.
	assert.NoError(t, registry.RegisterCounter("verifier", "removable", counter))
}

func TestCoreMetrics_Recording(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordVectorsEmitted("generator", "seq.data", 128)
	m.RecordVectorsEmitted("generator", "seq.data", 64)
	assert.InDelta(t, 192, testutil.ToFloat64(
		m.VectorsEmitted.WithLabelValues("generator", "seq.data")), 0.001)

	m.RecordDrop("verifier")
	m.RecordDrop("verifier")
	assert.InDelta(t, 2, testutil.ToFloat64(
		m.DropsTotal.WithLabelValues("verifier")), 0.001)

	m.RecordReset("verifier")
	assert.InDelta(t, 1, testutil.ToFloat64(
		m.ResetsTotal.WithLabelValues("verifier")), 0.001)

	m.RecordStreamRate("verifier", 8_000_000)
	assert.InDelta(t, 8_000_000, testutil.ToFloat64(
		m.StreamRate.WithLabelValues("verifier")), 0.001)

	m.RecordNATSStatus(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NATSConnected), 0.001)
	m.RecordNATSStatus(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.NATSConnected), 0.001)
}
