// Package metric provides Prometheus metrics collection and exposure for
// the harness.
//
// A MetricsRegistry owns a private Prometheus registry pre-populated with
// the core harness metrics (vector throughput, drop and reset counts,
// NATS connection state) plus the Go runtime collectors. Components
// register their own metrics through the MetricsRegistrar interface,
// namespaced by component name so two components cannot collide silently.
//
// Server exposes the registry over HTTP at /metrics in the standard
// Prometheus exposition format, with a /health endpoint alongside it.
package metric
