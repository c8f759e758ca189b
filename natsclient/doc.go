// Package natsclient provides a client for managing NATS connections with
// circuit breaker pattern.
//
// The client wraps a single core NATS connection and adds connection
// lifecycle management on top: exponential-backoff circuit breaking on
// repeated connect failures, periodic health monitoring, reconnect and
// health-change callbacks, and optional Prometheus instrumentation of
// connection state.
//
// Subscriptions come in two flavors. Subscribe is the plain form.
// SubscribeWithLimits additionally caps the subscription's pending
// message queue, which is how the consumer side bounds its backlog on a
// fast stream: once the cap is reached NATS sheds the oldest undelivered
// messages and the loss shows up downstream as a sequence gap rather
// than unbounded memory growth.
package natsclient
