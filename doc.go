// Package seqcheck provides a harness for validating the integrity of a
// high-rate streaming data path.
//
// Two independent processes communicate through NATS pub/sub:
//
//   - seqgen emits an unbounded sequence of fixed-width uint64 vectors.
//     Every element of a vector equals a strictly increasing counter, so
//     the stream carries its own ground truth.
//   - seqsink consumes the stream, checks that each vector is internally
//     homogeneous, and feeds the scalar value into a continuity state
//     machine that classifies it as expected, reset, or dropped.
//
// The harness does not guarantee delivery, retransmit, or reorder data.
// Its entire purpose is to measure how well the transport preserves a
// strictly in-order, gap-free stream at a configured rate.
//
// # Architecture
//
//	┌───────────┐   throttle   ┌──────────────┐   subscribe   ┌───────────┐
//	│ generator ├─────────────→│ NATS subject ├──────────────→│ verifier  │
//	│ (seqgen)  │   publish    │  (raw bytes) │     (hwm)     │ (seqsink) │
//	└───────────┘              └──────────────┘               └───────────┘
//
// Data flows as raw fixed-size binary records of vlen consecutive uint64
// values in native endianness, with no framing beyond the transport's own
// envelope. The wire package owns the codec; the seq package owns the
// generation and verification semantics; everything else is plumbing.
//
// # Packages
//
// Core:
//   - seq: monotonic vector generator and continuity comparator
//   - wire: fixed-size uint64 vector codec
//
// Data path:
//   - engine: synchronous batch scheduler driving sources and sinks
//   - throttle: rate limiting between generation and publication
//   - generator: publisher-side component (seq.Generator + NATS)
//   - verifier: subscriber-side component (seq.Comparator + NATS)
//
// Infrastructure:
//   - natsclient: NATS connection management with circuit breaker
//   - metric: Prometheus metrics registry and HTTP server
//   - component: component lifecycle and dependency injection
//   - config: configuration loading and validation
//   - errors: structured error classification
//   - pkg/buffer: bounded ring buffer for received records
//   - pkg/retry: exponential backoff for transient failures
//   - pkg/logging: shared slog setup for the two binaries
//
// # Failure semantics
//
// Vector corruption (internal mismatch) and sequence resets are logged
// and counted but never fatal. Gap events accumulate toward a configured
// threshold; once dropped_count exceeds max_err the verifier halts and
// the process exits with status 0. The breach surfaces as a closed
// channel rather than an abrupt exit so that tests and embedders can
// observe it.
package seqcheck
