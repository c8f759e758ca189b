// Package seq contains the core semantics of the harness: a monotonic
// vector generator and a continuity comparator.
//
// The Generator produces fixed-width uint64 vectors whose elements all
// equal a strictly increasing counter, so that the stream carries its own
// ground truth. The Comparator consumes the scalar value recovered from
// each delivered vector and classifies it against the next expected value:
//
//	actual == expected  exact match, silent
//	actual <  expected  reset: the source restarted; re-anchor the window
//	actual >  expected  drop: the transport lost actual-expected items
//
// Drops accumulate toward a configurable threshold. Once the threshold is
// exceeded the comparator transitions to a terminal state and reports
// OutcomeHalt on every subsequent call; it is the caller's job to stop
// feeding it and shut down.
//
// Both types are plain state structs with injected loggers and clocks.
// Neither blocks, starts goroutines, or touches global state, so they can
// be driven by any scheduler one batch at a time.
package seq
