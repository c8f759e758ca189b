package seq

import (
	"log/slog"
	"time"
)

// DefaultMaxErr is the default number of drop events tolerated before the
// comparator halts.
const DefaultMaxErr = 10

// Phase is the comparator's tracking state. An explicit tag replaces the
// ambiguity of treating expected==0 as "no prior expectation": a stream
// that legitimately starts at 0 anchors once and never re-enters startup.
type Phase int

const (
	// PhaseUninitialized means no value has been observed yet.
	PhaseUninitialized Phase = iota
	// PhaseTracking means the comparator has an expectation window.
	PhaseTracking
	// PhaseTerminated means the drop threshold was exceeded; the
	// comparator performs no further classification.
	PhaseTerminated
)

// String returns a string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseTracking:
		return "tracking"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome classifies the result of a single Check call.
type Outcome int

const (
	// OutcomeOK means the value matched the expectation exactly.
	OutcomeOK Outcome = iota
	// OutcomeStart means this was the first observed value; the window
	// was anchored without classifying it as a drop or reset.
	OutcomeStart
	// OutcomeReset means the value regressed; the source restarted and
	// the window was re-anchored.
	OutcomeReset
	// OutcomeDrop means the value jumped ahead; the transport lost items.
	OutcomeDrop
	// OutcomeHalt means the cumulative drop count exceeded the threshold.
	// The comparator is terminated and the caller must stop processing.
	OutcomeHalt
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeStart:
		return "start"
	case OutcomeReset:
		return "reset"
	case OutcomeDrop:
		return "drop"
	case OutcomeHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Comparator is a stateful continuity checker. It compares each observed
// value against the next expected value, classifies the difference, and
// accumulates drop events toward a fatal threshold.
//
// Not safe for concurrent use; the caller feeds it one value at a time.
type Comparator struct {
	phase     Phase
	expected  uint64
	firstSeen uint64
	startTime time.Time
	seq       uint64 // total values checked, for telemetry correlation
	dropped   int
	maxErr    int
	logger    *slog.Logger
	now       func() time.Time
}

// ComparatorOption configures a Comparator.
type ComparatorOption func(*Comparator)

// WithComparatorLogger sets the classification logger.
func WithComparatorLogger(logger *slog.Logger) ComparatorOption {
	return func(c *Comparator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxErr sets the number of drop events tolerated before Check
// reports OutcomeHalt. Negative values halt on the first drop.
func WithMaxErr(n int) ComparatorOption {
	return func(c *Comparator) {
		c.maxErr = n
	}
}

// WithComparatorClock injects a clock, for deterministic tests.
func WithComparatorClock(now func() time.Time) ComparatorOption {
	return func(c *Comparator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewComparator creates a comparator in the uninitialized phase.
func NewComparator(opts ...ComparatorOption) *Comparator {
	c := &Comparator{
		maxErr: DefaultMaxErr,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// anchor re-anchors the continuity window at the given value. Rate()
// measures from here until the next anchor.
func (c *Comparator) anchor(start uint64) {
	c.firstSeen = start
	c.expected = start
	c.startTime = c.now()
}

// Check classifies one observed value and advances the expectation.
//
// The first value anchors the window (OutcomeStart). A regression is a
// reset: logged at warning severity, re-anchored, never counted as a
// drop. A jump ahead is a drop: logged at error severity with the gap
// size and counted once per event regardless of how many items the gap
// spans. An exact match is silent. In every case the next expectation
// becomes actual+1.
//
// Once the cumulative drop count exceeds the configured threshold, Check
// returns OutcomeHalt and the comparator stays terminated.
func (c *Comparator) Check(actual uint64) Outcome {
	if c.phase == PhaseTerminated {
		return OutcomeHalt
	}

	c.seq++
	outcome := OutcomeOK

	switch {
	case c.phase == PhaseUninitialized:
		c.anchor(actual)
		c.phase = PhaseTracking
		outcome = OutcomeStart

	case actual < c.expected:
		c.logger.Warn("sequence reset",
			"seq", c.seq,
			"expected", c.expected,
			"actual", actual)
		c.anchor(actual)
		outcome = OutcomeReset

	case actual > c.expected:
		c.logger.Error("sequence gap",
			"seq", c.seq,
			"dropped", actual-c.expected,
			"expected", c.expected,
			"actual", actual)
		c.dropped++
		outcome = OutcomeDrop
	}

	c.expected = actual + 1

	if c.dropped > c.maxErr {
		c.phase = PhaseTerminated
		return OutcomeHalt
	}

	return outcome
}

// Rate returns the observed throughput in items/second since the last
// anchor. Returns 0 when no time has elapsed, which is a real possibility
// immediately after re-anchoring.
func (c *Comparator) Rate() float64 {
	if c.phase == PhaseUninitialized {
		return 0
	}
	elapsed := c.now().Sub(c.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(c.expected-c.firstSeen) / elapsed
}

// Expected returns the next value the comparator expects to see.
func (c *Comparator) Expected() uint64 {
	return c.expected
}

// Dropped returns the cumulative count of drop events (one per gap,
// irrespective of gap size).
func (c *Comparator) Dropped() int {
	return c.dropped
}

// Seq returns the total number of values checked.
func (c *Comparator) Seq() uint64 {
	return c.seq
}

// Phase returns the comparator's current tracking phase.
func (c *Comparator) Phase() Phase {
	return c.phase
}
