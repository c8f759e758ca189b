package seq

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/seqcheck/errors"
)

// DefaultUpdateInterval is the element count between telemetry log lines.
// At 8M elements/s this works out to a progress line every ~1.25 seconds.
const DefaultUpdateInterval = 10_000_000

// Generator produces an unbounded sequence of fixed-width uint64 vectors.
// Every element of a vector equals the counter value at the moment of
// emission; the counter advances by exactly 1 per vector and starts at 0.
//
// Generator is a pure source: Fill never blocks, never produces a partial
// batch, and has no failure modes. It is not safe for concurrent use; the
// scheduler serializes calls by construction.
type Generator struct {
	vlen           int
	counter        uint64
	updateInterval uint64
	startTime      time.Time
	rate           float64
	logger         *slog.Logger
	now            func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger sets the telemetry logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGeneratorUpdateInterval sets the element count between telemetry
// lines. Zero disables telemetry.
func WithGeneratorUpdateInterval(n uint64) GeneratorOption {
	return func(g *Generator) {
		g.updateInterval = n
	}
}

// WithGeneratorClock injects a clock, for deterministic tests.
func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a generator for vectors of vlen elements.
func NewGenerator(vlen int, opts ...GeneratorOption) (*Generator, error) {
	if vlen < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("vlen %d", vlen),
			"Generator", "NewGenerator", "vector length must be at least 1")
	}

	g := &Generator{
		vlen:           vlen,
		updateInterval: DefaultUpdateInterval,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.startTime = g.now()
	return g, nil
}

// Fill populates every slot of batch with the next vectors in sequence
// and returns len(batch). Slots shorter than vlen are reallocated; slots
// of exactly vlen are reused in place.
//
// The emission rate is recomputed once per call, not per slot, as the
// cumulative average since the generator was created. It is intentionally
// noisy at small elapsed times.
func (g *Generator) Fill(batch [][]uint64) int {
	for idx := range batch {
		if len(batch[idx]) != g.vlen {
			batch[idx] = make([]uint64, g.vlen)
		}
		v := batch[idx]
		for i := range v {
			v[i] = g.counter
		}

		g.counter++
		if g.updateInterval > 0 && (g.counter*uint64(g.vlen))%g.updateInterval == 0 {
			g.logger.Info("generator progress",
				"time", g.now().Format("15:04:05"),
				"counter", g.counter,
				"rate_per_sec", int64(g.rate))
		}
	}

	if elapsed := g.now().Sub(g.startTime).Seconds(); elapsed > 0 {
		g.rate = float64(g.counter) / elapsed
	}

	return len(batch)
}

// Counter returns the next value the generator will emit.
func (g *Generator) Counter() uint64 {
	return g.counter
}

// VLen returns the configured vector length.
func (g *Generator) VLen() int {
	return g.vlen
}

// Rate returns the cumulative average emission rate in vectors/second,
// as of the most recent Fill call.
func (g *Generator) Rate() float64 {
	return g.rate
}
