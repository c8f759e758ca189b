// Package engine provides the synchronous batch scheduler that drives
// stream components.
//
// A Source fills batches of vectors; a Sink consumes them. The Runner
// owns the batch buffer and the loop: components only implement the
// callback and never block inside it, so cancellation and pacing live in
// one place. This replaces a general-purpose dataflow scheduler with the
// two shapes the harness actually needs, a produce loop and a consume
// loop.
package engine

import (
	"context"
	"fmt"

	"github.com/c360/seqcheck/errors"
)

// Source fills every slot of batch with the next vectors in the stream
// and returns the number of vectors produced. Slots may be reused across
// calls; a Source must fill all of them.
type Source interface {
	Fill(batch [][]uint64) int
}

// Sink consumes every vector in batch, in order, and returns the number
// consumed. Returning fewer than len(batch) stops the loop: the sink has
// terminated the stream.
type Sink interface {
	Consume(batch [][]uint64) int
}

// Emit sends one encoded batch downstream. The generator side wires this
// to the transport publish.
type Emit func(ctx context.Context, batch [][]uint64) error

// Fetch retrieves the next batch of vectors, blocking until data is
// available or the context is done. A nil batch with nil error means the
// upstream closed cleanly.
type Fetch func(ctx context.Context) ([][]uint64, error)

// Runner drives a Source or Sink until the context is cancelled.
type Runner struct {
	batchSize int
}

// NewRunner creates a runner producing batches of the given size.
func NewRunner(batchSize int) (*Runner, error) {
	if batchSize < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("batch size %d out of range", batchSize),
			"Runner", "NewRunner", "batch size must be at least 1")
	}
	return &Runner{batchSize: batchSize}, nil
}

// BatchSize returns the configured batch size.
func (r *Runner) BatchSize() int {
	return r.batchSize
}

// RunProducer loops filling batches from src and handing them to emit
// until the context is cancelled or emit fails with a non-transient
// error. The batch slots are reused across iterations; emit must finish
// with the data before returning.
func (r *Runner) RunProducer(ctx context.Context, src Source, emit Emit) error {
	batch := make([][]uint64, r.batchSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := src.Fill(batch)
		if n == 0 {
			continue
		}

		if err := emit(ctx, batch[:n]); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.IsTransient(err) {
				return err
			}
			// Transient emit failures were already retried below this
			// layer; the vectors are gone and show up as a gap downstream.
		}
	}
}

// RunConsumer loops fetching batches and feeding them to sink until the
// context is cancelled, the fetch reports a closed upstream, or the sink
// stops consuming (it has terminated the stream).
func (r *Runner) RunConsumer(ctx context.Context, fetch Fetch, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if batch == nil {
			return nil
		}
		if len(batch) == 0 {
			continue
		}

		if consumed := sink.Consume(batch); consumed < len(batch) {
			return nil
		}
	}
}
