// Package throttle paces vector emission to a target sample rate.
//
// The rate is expressed in elements per second, matching how the stream
// is provisioned; the limiter internally converts to vectors per second
// so one Wait call covers one vector. A rate of zero or below disables
// pacing entirely, which is the mode used for loss-threshold testing
// where the generator should outrun the consumer.
package throttle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/c360/seqcheck/errors"
)

// DefaultSampleRate is the default stream rate in elements per second.
const DefaultSampleRate = 8_000_000

// Throttle limits the rate at which vectors may be emitted.
type Throttle struct {
	limiter *rate.Limiter
	vlen    int
}

// New creates a throttle for the given sample rate (elements/second) and
// vector length. sampleRate <= 0 means unlimited.
func New(sampleRate float64, vlen int) (*Throttle, error) {
	if vlen < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("vlen %d out of range", vlen),
			"Throttle", "New", "vector length must be at least 1")
	}

	t := &Throttle{vlen: vlen}
	if sampleRate > 0 {
		vectorsPerSec := sampleRate / float64(vlen)
		// Burst of one second's worth of vectors keeps batch emission
		// smooth without letting the long-run rate creep.
		burst := int(vectorsPerSec)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(vectorsPerSec), burst)
	}
	return t, nil
}

// Wait blocks until n vectors may be emitted or the context is done.
func (t *Throttle) Wait(ctx context.Context, n int) error {
	if t.limiter == nil {
		return ctx.Err()
	}
	if n > t.limiter.Burst() {
		// WaitN rejects requests larger than the burst outright; pace
		// oversized batches in burst-sized slices instead.
		for n > 0 {
			chunk := t.limiter.Burst()
			if chunk > n {
				chunk = n
			}
			if err := t.limiter.WaitN(ctx, chunk); err != nil {
				return err
			}
			n -= chunk
		}
		return nil
	}
	return t.limiter.WaitN(ctx, n)
}

// Limited reports whether pacing is active.
func (t *Throttle) Limited() bool {
	return t.limiter != nil
}

// VectorsPerSecond returns the configured vector rate, or 0 when unlimited.
func (t *Throttle) VectorsPerSecond() float64 {
	if t.limiter == nil {
		return 0
	}
	return float64(t.limiter.Limit())
}
