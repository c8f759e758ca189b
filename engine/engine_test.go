package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seqcheck/errors"
)

type countingSource struct {
	next uint64
}

func (s *countingSource) Fill(batch [][]uint64) int {
	for i := range batch {
		batch[i] = []uint64{s.next}
		s.next++
	}
	return len(batch)
}

type collectingSink struct {
	got      []uint64
	stopAt   int // stop consuming after this many vectors; 0 = never
	consumed int
}

func (s *collectingSink) Consume(batch [][]uint64) int {
	for i, vec := range batch {
		if s.stopAt > 0 && s.consumed >= s.stopAt {
			return i
		}
		s.got = append(s.got, vec[0])
		s.consumed++
	}
	return len(batch)
}

func TestNewRunner_RejectsBadBatchSize(t *testing.T) {
	_, err := NewRunner(0)
	assert.Error(t, err)

	r, err := NewRunner(16)
	require.NoError(t, err)
	assert.Equal(t, 16, r.BatchSize())
}

func TestRunProducer_EmitsUntilCancelled(t *testing.T) {
	r, err := NewRunner(8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	var emitted []uint64
	emit := func(_ context.Context, batch [][]uint64) error {
		for _, vec := range batch {
			emitted = append(emitted, vec[0])
		}
		if len(emitted) >= 64 {
			cancel()
		}
		return nil
	}

	err = r.RunProducer(ctx, &countingSource{}, emit)
	assert.ErrorIs(t, err, context.Canceled)

	require.GreaterOrEqual(t, len(emitted), 64)
	for i, v := range emitted {
		assert.Equal(t, uint64(i), v)
	}
}

func TestRunProducer_StopsOnFatalEmit(t *testing.T) {
	r, err := NewRunner(4)
	require.NoError(t, err)

	fatal := errors.WrapFatal(fmt.Errorf("broken pipe"), "test", "emit", "publish")
	emit := func(context.Context, [][]uint64) error { return fatal }

	err = r.RunProducer(context.Background(), &countingSource{}, emit)
	assert.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestRunProducer_ContinuesPastTransientEmit(t *testing.T) {
	r, err := NewRunner(4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	emit := func(context.Context, [][]uint64) error {
		calls++
		if calls >= 3 {
			cancel()
		}
		return errors.WrapTransient(fmt.Errorf("timeout"), "test", "emit", "publish")
	}

	err = r.RunProducer(ctx, &countingSource{}, emit)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, calls, 3, "transient failures must not stop the loop")
}

func TestRunConsumer_FeedsSinkInOrder(t *testing.T) {
	r, err := NewRunner(4)
	require.NoError(t, err)

	batches := [][][]uint64{
		{{0}, {1}, {2}},
		{{3}, {4}},
	}
	i := 0
	fetch := func(context.Context) ([][]uint64, error) {
		if i >= len(batches) {
			return nil, nil // upstream closed
		}
		b := batches[i]
		i++
		return b, nil
	}

	sink := &collectingSink{}
	err = r.RunConsumer(context.Background(), fetch, sink)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, sink.got)
}

func TestRunConsumer_StopsWhenSinkTerminates(t *testing.T) {
	r, err := NewRunner(4)
	require.NoError(t, err)

	fetch := func(context.Context) ([][]uint64, error) {
		return [][]uint64{{1}, {2}, {3}}, nil
	}

	sink := &collectingSink{stopAt: 4}
	err = r.RunConsumer(context.Background(), fetch, sink)
	require.NoError(t, err)
	assert.Equal(t, 4, sink.consumed)
}

func TestRunConsumer_HonorsCancellation(t *testing.T) {
	r, err := NewRunner(4)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	fetch := func(ctx context.Context) ([][]uint64, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	done := make(chan error, 1)
	go func() { done <- r.RunConsumer(ctx, fetch, &collectingSink{}) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunConsumer did not return after cancellation")
	}
}
