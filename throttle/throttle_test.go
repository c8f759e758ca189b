package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadVLen(t *testing.T) {
	_, err := New(1000, 0)
	assert.Error(t, err)
}

func TestNew_UnlimitedWhenRateNonPositive(t *testing.T) {
	for _, r := range []float64{0, -1} {
		th, err := New(r, 4)
		require.NoError(t, err)
		assert.False(t, th.Limited())
		assert.Zero(t, th.VectorsPerSecond())
	}
}

func TestNew_ConvertsElementsToVectors(t *testing.T) {
	th, err := New(8_000_000, 16)
	require.NoError(t, err)

	assert.True(t, th.Limited())
	assert.InDelta(t, 500_000, th.VectorsPerSecond(), 0.001)
}

func TestWait_UnlimitedNeverBlocks(t *testing.T) {
	th, err := New(0, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, th.Wait(ctx, 1))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_RespectsCancellation(t *testing.T) {
	// 1 element/s with an exhausted burst: the second wait must block
	// until cancellation rather than complete.
	th, err := New(1, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, th.Wait(ctx, 1))

	done := make(chan error, 1)
	go func() { done <- th.Wait(ctx, 1) }()

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestWait_BatchLargerThanBurst(t *testing.T) {
	// Burst is max(1, rate/vlen) = 10 vectors; a batch of 25 must be
	// paced in slices, not rejected.
	th, err := New(10, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = th.Wait(ctx, 25)
	assert.NoError(t, err)
}
