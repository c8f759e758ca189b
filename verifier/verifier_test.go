package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seqcheck/testutil"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VLen = 4
	cfg.UpdateInterval = 0
	cfg.BatchSize = 64
	return cfg
}

func startVerifier(t *testing.T, cfg Config, messenger *testutil.MockMessenger) *Verifier {
	t.Helper()

	v, err := New(Deps{Config: cfg, Messenger: messenger})
	require.NoError(t, err)
	require.NoError(t, v.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, v.Start(ctx))
	return v
}

// waitReceived blocks until the verifier has consumed n vectors.
func waitReceived(t *testing.T, v *Verifier, n int64) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for v.vectorsReceived.Load() < n {
		select {
		case <-deadline:
			t.Fatalf("consumed %d of %d vectors", v.vectorsReceived.Load(), n)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"empty subject", func(c *Config) { c.Subject = "" }, true},
		{"zero vlen", func(c *Config) { c.VLen = 0 }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"zero buffer size", func(c *Config) { c.BufferSize = 0 }, true},
		{"unbounded hwm is valid", func(c *Config) { c.HWM = -1 }, false},
		{"zero max_err is valid", func(c *Config) { c.MaxErr = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifier_SubscribesWithConfiguredHWM(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	cfg.HWM = 4096

	v := startVerifier(t, cfg, messenger)
	defer func() { _ = v.Stop(5 * time.Second) }()

	assert.Equal(t, 4096, messenger.PendingLimit(cfg.Subject))
}

func TestVerifier_InOrderStreamIsClean(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	v := startVerifier(t, cfg, messenger)

	ctx := context.Background()
	for _, rec := range testutil.Records(0, 1000, cfg.VLen) {
		require.NoError(t, messenger.Publish(ctx, cfg.Subject, rec))
	}

	waitReceived(t, v, 1000)
	require.NoError(t, v.Stop(5*time.Second))

	assert.EqualValues(t, 1000, v.Expected())
	assert.Zero(t, v.Dropped())
	assert.Zero(t, v.corruptions.Load())

	select {
	case <-v.Halted():
		t.Fatal("clean stream must not halt")
	default:
	}
}

func TestVerifier_DetectsSingleMissingValue(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	v := startVerifier(t, cfg, messenger)

	ctx := context.Background()
	for i := uint64(0); i < 1000; i++ {
		if i == 500 {
			continue
		}
		require.NoError(t, messenger.Publish(ctx, cfg.Subject, testutil.Record(i, cfg.VLen)))
	}

	waitReceived(t, v, 999)
	require.NoError(t, v.Stop(5*time.Second))

	assert.Equal(t, 1, v.Dropped(), "one gap event, size 1")
	assert.EqualValues(t, 1000, v.Expected())
}

func TestVerifier_HaltsWhenThresholdExceeded(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	cfg.MaxErr = 2
	v := startVerifier(t, cfg, messenger)

	ctx := context.Background()
	// Three gaps: publish 0, then jump three times.
	for _, val := range []uint64{0, 10, 20, 30} {
		require.NoError(t, messenger.Publish(ctx, cfg.Subject, testutil.Record(val, cfg.VLen)))
	}

	select {
	case <-v.Halted():
	case <-time.After(5 * time.Second):
		t.Fatal("verifier did not halt")
	}

	assert.Equal(t, 3, v.Dropped())
	assert.False(t, v.Health().Healthy)
	require.NoError(t, v.Stop(5*time.Second))
}

func TestVerifier_ResetReanchorsWithoutDrop(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	v := startVerifier(t, cfg, messenger)

	ctx := context.Background()
	for _, rec := range testutil.Records(0, 100, cfg.VLen) {
		require.NoError(t, messenger.Publish(ctx, cfg.Subject, rec))
	}
	// Source restarted from 0.
	for _, rec := range testutil.Records(0, 50, cfg.VLen) {
		require.NoError(t, messenger.Publish(ctx, cfg.Subject, rec))
	}

	waitReceived(t, v, 150)
	require.NoError(t, v.Stop(5*time.Second))

	assert.Zero(t, v.Dropped())
	assert.EqualValues(t, 50, v.Expected())
}

func TestVerifier_CorruptVectorIsNonFatal(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	v := startVerifier(t, cfg, messenger)

	ctx := context.Background()
	require.NoError(t, messenger.Publish(ctx, cfg.Subject, testutil.Record(0, cfg.VLen)))

	// Value 1 arrives with one flipped element.
	rec := testutil.Record(1, cfg.VLen)
	copy(rec[8:16], testutil.Record(9999, 1))
	require.NoError(t, messenger.Publish(ctx, cfg.Subject, rec))

	require.NoError(t, messenger.Publish(ctx, cfg.Subject, testutil.Record(2, cfg.VLen)))

	waitReceived(t, v, 3)
	require.NoError(t, v.Stop(5*time.Second))

	assert.EqualValues(t, 1, v.corruptions.Load())
	assert.Zero(t, v.Dropped(), "corruption is not a drop")
	assert.EqualValues(t, 3, v.Expected())
}

func TestVerifier_ShortRecordIsCorruption(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	v := startVerifier(t, cfg, messenger)

	ctx := context.Background()
	require.NoError(t, messenger.Publish(ctx, cfg.Subject, testutil.Record(0, cfg.VLen)))
	require.NoError(t, messenger.Publish(ctx, cfg.Subject, []byte{1, 2, 3}))
	require.NoError(t, messenger.Publish(ctx, cfg.Subject, testutil.Record(1, cfg.VLen)))

	waitReceived(t, v, 2)
	require.NoError(t, v.Stop(5*time.Second))

	assert.EqualValues(t, 1, v.corruptions.Load())
	assert.Zero(t, v.Dropped(), "a skipped record leaves continuity intact here")
	assert.EqualValues(t, 2, v.Expected())
}

func TestVerifier_StopWithoutStart(t *testing.T) {
	v, err := New(Deps{Config: testConfig(), Messenger: testutil.NewMockMessenger()})
	require.NoError(t, err)
	assert.NoError(t, v.Stop(time.Second))
}
