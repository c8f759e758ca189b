package generator

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/seqcheck/testutil"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VLen = 4
	cfg.SampleRate = 0 // unthrottled, tests bound by count not time
	cfg.BatchSize = 32
	cfg.UpdateInterval = 0
	return cfg
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
		{"negative vlen", func(c *Config) { c.VLen = -1 }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"unthrottled rate is valid", func(c *Config) { c.SampleRate = 0 }, false},
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

func TestNew_RequiresMessenger(t *testing.T) {
	_, err := New(Deps{Config: testConfig()})
	assert.Error(t, err)
}

func TestGenerator_Meta(t *testing.T) {
	g, err := New(Deps{
		Name:      "seqgen",
		Config:    testConfig(),
		Messenger: testutil.NewMockMessenger(),
	})
	require.NoError(t, err)

	meta := g.Meta()
	assert.Equal(t, "seqgen", meta.Name)
	assert.Equal(t, "source", meta.Type)
}

func TestGenerator_PublishesSequencedRecords(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()

	g, err := New(Deps{Config: cfg, Messenger: messenger})
	require.NoError(t, err)
	require.NoError(t, g.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, g.Start(ctx))

	// Wait for a healthy chunk of stream to accumulate.
	deadline := time.After(5 * time.Second)
	for messenger.MessageCount(cfg.Subject) < 500 {
		select {
		case <-deadline:
			t.Fatalf("only %d records published", messenger.MessageCount(cfg.Subject))
		case <-time.After(time.Millisecond):
		}
	}

	require.NoError(t, g.Stop(5*time.Second))

	records := messenger.GetMessages(cfg.Subject)
	require.GreaterOrEqual(t, len(records), 500)

	for i, rec := range records {
		require.Len(t, rec, cfg.VLen*8, "record %d has wrong size", i)
		want := uint64(i)
		for j := 0; j < cfg.VLen; j++ {
			got := binary.NativeEndian.Uint64(rec[j*8:])
			require.Equal(t, want, got, "record %d element %d", i, j)
		}
	}

	assert.EqualValues(t, len(records), g.Counter())
}

func TestGenerator_StartIsIdempotent(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	g, err := New(Deps{Config: testConfig(), Messenger: messenger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, g.Start(ctx))
	require.NoError(t, g.Start(ctx), "second start is a no-op")
	require.NoError(t, g.Stop(5*time.Second))
}

func TestGenerator_StopWithoutStart(t *testing.T) {
	g, err := New(Deps{Config: testConfig(), Messenger: testutil.NewMockMessenger()})
	require.NoError(t, err)
	assert.NoError(t, g.Stop(time.Second))
}

func TestGenerator_HealthAndDataFlow(t *testing.T) {
	messenger := testutil.NewMockMessenger()
	cfg := testConfig()
	g, err := New(Deps{Config: cfg, Messenger: messenger})
	require.NoError(t, err)

	assert.False(t, g.Health().Healthy, "not healthy before start")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, g.Start(ctx))

	deadline := time.After(5 * time.Second)
	for messenger.MessageCount(cfg.Subject) == 0 {
		select {
		case <-deadline:
			t.Fatal("no records published")
		case <-time.After(time.Millisecond):
		}
	}

	assert.True(t, g.Health().Healthy)

	require.NoError(t, g.Stop(5*time.Second))

	flow := g.DataFlow()
	assert.Greater(t, flow.VectorsPerSecond, 0.0)
	assert.Greater(t, flow.BytesPerSecond, 0.0)
	assert.Zero(t, flow.ErrorRate)
	assert.False(t, flow.LastActivity.IsZero())
}
