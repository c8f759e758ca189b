package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "seq.data", cfg.Generator.Subject)
	assert.Equal(t, "seq.data", cfg.Verifier.Subject)
	assert.Equal(t, -1, cfg.Verifier.HWM)
	assert.Equal(t, 10, cfg.Verifier.MaxErr)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty nats url", func(c *Config) { c.NATS.URL = "" }},
		{"bad generator vlen", func(c *Config) { c.Generator.VLen = 0 }},
		{"bad verifier subject", func(c *Config) { c.Verifier.Subject = "" }},
		{"metrics port out of range", func(c *Config) { c.Metrics.Port = 70000 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqcheck.json")
	content := `{
		"nats": {"url": "nats://broker:4222"},
		"generator": {"subject": "seq.data", "vlen": 16, "sample_rate": 1000000, "batch_size": 128},
		"verifier": {"subject": "seq.data", "vlen": 16, "hwm": 2048, "max_err": 3,
			"batch_size": 128, "buffer_size": 4096},
		"metrics": {"enabled": false}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, 16, cfg.Generator.VLen)
	assert.Equal(t, 2048, cfg.Verifier.HWM)
	assert.Equal(t, 3, cfg.Verifier.MaxErr)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load("/nonexistent/seqcheck.json")
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"generator": {"vlen": -1}}`), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
