package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openonco/scout/internal/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	// Every known source has a block and is enabled out of the box.
	for _, source := range types.AllSources() {
		src, ok := cfg.Sources[string(source)]
		require.True(t, ok, "missing source block for %s", source)
		assert.True(t, src.Enabled)
	}

	assert.Equal(t, 30, cfg.Cleanup.MaxAgeDays, "default retention is 30 days")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/scout
digest:
  from: scout@example.com
  to: [team@example.com]
  min_notify: 3
sources:
  vendor:
    enabled: false
  literature:
    enabled: true
    rate_limit: 3
    lookback_days: 14
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/scout", cfg.DataDir)
	assert.Equal(t, 3, cfg.Digest.MinNotify)
	assert.Equal(t, []string{"team@example.com"}, cfg.Digest.To)

	assert.False(t, cfg.Source(types.SourceVendor).Enabled)
	assert.Equal(t, 3.0, cfg.Source(types.SourceLiterature).RateLimit)
	assert.Equal(t, 14, cfg.Source(types.SourceLiterature).LookbackDays)

	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Cleanup.MaxAgeDays)
	assert.True(t, cfg.Enrichment.Enabled)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("SCOUT_DATA_DIR", "/tmp/scout-data")
	t.Setenv("SCOUT_NOTIFY_EMAIL", "a@example.com, b@example.com")
	t.Setenv("SCOUT_MIN_NOTIFY", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/scout-data", cfg.DataDir)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Digest.To)
	assert.Equal(t, 5, cfg.Digest.MinNotify)

	assert.Equal(t, filepath.Join("/tmp/scout-data", "discoveries.json"), cfg.DiscoveriesPath())
	assert.Equal(t, filepath.Join("/tmp/scout-data", "health.json"), cfg.HealthPath())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"unknown source", func(c *Config) { c.Sources["mystery"] = SourceConfig{Enabled: true} }},
		{"negative rate limit", func(c *Config) {
			c.Sources[string(types.SourceVendor)] = SourceConfig{Enabled: true, RateLimit: -1}
		}},
		{"negative min notify", func(c *Config) { c.Digest.MinNotify = -1 }},
		{"zero retention", func(c *Config) { c.Cleanup.MaxAgeDays = 0 }},
		{"oversized retention", func(c *Config) { c.Cleanup.MaxAgeDays = 9999 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
