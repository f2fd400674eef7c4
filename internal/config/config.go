// Package config loads pipeline configuration: data locations, per-source
// crawl settings, digest delivery, cleanup retention, and triage options.
// Values come from defaults, then an optional YAML file, then environment
// overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openonco/scout/internal/types"
)

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "SCOUT_CONFIG"

// SourceConfig controls one crawler.
type SourceConfig struct {
	Enabled bool `yaml:"enabled"`

	// RateLimit is the request budget in requests per second.
	RateLimit float64 `yaml:"rate_limit,omitempty"`

	// Cron schedules this source in daemon mode. Empty means manual only.
	Cron string `yaml:"cron,omitempty"`

	// LookbackDays bounds how far back the crawler searches.
	LookbackDays int `yaml:"lookback_days,omitempty"`

	// BaseURL overrides the source's API endpoint, mainly for testing.
	BaseURL string `yaml:"base_url,omitempty"`
}

// DigestConfig controls digest assembly and delivery.
type DigestConfig struct {
	Cron string   `yaml:"cron,omitempty"`
	From string   `yaml:"from,omitempty"`
	To   []string `yaml:"to,omitempty"`

	// MinNotify suppresses delivery below this many pending items.
	MinNotify int `yaml:"min_notify"`
}

// CleanupConfig controls queue retention.
type CleanupConfig struct {
	Cron       string `yaml:"cron,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// EnrichmentConfig controls the triage stage.
type EnrichmentConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Model         string `yaml:"model,omitempty"`
	MaxConcurrent int    `yaml:"max_concurrent,omitempty"`
}

// Config is the full pipeline configuration.
type Config struct {
	// DataDir holds the queue and health state files.
	DataDir string `yaml:"data_dir"`

	// ExportDir receives dated JSON exports and the SQLite archive.
	ExportDir string `yaml:"export_dir"`

	Sources    map[string]SourceConfig `yaml:"sources"`
	Digest     DigestConfig            `yaml:"digest"`
	Cleanup    CleanupConfig           `yaml:"cleanup"`
	Enrichment EnrichmentConfig        `yaml:"enrichment"`
}

// DefaultConfig returns the built-in configuration: every source enabled at
// a conservative rate, daily crawls staggered through the early morning,
// a morning digest, and 30-day retention.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "data",
		ExportDir: "exports",
		Sources: map[string]SourceConfig{
			string(types.SourceCoverageRegistry): {Enabled: true, RateLimit: 0.5, Cron: "0 5 * * *", LookbackDays: 30},
			string(types.SourceVendor):           {Enabled: true, RateLimit: 0.5, Cron: "15 5 * * *", LookbackDays: 30},
			string(types.SourcePayer):            {Enabled: true, RateLimit: 0.5, Cron: "30 5 * * *"},
			string(types.SourceLiterature):       {Enabled: true, RateLimit: 2.5, Cron: "45 5 * * *", LookbackDays: 30},
			string(types.SourcePreprint):         {Enabled: true, RateLimit: 1, Cron: "0 6 * * *", LookbackDays: 14},
			string(types.SourceDeviceApproval):   {Enabled: true, RateLimit: 1, Cron: "15 6 * * *", LookbackDays: 30},
		},
		Digest: DigestConfig{
			Cron:      "0 7 * * *",
			MinNotify: 1,
		},
		Cleanup: CleanupConfig{
			Cron:       "0 3 * * 0",
			MaxAgeDays: 30,
		},
		Enrichment: EnrichmentConfig{
			Enabled:       true,
			MaxConcurrent: 3,
		},
	}
}

// Load reads configuration from path, merged over defaults. An empty path
// falls back to $SCOUT_CONFIG, then to no file at all. Environment overrides
// apply last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment overrides:
//   - SCOUT_DATA_DIR: overrides data_dir
//   - SCOUT_NOTIFY_EMAIL: comma-separated digest recipients, replacing digest.to
//   - SCOUT_DIGEST_FROM: overrides digest.from
//   - SCOUT_MIN_NOTIFY: overrides digest.min_notify
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCOUT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SCOUT_NOTIFY_EMAIL"); v != "" {
		var to []string
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				to = append(to, addr)
			}
		}
		cfg.Digest.To = to
	}
	if v := os.Getenv("SCOUT_DIGEST_FROM"); v != "" {
		cfg.Digest.From = v
	}
	if v := os.Getenv("SCOUT_MIN_NOTIFY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Digest.MinNotify = n
		}
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	for name, src := range c.Sources {
		if !types.ValidSource(types.Source(name)) {
			return fmt.Errorf("unknown source %q in sources", name)
		}
		if src.RateLimit < 0 {
			return fmt.Errorf("source %s: rate_limit cannot be negative (got %g)", name, src.RateLimit)
		}
		if src.LookbackDays < 0 {
			return fmt.Errorf("source %s: lookback_days cannot be negative (got %d)", name, src.LookbackDays)
		}
	}

	if c.Digest.MinNotify < 0 {
		return fmt.Errorf("digest.min_notify cannot be negative (got %d)", c.Digest.MinNotify)
	}
	if c.Cleanup.MaxAgeDays < 1 || c.Cleanup.MaxAgeDays > 365 {
		return fmt.Errorf("cleanup.max_age_days must be between 1 and 365 (got %d)", c.Cleanup.MaxAgeDays)
	}
	if c.Enrichment.MaxConcurrent < 0 {
		return fmt.Errorf("enrichment.max_concurrent cannot be negative (got %d)", c.Enrichment.MaxConcurrent)
	}

	return nil
}

// Source returns the config block for a source, falling back to a disabled
// zero value when the block is absent.
func (c *Config) Source(s types.Source) SourceConfig {
	return c.Sources[string(s)]
}

// DiscoveriesPath is the queue state file.
func (c *Config) DiscoveriesPath() string {
	return filepath.Join(c.DataDir, "discoveries.json")
}

// HealthPath is the crawl health state file.
func (c *Config) HealthPath() string {
	return filepath.Join(c.DataDir, "health.json")
}
