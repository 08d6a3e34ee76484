// Package config defines service configuration and how it is loaded.
//
// Conventions:
//   - Keys are flat and lower-case so env vars map onto them directly.
//   - New returns defaults; Load layers a YAML file and the environment on top.
package config

import (
	"context"
	"fmt"
	"time"
)

// Allowed values for the driver settings.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	LockLocal = "local"
	LockRedis = "redis"

	GeneratorOpenAI   = "openai"
	GeneratorTemplate = "template"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the repository backend.
	StoreDriver string `koanf:"store_driver"`
	// StorePath is the SQLite database file.
	StorePath string `koanf:"store_path"`

	// LockDriver selects how deck generation is serialised per location.
	LockDriver string `koanf:"lock_driver"`
	RedisAddr  string `koanf:"redis_addr"`
	LockTTLMS  int    `koanf:"lock_ttl_ms"`

	// Engine knobs.
	CooldownDays       int   `koanf:"cooldown_days"`
	CrossLocationLimit int   `koanf:"cross_location_limit"`
	CoverageQuota      int   `koanf:"coverage_quota"`
	NoveltyQuota       int   `koanf:"novelty_quota"`
	DeckTarget         int   `koanf:"deck_target"`
	ScoringSeed        int64 `koanf:"scoring_seed"`

	// Generator settings. An openai backend without a key runs on templates.
	GeneratorBackend     string  `koanf:"generator_backend"`
	GeneratorBaseURL     string  `koanf:"generator_base_url"`
	GeneratorAPIKey      string  `koanf:"generator_api_key"`
	GeneratorModel       string  `koanf:"generator_model"`
	GeneratorTimeoutMS   int     `koanf:"generator_timeout_ms"`
	GeneratorTemperature float64 `koanf:"generator_temperature"`
	GeneratorMaxRetries  int     `koanf:"generator_max_retries"`

	// FeedbackDedupeSize bounds how many feedback request ids are remembered.
	FeedbackDedupeSize int `koanf:"feedback_dedupe_size"`

	// SeedLocations creates the default venues on an empty store.
	SeedLocations bool `koanf:"seed_locations"`
}

// New creates a Config populated with defaults. The context is reserved for
// future sources and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		StoreDriver:          StoreMemory,
		StorePath:            "data/entalk.db",
		LockDriver:           LockLocal,
		RedisAddr:            "localhost:6379",
		LockTTLMS:            30_000,
		CooldownDays:         28,
		CrossLocationLimit:   5,
		CoverageQuota:        7,
		NoveltyQuota:         3,
		DeckTarget:           15,
		GeneratorBackend:     GeneratorOpenAI,
		GeneratorBaseURL:     "https://api.openai.com/v1",
		GeneratorModel:       "gpt-3.5-turbo",
		GeneratorTimeoutMS:   4_000,
		GeneratorTemperature: 0.8,
		GeneratorMaxRetries:  3,
		FeedbackDedupeSize:   50_000,
		SeedLocations:        true,
	}
}

// Cooldown returns the recency window as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownDays) * 24 * time.Hour
}

// GeneratorTimeout returns the per-call generator deadline.
func (c *Config) GeneratorTimeout() time.Duration {
	return time.Duration(c.GeneratorTimeoutMS) * time.Millisecond
}

// LockTTL returns the Redis lock expiry.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreSQLite:
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == StoreSQLite && c.StorePath == "":
		return fmt.Errorf("%w: store_path is required for sqlite", ErrInvalidConfig)
	case c.LockDriver != LockLocal && c.LockDriver != LockRedis:
		return fmt.Errorf("%w: lock_driver %q", ErrInvalidConfig, c.LockDriver)
	case c.LockDriver == LockRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis lock", ErrInvalidConfig)
	case c.GeneratorBackend != GeneratorOpenAI && c.GeneratorBackend != GeneratorTemplate:
		return fmt.Errorf("%w: generator_backend %q", ErrInvalidConfig, c.GeneratorBackend)
	case c.CooldownDays < 0:
		return fmt.Errorf("%w: cooldown_days must not be negative", ErrInvalidConfig)
	case c.DeckTarget <= 0:
		return fmt.Errorf("%w: deck_target must be positive", ErrInvalidConfig)
	case c.CrossLocationLimit < 0 || c.CoverageQuota < 0 || c.NoveltyQuota < 0:
		return fmt.Errorf("%w: stage quotas must not be negative", ErrInvalidConfig)
	case c.GeneratorTimeoutMS <= 0:
		return fmt.Errorf("%w: generator_timeout_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
