// Package config defines service configuration and its loader.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the leaderboard backend: memory, sqlite or postgres.
	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`
	SQLitePath  string `koanf:"sqlite_path"`
	DBMaxConns  int    `koanf:"db_max_conns"`
	// RequireStore makes startup fail when the backend cannot be opened.
	// Otherwise the server runs degraded and ranking calls return 503.
	RequireStore bool `koanf:"require_store"`
	SeedDemoData bool `koanf:"seed_demo_data"`

	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`
	MaxLeaderboardLimit     int `koanf:"max_leaderboard_limit"`
	SubmitTimeoutMS         int `koanf:"submit_timeout_ms"`

	// WriteQueueSize > 0 routes every write through a single writer goroutine.
	WriteQueueSize int `koanf:"write_queue_size"`

	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
	// TrustProxy keys rate limits by X-Forwarded-For instead of the peer address.
	TrustProxy bool   `koanf:"trust_proxy"`
	CORSOrigin string `koanf:"cors_origin"`

	StatsIntervalMS int `koanf:"stats_interval_ms"`
	PasswordCost    int `koanf:"password_cost"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":3000",
		Store:                   StoreSQLite,
		SQLitePath:              "scool.db",
		DBMaxConns:              10,
		SeedDemoData:            true,
		DefaultLeaderboardLimit: 20,
		MaxLeaderboardLimit:     100,
		SubmitTimeoutMS:         5000,
		RateLimitRPS:            10,
		RateLimitBurst:          20,
		CORSOrigin:              "*",
		StatsIntervalMS:         15000,
		PasswordCost:            10,
	}
}

// SubmitTimeout is SubmitTimeoutMS as a duration.
func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutMS) * time.Millisecond
}

// StatsInterval is StatsIntervalMS as a duration.
func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit < 1:
		return fmt.Errorf("%w: default_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < c.DefaultLeaderboardLimit:
		return fmt.Errorf("%w: max_leaderboard_limit must be >= default_leaderboard_limit", ErrInvalidConfig)
	case c.SubmitTimeoutMS < 1:
		return fmt.Errorf("%w: submit_timeout_ms must be positive", ErrInvalidConfig)
	case c.WriteQueueSize < 0:
		return fmt.Errorf("%w: write_queue_size must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	case c.StatsIntervalMS < 100:
		return fmt.Errorf("%w: stats_interval_ms must be at least 100", ErrInvalidConfig)
	case c.PasswordCost < 4 || c.PasswordCost > 31:
		return fmt.Errorf("%w: password_cost must be within 4..31", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Store) {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	}
	return nil
}
