// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package config loads and validates application configuration via Koanf v2
// with layered sources: built-in defaults, optional YAML file, environment
// variables (highest priority).
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Upstream UpstreamConfig `koanf:"upstream"`
	Sync     SyncConfig     `koanf:"sync"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// UpstreamConfig configures the tournament search API client.
type UpstreamConfig struct {
	// Endpoint is the unified-search query URL.
	Endpoint string `koanf:"endpoint"`

	// UserAgent sent with every request.
	UserAgent string `koanf:"user_agent"`

	// PageSize is the number of records requested per page.
	PageSize int `koanf:"page_size"`

	// SleepMin/SleepMax bound the randomized politeness delay between page
	// requests. The delay is part of the fetch contract, not an optimization;
	// tests may set both to zero.
	SleepMin time.Duration `koanf:"sleep_min"`
	SleepMax time.Duration `koanf:"sleep_max"`

	// RetryAttempts bounds retries of a transient page failure before it
	// escalates to a fatal error.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBaseDelay is the initial backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// Search origin and radius. The defaults cover the continental US.
	Latitude      float64 `koanf:"latitude"`
	Longitude     float64 `koanf:"longitude"`
	DistanceMiles int     `koanf:"distance_miles"`

	// DateRangeDays is how far ahead of now the search window extends.
	DateRangeDays int `koanf:"date_range_days"`
}

// SyncConfig configures the synchronization pipeline.
type SyncConfig struct {
	// Interval between periodic sync runs.
	Interval time.Duration `koanf:"interval"`

	// MaxPages is the hard ceiling on pages per run, guarding against a
	// misbehaving upstream paginating forever.
	MaxPages int `koanf:"max_pages"`

	// RetentionDays is the prune window: tournaments whose start date is
	// strictly older than now minus this many days are removed.
	RetentionDays int `koanf:"retention_days"`

	// RunTimeout is the wall-clock ceiling on a single run. A timed-out run
	// is treated like a fatal fetch error: nothing is persisted.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// RunOnStartup triggers an immediate sync when the service starts.
	RunOnStartup bool `koanf:"run_on_startup"`
}

// DatabaseConfig configures the DuckDB engine and snapshot paths.
type DatabaseConfig struct {
	// Path is the DuckDB scratch database used for staging and parquet IO.
	Path string `koanf:"path"`

	// SnapshotPath is the canonical full parquet snapshot. The slim snapshot
	// lives next to it with a "_slim" suffix.
	SnapshotPath string `koanf:"snapshot_path"`

	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// ServerConfig configures the HTTP query facade.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateUpstream() error {
	if c.Upstream.Endpoint == "" {
		return fmt.Errorf("UPSTREAM_ENDPOINT is required")
	}
	if err := validateHTTPURL(c.Upstream.Endpoint, "UPSTREAM_ENDPOINT"); err != nil {
		return err
	}
	if c.Upstream.PageSize < 1 || c.Upstream.PageSize > 1000 {
		return fmt.Errorf("UPSTREAM_PAGE_SIZE must be between 1 and 1000, got %d", c.Upstream.PageSize)
	}
	if c.Upstream.SleepMin < 0 || c.Upstream.SleepMax < 0 {
		return fmt.Errorf("sleep bounds must not be negative")
	}
	if c.Upstream.SleepMax < c.Upstream.SleepMin {
		return fmt.Errorf("UPSTREAM_SLEEP_MAX (%s) must not be less than UPSTREAM_SLEEP_MIN (%s)",
			c.Upstream.SleepMax, c.Upstream.SleepMin)
	}
	if c.Upstream.RetryAttempts < 1 {
		return fmt.Errorf("UPSTREAM_RETRY_ATTEMPTS must be at least 1, got %d", c.Upstream.RetryAttempts)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MaxPages < 1 || c.Sync.MaxPages > 100 {
		return fmt.Errorf("SYNC_MAX_PAGES must be between 1 and 100, got %d", c.Sync.MaxPages)
	}
	if c.Sync.RetentionDays < 1 {
		return fmt.Errorf("SYNC_RETENTION_DAYS must be at least 1, got %d", c.Sync.RetentionDays)
	}
	if c.Sync.RunTimeout <= 0 {
		return fmt.Errorf("SYNC_RUN_TIMEOUT must be positive, got %s", c.Sync.RunTimeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.SnapshotPath == "" {
		return fmt.Errorf("SNAPSHOT_PATH is required")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks the value parses as an absolute http(s) URL.
func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
