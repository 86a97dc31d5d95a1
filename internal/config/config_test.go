// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	return cfg
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("default configuration invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Upstream.Endpoint = "" },
			wantErr: "UPSTREAM_ENDPOINT",
		},
		{
			name:    "non-http endpoint",
			mutate:  func(c *Config) { c.Upstream.Endpoint = "ftp://example.com/search" },
			wantErr: "http or https",
		},
		{
			name:    "endpoint without host",
			mutate:  func(c *Config) { c.Upstream.Endpoint = "http://" },
			wantErr: "missing a host",
		},
		{
			name:    "page size too small",
			mutate:  func(c *Config) { c.Upstream.PageSize = 0 },
			wantErr: "UPSTREAM_PAGE_SIZE",
		},
		{
			name:    "page size too large",
			mutate:  func(c *Config) { c.Upstream.PageSize = 1001 },
			wantErr: "UPSTREAM_PAGE_SIZE",
		},
		{
			name: "sleep max below min",
			mutate: func(c *Config) {
				c.Upstream.SleepMin = 5 * time.Second
				c.Upstream.SleepMax = 2 * time.Second
			},
			wantErr: "UPSTREAM_SLEEP_MAX",
		},
		{
			name:    "negative sleep",
			mutate:  func(c *Config) { c.Upstream.SleepMin = -time.Second },
			wantErr: "sleep bounds",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Upstream.RetryAttempts = 0 },
			wantErr: "UPSTREAM_RETRY_ATTEMPTS",
		},
		{
			name:    "max pages zero",
			mutate:  func(c *Config) { c.Sync.MaxPages = 0 },
			wantErr: "SYNC_MAX_PAGES",
		},
		{
			name:    "max pages above ceiling",
			mutate:  func(c *Config) { c.Sync.MaxPages = 101 },
			wantErr: "SYNC_MAX_PAGES",
		},
		{
			name:    "retention too short",
			mutate:  func(c *Config) { c.Sync.RetentionDays = 0 },
			wantErr: "SYNC_RETENTION_DAYS",
		},
		{
			name:    "run timeout zero",
			mutate:  func(c *Config) { c.Sync.RunTimeout = 0 },
			wantErr: "SYNC_RUN_TIMEOUT",
		},
		{
			name:    "missing duckdb path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "DUCKDB_PATH",
		},
		{
			name:    "missing snapshot path",
			mutate:  func(c *Config) { c.Database.SnapshotPath = "" },
			wantErr: "SNAPSHOT_PATH",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "LOG_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAcceptsEqualSleepBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.SleepMin = 3 * time.Second
	cfg.Upstream.SleepMax = 3 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error for equal sleep bounds: %v", err)
	}
}
