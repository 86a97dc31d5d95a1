// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

// Package database owns the durable tournament dataset.
//
// The canonical storage is a pair of Parquet snapshot files (full and slim
// projections), completely rewritten on every successful sync run via atomic
// replace: the new snapshot is written to a temporary path and renamed into
// place, so a concurrent reader only ever observes the prior or the new
// complete file, never a partial one.
//
// DuckDB is the columnar engine behind both directions: Persist stages rows
// into a table and COPYs them out as Parquet; Load and the query facade read
// the snapshots back through read_parquet.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/jswann/baseline/internal/config"
)

// defaultQueryTimeout bounds queries whose caller supplied no deadline.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection and provides dataset access methods.
type DB struct {
	conn         *sql.DB
	cfg          *config.DatabaseConfig
	snapshotPath string
	slimPath     string
}

// New opens the DuckDB engine and prepares the snapshot directory.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Parent directories must exist before DuckDB opens the database file or
	// the first snapshot rename. 0750 per gosec G301.
	for _, dir := range []string{filepath.Dir(cfg.Path), filepath.Dir(cfg.SnapshotPath)} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:         conn,
		cfg:          cfg,
		snapshotPath: cfg.SnapshotPath,
		slimPath:     SlimPath(cfg.SnapshotPath),
	}

	db.configureConnectionPool()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// SlimPath derives the slim snapshot path from the full snapshot path:
// tournaments.parquet -> tournaments_slim.parquet.
func SlimPath(snapshotPath string) string {
	if strings.HasSuffix(snapshotPath, ".parquet") {
		return strings.TrimSuffix(snapshotPath, ".parquet") + "_slim.parquet"
	}
	return snapshotPath + "_slim"
}

// SnapshotPath returns the canonical full snapshot path.
func (db *DB) SnapshotPath() string {
	return db.snapshotPath
}

// configureConnectionPool sets connection pool parameters.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// ensureContext attaches the default timeout when the caller supplied no
// deadline. The returned cancel must always be called.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// closeQuietly closes a resource ignoring errors; used on error paths where
// the original error is the one worth reporting.
func closeQuietly(c interface{ Close() error }) {
	_ = c.Close()
}
