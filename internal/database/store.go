// Baseline - Tennis Tournament Discovery and Mapping
// Copyright 2026 J. Swann (jswann)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jswann/baseline

/*
store.go - Dataset Load, Merge, Prune, and Atomic Persistence

The store operations split into two groups:

Pure functions (no IO, trivially testable):
  - MergeUpsert: wholesale replace-by-id merge of a fetched batch into the
    current dataset. A record absent from the batch is retained unchanged;
    only the prune step ever deletes.
  - Prune: retention-window removal keyed on the tournament start date.
    Idempotent: pruning an already-pruned dataset removes nothing.

IO operations (DuckDB + Parquet):
  - Load: read the full snapshot into an id-keyed map (empty on first run).
  - Persist: stage the dataset into DuckDB, COPY it out as the full and slim
    Parquet snapshots, and atomically rename each into place. A failure at
    any stage leaves the previous snapshots untouched.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/jswann/baseline/internal/logging"
	"github.com/jswann/baseline/internal/metrics"
	"github.com/jswann/baseline/internal/models"
)

// PersistError marks a failure while writing the snapshots. The previous
// snapshots remain authoritative whenever this error is returned.
type PersistError struct {
	Stage string // "stage", "copy-full", "copy-slim", "swap-full", "swap-slim"
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist failed at %s: %v", e.Stage, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// MergeStats reports what a merge changed.
type MergeStats struct {
	Added   int
	Updated int
}

// MergeUpsert merges an incoming batch into the existing dataset. Each
// incoming tournament wholesale-replaces the entry under its id, or is
// inserted if new; existing entries absent from the batch are retained
// unchanged. The input map is not modified.
//
// A refetched record identical to the stored one (ignoring LastUpdated) is
// kept as-is and not counted as updated, so repeated runs against an
// unchanged upstream report zero changes.
func MergeUpsert(existing map[string]models.Tournament, incoming []models.Tournament) (map[string]models.Tournament, MergeStats) {
	merged := make(map[string]models.Tournament, len(existing)+len(incoming))
	for id, t := range existing {
		merged[id] = t
	}

	var stats MergeStats
	for _, t := range incoming {
		prev, ok := merged[t.ID]
		switch {
		case !ok:
			stats.Added++
		case prev.Equal(&t):
			continue
		default:
			stats.Updated++
		}
		merged[t.ID] = t
	}
	return merged, stats
}

// Prune removes tournaments whose start date is strictly older than
// asOf minus retentionDays. A start date exactly at the cutoff is retained.
// Records whose start date cannot be parsed are retained.
func Prune(m map[string]models.Tournament, asOf time.Time, retentionDays int) (map[string]models.Tournament, int) {
	cutoff := asOf.AddDate(0, 0, -retentionDays)

	pruned := make(map[string]models.Tournament, len(m))
	removed := 0
	for id, t := range m {
		start, ok := t.StartTime()
		if ok && start.Before(cutoff) {
			removed++
			continue
		}
		pruned[id] = t
	}
	return pruned, removed
}

// snapshotColumns is the column list of both the staging table and the full
// snapshot. The slim snapshot drops raw_payload and filters out cancelled
// tournaments.
const snapshotColumns = `id, name, location, latitude, longitude,
	start_date, end_date, start_ts, end_ts, time_zone,
	entries_close, registration_time_zone, categories, level, events,
	url, is_cancelled, raw_payload, last_updated`

const slimColumns = `id, name, location, latitude, longitude,
	start_date, end_date, start_ts, end_ts, time_zone,
	entries_close, categories, level, events, url, last_updated`

// Load reads the full snapshot into an id-keyed map. Returns an empty map if
// no snapshot exists yet (first-run case).
func (db *DB) Load(ctx context.Context) (map[string]models.Tournament, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, err := os.Stat(db.snapshotPath); os.IsNotExist(err) {
		logging.Debug().Str("path", db.snapshotPath).Msg("No snapshot yet, starting empty")
		return map[string]models.Tournament{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM read_parquet(?)", snapshotColumns)
	rows, err := db.conn.QueryContext(ctx, query, db.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", db.snapshotPath, err)
	}
	defer closeQuietly(rows)

	result := make(map[string]models.Tournament)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		result[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}

	return result, nil
}

// scanTournament reads one snapshot row back into the internal model.
func scanTournament(rows *sql.Rows) (models.Tournament, error) {
	var (
		t                     models.Tournament
		lat, lon              sql.NullFloat64
		endDate, timeZone     sql.NullString
		startTS, endTS        sql.NullTime
		entriesClose, regTZ   sql.NullString
		categoriesJS, level   sql.NullString
		eventsJS, url, rawStr sql.NullString
	)

	err := rows.Scan(&t.ID, &t.Name, &t.Location, &lat, &lon,
		&t.StartDate, &endDate, &startTS, &endTS, &timeZone,
		&entriesClose, &regTZ, &categoriesJS, &level, &eventsJS,
		&url, &t.IsCancelled, &rawStr, &t.LastUpdated)
	if err != nil {
		return t, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	if lat.Valid {
		t.Latitude = &lat.Float64
	}
	if lon.Valid {
		t.Longitude = &lon.Float64
	}
	t.EndDate = endDate.String
	t.TimeZone = timeZone.String
	t.RegistrationTimeZone = regTZ.String
	if entriesClose.Valid && entriesClose.String != "" {
		t.EntriesCloseDateTime = &entriesClose.String
	}
	if level.Valid && level.String != "" {
		t.Level = &level.String
	}
	if url.Valid && url.String != "" {
		t.URL = &url.String
	}
	if rawStr.Valid && rawStr.String != "" {
		t.RawPayload = json.RawMessage(rawStr.String)
	}
	if categoriesJS.Valid && categoriesJS.String != "" {
		if err := json.Unmarshal([]byte(categoriesJS.String), &t.Categories); err != nil {
			return t, fmt.Errorf("failed to decode categories for %s: %w", t.ID, err)
		}
	}
	if eventsJS.Valid && eventsJS.String != "" {
		if err := json.Unmarshal([]byte(eventsJS.String), &t.Events); err != nil {
			return t, fmt.Errorf("failed to decode events for %s: %w", t.ID, err)
		}
	}

	return t, nil
}

// Persist writes the dataset as the full and slim Parquet snapshots via
// atomic replace. Either both snapshots advance or, on error, the previous
// files remain readable and untouched.
func (db *DB) Persist(ctx context.Context, dataset map[string]models.Tournament) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.PersistDuration.Observe(time.Since(start).Seconds())
	}()

	if err := db.stageDataset(ctx, dataset); err != nil {
		return &PersistError{Stage: "stage", Err: err}
	}

	fullSelect := fmt.Sprintf("SELECT %s FROM staging_tournaments", snapshotColumns)
	if err := db.copyParquetAtomic(ctx, fullSelect, db.snapshotPath, "full"); err != nil {
		return err
	}

	slimSelect := fmt.Sprintf("SELECT %s FROM staging_tournaments WHERE NOT is_cancelled", slimColumns)
	if err := db.copyParquetAtomic(ctx, slimSelect, db.slimPath, "slim"); err != nil {
		return err
	}

	metrics.StoreTournaments.Set(float64(len(dataset)))
	logging.Info().
		Int("tournaments", len(dataset)).
		Str("snapshot", db.snapshotPath).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshots persisted")

	return nil
}

// stageDataset rebuilds the staging table from the in-memory dataset.
func (db *DB) stageDataset(ctx context.Context, dataset map[string]models.Tournament) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin staging transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createSQL := `CREATE OR REPLACE TABLE staging_tournaments (
		id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		location VARCHAR,
		latitude DOUBLE,
		longitude DOUBLE,
		start_date VARCHAR NOT NULL,
		end_date VARCHAR,
		start_ts TIMESTAMP,
		end_ts TIMESTAMP,
		time_zone VARCHAR,
		entries_close VARCHAR,
		registration_time_zone VARCHAR,
		categories VARCHAR,
		level VARCHAR,
		events VARCHAR,
		url VARCHAR,
		is_cancelled BOOLEAN NOT NULL,
		raw_payload VARCHAR,
		last_updated TIMESTAMP NOT NULL
	)`
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	insertSQL := fmt.Sprintf(`INSERT INTO staging_tournaments (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, snapshotColumns)
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare staging insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, t := range dataset {
		categoriesJS, err := json.Marshal(t.Categories)
		if err != nil {
			return fmt.Errorf("failed to encode categories for %s: %w", t.ID, err)
		}
		eventsJS, err := json.Marshal(t.Events)
		if err != nil {
			return fmt.Errorf("failed to encode events for %s: %w", t.ID, err)
		}

		var startTS, endTS any
		if ts, ok := t.StartTime(); ok {
			startTS = ts
		}
		if ts, ok := t.EndTime(); ok {
			endTS = ts
		}

		_, err = stmt.ExecContext(ctx,
			t.ID, t.Name, t.Location, nullableFloat(t.Latitude), nullableFloat(t.Longitude),
			t.StartDate, nullIfEmpty(t.EndDate), startTS, endTS, nullIfEmpty(t.TimeZone),
			nullableString(t.EntriesCloseDateTime), nullIfEmpty(t.RegistrationTimeZone),
			string(categoriesJS), nullableString(t.Level), string(eventsJS),
			nullableString(t.URL), t.IsCancelled, nullIfEmpty(string(t.RawPayload)), t.LastUpdated)
		if err != nil {
			return fmt.Errorf("failed to stage tournament %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit staging transaction: %w", err)
	}
	return nil
}

// copyParquetAtomic writes the SELECT result as Parquet to a temporary file
// next to dest and renames it into place. The rename is the atomicity
// boundary: readers see the old file until the new one is complete.
func (db *DB) copyParquetAtomic(ctx context.Context, selectSQL, dest, stage string) error {
	tmp := dest + ".tmp"
	_ = os.Remove(tmp) // stale leftover from a crashed run

	copySQL := fmt.Sprintf("COPY (%s) TO ? (FORMAT PARQUET, COMPRESSION 'ZSTD')", selectSQL)
	if _, err := db.conn.ExecContext(ctx, copySQL, tmp); err != nil {
		_ = os.Remove(tmp)
		return &PersistError{Stage: "copy-" + stage, Err: err}
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return &PersistError{Stage: "swap-" + stage, Err: err}
	}
	return nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
