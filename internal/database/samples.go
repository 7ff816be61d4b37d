// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

const sampleColumns = `id, identity_id, latitude, longitude, address, captured_at`

// InsertLocationSample appends a sample. Inserting an ID that already exists
// is a no-op, which makes retry-log replays safe.
func (db *DB) InsertLocationSample(ctx context.Context, sample *models.LocationSample) (err error) {
	start := time.Now()
	defer func() { record("insert", "location_samples", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO location_samples (`+sampleColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		sample.ID, sample.IdentityID, sample.Latitude, sample.Longitude, sample.Address, sample.CapturedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert location sample: %w", err)
	}
	return nil
}

// LatestSample returns the newest sample for identityID or storage.ErrNotFound.
func (db *DB) LatestSample(ctx context.Context, identityID string) (sample *models.LocationSample, err error) {
	start := time.Now()
	defer func() { record("latest", "location_samples", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sampleColumns+` FROM location_samples
		WHERE identity_id = ?
		ORDER BY captured_at DESC
		LIMIT 1`, identityID)

	var s models.LocationSample
	if err = scanSample(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("latest location sample: %w", err)
	}
	return &s, nil
}

// LatestSamples returns the newest sample per identity ordered by identity ID.
func (db *DB) LatestSamples(ctx context.Context) (samples []models.LocationSample, err error) {
	start := time.Now()
	defer func() { record("latest_all", "location_samples", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sampleColumns+` FROM location_samples
		QUALIFY row_number() OVER (PARTITION BY identity_id ORDER BY captured_at DESC) = 1
		ORDER BY identity_id`)
	if err != nil {
		return nil, fmt.Errorf("latest location samples: %w", err)
	}
	defer closeWithLog(rows, "rows")

	return collectSamples(rows)
}

// ListSamples returns up to limit samples for identityID, newest first.
// A limit of zero or less returns every sample.
func (db *DB) ListSamples(ctx context.Context, identityID string, limit int) (samples []models.LocationSample, err error) {
	start := time.Now()
	defer func() { record("list", "location_samples", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + sampleColumns + ` FROM location_samples
		WHERE identity_id = ?
		ORDER BY captured_at DESC`
	args := []any{identityID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list location samples: %w", err)
	}
	defer closeWithLog(rows, "rows")

	return collectSamples(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner, s *models.LocationSample) error {
	if err := row.Scan(&s.ID, &s.IdentityID, &s.Latitude, &s.Longitude, &s.Address, &s.CapturedAt); err != nil {
		return err
	}
	s.CapturedAt = s.CapturedAt.UTC()
	return nil
}

func collectSamples(rows *sql.Rows) ([]models.LocationSample, error) {
	var out []models.LocationSample
	for rows.Next() {
		var s models.LocationSample
		if err := scanSample(rows, &s); err != nil {
			return nil, fmt.Errorf("scan location sample: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location samples: %w", err)
	}
	return out, nil
}
