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

	"github.com/tomtom215/waypoint/internal/storage"
)

// UpsertEmployee creates or renames a directory entry.
func (db *DB) UpsertEmployee(ctx context.Context, identityID, displayName string) (err error) {
	start := time.Now()
	defer func() { record("upsert", "employees", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO employees (id, display_name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at`,
		identityID, displayName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// LookupDisplayName implements storage.NameLookup.
func (db *DB) LookupDisplayName(ctx context.Context, identityID string) (name string, err error) {
	start := time.Now()
	defer func() { record("lookup", "employees", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `SELECT display_name FROM employees WHERE id = ?`, identityID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("lookup display name: %w", err)
	}
	return name, nil
}
