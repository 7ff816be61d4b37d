// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the tables and indexes. Every statement is idempotent.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// Timestamps are stored as UTC TIMESTAMP values.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS location_samples (
			id TEXT PRIMARY KEY,
			identity_id TEXT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			captured_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendance_sessions (
			id TEXT PRIMARY KEY,
			identity_id TEXT NOT NULL,
			session_date DATE NOT NULL,
			opened_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_identity_time ON location_samples(identity_id, captured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_identity ON attendance_sessions(identity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_opened ON attendance_sessions(opened_at)`,
	}
}
