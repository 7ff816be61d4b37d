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

const sessionColumns = `id, identity_id, session_date, opened_at, closed_at`

// OpenSession inserts session as an open attendance session.
func (db *DB) OpenSession(ctx context.Context, session *models.AttendanceSession) (err error) {
	start := time.Now()
	defer func() { record("insert", "attendance_sessions", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var closedAt any
	if session.ClosedAt != nil {
		closedAt = session.ClosedAt.UTC()
	}
	// session_date is the calendar date in the configured zone, bound as
	// text so the driver does not shift it through UTC.
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO attendance_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.IdentityID, session.SessionDate.Format(time.DateOnly), session.OpenedAt.UTC(), closedAt)
	if err != nil {
		return fmt.Errorf("open attendance session: %w", err)
	}
	return nil
}

// FindOpenSession returns the most recently opened open session or
// storage.ErrNoOpenSession.
func (db *DB) FindOpenSession(ctx context.Context, identityID string) (session *models.AttendanceSession, err error) {
	start := time.Now()
	defer func() { record("find_open", "attendance_sessions", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE identity_id = ? AND closed_at IS NULL
		ORDER BY opened_at DESC
		LIMIT 1`, identityID)

	var s models.AttendanceSession
	if err = scanSession(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoOpenSession
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return &s, nil
}

// CloseOpenSession stamps closed_at on the most recently opened open session
// that was opened at or before at.
func (db *DB) CloseOpenSession(ctx context.Context, identityID string, at time.Time) (session *models.AttendanceSession, err error) {
	start := time.Now()
	defer func() { record("close", "attendance_sessions", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	at = at.UTC()
	row := db.conn.QueryRowContext(ctx,
		`UPDATE attendance_sessions SET closed_at = ?
		WHERE id = (
			SELECT id FROM attendance_sessions
			WHERE identity_id = ? AND closed_at IS NULL AND opened_at <= ?
			ORDER BY opened_at DESC
			LIMIT 1
		)
		RETURNING `+sessionColumns,
		at, identityID, at)

	var s models.AttendanceSession
	if err = scanSession(row, &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoOpenSession
		}
		return nil, fmt.Errorf("close open session: %w", err)
	}
	return &s, nil
}

// ListSessions returns every session for identityID, newest first.
func (db *DB) ListSessions(ctx context.Context, identityID string) (sessions []models.AttendanceSession, err error) {
	start := time.Now()
	defer func() { record("list", "attendance_sessions", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE identity_id = ?
		ORDER BY opened_at DESC`, identityID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	return collectSessions(rows)
}

// SessionsBetween returns sessions opened in [from, to), oldest first.
func (db *DB) SessionsBetween(ctx context.Context, from, to time.Time) (sessions []models.AttendanceSession, err error) {
	start := time.Now()
	defer func() { record("range", "attendance_sessions", start, err) }()

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE opened_at >= ? AND opened_at < ?
		ORDER BY opened_at`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("sessions between: %w", err)
	}
	defer closeWithLog(rows, "rows")

	return collectSessions(rows)
}

func scanSession(row rowScanner, s *models.AttendanceSession) error {
	var closedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.IdentityID, &s.SessionDate, &s.OpenedAt, &closedAt); err != nil {
		return err
	}
	s.OpenedAt = s.OpenedAt.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		s.ClosedAt = &t
	}
	return nil
}

func collectSessions(rows *sql.Rows) ([]models.AttendanceSession, error) {
	var out []models.AttendanceSession
	for rows.Next() {
		var s models.AttendanceSession
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}
