// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package storage declares the collaborators the real-time core consumes:
// the persisted store for samples and attendance sessions, the employee
// directory used for display names, and the credential verifier.
//
// Implementations live in internal/database (DuckDB) and
// internal/storage/memory. BreakerStore wraps any Store with a circuit
// breaker so an unavailable database fails fast instead of stalling
// connection goroutines.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/waypoint/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoOpenSession is returned by CloseOpenSession and FindOpenSession
	// when the identity has no open attendance session.
	ErrNoOpenSession = errors.New("no open attendance session")

	// ErrUnavailable is returned while the store circuit breaker is open.
	ErrUnavailable = errors.New("store unavailable")
)

// Store persists location samples and attendance sessions.
//
// InsertLocationSample is idempotent by sample ID. CloseOpenSession closes
// the most recently opened session that is still open and was opened at or
// before at, so a replayed close can never close a session opened later.
type Store interface {
	InsertLocationSample(ctx context.Context, sample *models.LocationSample) error
	LatestSample(ctx context.Context, identityID string) (*models.LocationSample, error)
	LatestSamples(ctx context.Context) ([]models.LocationSample, error)
	ListSamples(ctx context.Context, identityID string, limit int) ([]models.LocationSample, error)

	OpenSession(ctx context.Context, session *models.AttendanceSession) error
	FindOpenSession(ctx context.Context, identityID string) (*models.AttendanceSession, error)
	CloseOpenSession(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error)
	ListSessions(ctx context.Context, identityID string) ([]models.AttendanceSession, error)
	SessionsBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceSession, error)

	Ping(ctx context.Context) error
}

// NameLookup resolves an identity to a human-readable name.
// It returns ErrNotFound for unknown identities.
type NameLookup interface {
	LookupDisplayName(ctx context.Context, identityID string) (string, error)
}

// Verifier turns a presented credential into a verified identity.
type Verifier interface {
	VerifyCredential(token string) (models.Identity, error)
}
