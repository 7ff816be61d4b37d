// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package attendance drives the per-identity work session state machine.
//
// Each identity is either Closed (no open session) or Open. Login moves
// Closed to Open; Logout and ReconcileOnDisconnect move Open to Closed
// through the same close operation. A second Login while a session is open
// is rejected as a benign no-op: the open session is returned together with
// ErrAlreadyOpen, so at most one open session per identity ever exists.
//
// Transitions for one identity are serialised by a keyed lock; different
// identities never contend.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

var (
	// ErrAlreadyOpen is returned by Login when the identity already has an
	// open session. The existing session is returned alongside it.
	ErrAlreadyOpen = errors.New("attendance session already open")

	// ErrNoOpenSession is returned by Logout when nothing is open.
	ErrNoOpenSession = storage.ErrNoOpenSession
)

// CloseSpooler durably records a close that could not be persisted so it
// can be replayed later.
type CloseSpooler interface {
	SpoolClose(ctx context.Context, identityID string, at time.Time) error
}

// Config configures a Machine.
type Config struct {
	// Location is the time zone used to derive SessionDate. Default: UTC.
	Location *time.Location
	// Spool receives reconcile closes that failed to persist. Optional.
	Spool CloseSpooler
}

// Machine is the attendance session state machine.
type Machine struct {
	store storage.Store
	spool CloseSpooler
	loc   *time.Location
	locks sync.Map // identityID -> *sync.Mutex
}

// NewMachine creates a Machine backed by store.
func NewMachine(store storage.Store, cfg Config) *Machine {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{store: store, spool: cfg.Spool, loc: loc}
}

func (m *Machine) acquire(identityID string) *sync.Mutex {
	muInterface, _ := m.locks.LoadOrStore(identityID, &sync.Mutex{})
	mu, ok := muInterface.(*sync.Mutex)
	if !ok {
		mu = &sync.Mutex{}
		m.locks.Store(identityID, mu)
	}
	mu.Lock()
	return mu
}

// SessionDate returns local midnight of at in the machine's time zone.
func (m *Machine) SessionDate(at time.Time) time.Time {
	y, mo, d := at.In(m.loc).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, m.loc)
}

// Login opens a session for identityID at the given time.
func (m *Machine) Login(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	mu := m.acquire(identityID)
	defer mu.Unlock()

	existing, err := m.store.FindOpenSession(ctx, identityID)
	switch {
	case err == nil:
		metrics.RecordSessionTransition("already_open")
		logging.Ctx(ctx).Debug().Str("identity_id", identityID).Str("session_id", existing.ID).Msg("login ignored, session already open")
		return existing, ErrAlreadyOpen
	case !errors.Is(err, storage.ErrNoOpenSession):
		return nil, fmt.Errorf("find open session: %w", err)
	}

	session := &models.AttendanceSession{
		ID:          uuid.New().String(),
		IdentityID:  identityID,
		SessionDate: m.SessionDate(at),
		OpenedAt:    at.UTC(),
	}
	if err := m.store.OpenSession(ctx, session); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	metrics.RecordSessionTransition("opened")
	logging.Ctx(ctx).Info().Str("identity_id", identityID).Str("session_id", session.ID).Time("opened_at", session.OpenedAt).Msg("attendance session opened")
	return session, nil
}

// Logout closes the open session for identityID. It returns ErrNoOpenSession
// when nothing is open.
func (m *Machine) Logout(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	session, err := m.close(ctx, identityID, at)
	if err != nil {
		if errors.Is(err, storage.ErrNoOpenSession) {
			metrics.RecordSessionTransition("no_open_session")
		}
		return nil, err
	}
	metrics.RecordSessionTransition("closed_logout")
	return session, nil
}

// ReconcileOnDisconnect closes the open session after a connection is lost.
// It never fails: a missing session is logged, and a persistence failure is
// spooled for replay. It returns the closed session, or nil.
func (m *Machine) ReconcileOnDisconnect(ctx context.Context, identityID string, at time.Time) *models.AttendanceSession {
	session, err := m.close(ctx, identityID, at)
	switch {
	case err == nil:
		metrics.RecordSessionTransition("closed_reconcile")
		return session
	case errors.Is(err, storage.ErrNoOpenSession):
		metrics.RecordSessionTransition("no_open_session")
		logging.Ctx(ctx).Debug().Str("identity_id", identityID).Msg("reconcile found no open session")
		return nil
	}

	log := logging.Ctx(ctx)
	if m.spool == nil {
		log.Error().Err(err).Str("identity_id", identityID).Msg("reconcile close failed, session left open")
		return nil
	}
	if spoolErr := m.spool.SpoolClose(ctx, identityID, at); spoolErr != nil {
		log.Error().Err(err).AnErr("spool_error", spoolErr).Str("identity_id", identityID).Msg("reconcile close failed and could not be spooled")
		return nil
	}
	metrics.RecordSessionTransition("spooled")
	log.Warn().Err(err).Str("identity_id", identityID).Msg("reconcile close failed, spooled for retry")
	return nil
}

// close is the single close path shared by Logout and ReconcileOnDisconnect.
func (m *Machine) close(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	mu := m.acquire(identityID)
	defer mu.Unlock()

	session, err := m.store.CloseOpenSession(ctx, identityID, at.UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNoOpenSession) {
			return nil, ErrNoOpenSession
		}
		return nil, fmt.Errorf("close session: %w", err)
	}
	logging.Ctx(ctx).Info().Str("identity_id", identityID).Str("session_id", session.ID).Time("closed_at", at.UTC()).Msg("attendance session closed")
	return session, nil
}
