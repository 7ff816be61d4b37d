// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

// Package memory provides an in-process Store used by tests and by the
// "memory" database driver for local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

// Store is a mutex-guarded in-memory implementation of storage.Store and
// storage.NameLookup.
type Store struct {
	mu       sync.RWMutex
	samples  []models.LocationSample
	sampleID map[string]struct{}
	sessions []models.AttendanceSession
	names    map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sampleID: make(map[string]struct{}),
		names:    make(map[string]string),
	}
}

// SetDisplayName registers a directory entry for identityID.
func (s *Store) SetDisplayName(identityID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[identityID] = name
}

// LookupDisplayName implements storage.NameLookup.
func (s *Store) LookupDisplayName(_ context.Context, identityID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := s.names[identityID]; ok {
		return name, nil
	}
	return "", storage.ErrNotFound
}

// InsertLocationSample stores a copy of sample.
func (s *Store) InsertLocationSample(_ context.Context, sample *models.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.sampleID[sample.ID]; dup {
		return nil
	}
	s.sampleID[sample.ID] = struct{}{}
	s.samples = append(s.samples, *sample)
	return nil
}

// LatestSample returns the newest sample of identityID or ErrNotFound.
func (s *Store) LatestSample(_ context.Context, identityID string) (*models.LocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.LocationSample
	for i := range s.samples {
		sm := &s.samples[i]
		if sm.IdentityID == identityID && (latest == nil || !sm.CapturedAt.Before(latest.CapturedAt)) {
			latest = sm
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	out := *latest
	return &out, nil
}

// LatestSamples returns the newest sample per identity ordered by identity ID.
func (s *Store) LatestSamples(_ context.Context) ([]models.LocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[string]models.LocationSample)
	for _, sm := range s.samples {
		if cur, ok := byID[sm.IdentityID]; !ok || !sm.CapturedAt.Before(cur.CapturedAt) {
			byID[sm.IdentityID] = sm
		}
	}
	out := make([]models.LocationSample, 0, len(byID))
	for _, sm := range byID {
		out = append(out, sm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// ListSamples returns up to limit samples for identityID, newest first.
func (s *Store) ListSamples(_ context.Context, identityID string, limit int) ([]models.LocationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.LocationSample
	for _, sm := range s.samples {
		if sm.IdentityID == identityID {
			out = append(out, sm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapturedAt.After(out[j].CapturedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OpenSession stores a copy of session.
func (s *Store) OpenSession(_ context.Context, session *models.AttendanceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, *session)
	return nil
}

// FindOpenSession returns the latest open session of identityID.
func (s *Store) FindOpenSession(_ context.Context, identityID string) (*models.AttendanceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.latestOpen(identityID, time.Time{}); i >= 0 {
		out := s.sessions[i]
		return &out, nil
	}
	return nil, storage.ErrNoOpenSession
}

// CloseOpenSession closes the latest open session of identityID opened at or before at.
func (s *Store) CloseOpenSession(_ context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.latestOpen(identityID, at)
	if i < 0 {
		return nil, storage.ErrNoOpenSession
	}
	closedAt := at
	s.sessions[i].ClosedAt = &closedAt
	out := s.sessions[i]
	return &out, nil
}

// latestOpen returns the index of the most recently opened open session for
// identityID, limited to sessions opened at or before notAfter when it is set.
// Callers must hold mu.
func (s *Store) latestOpen(identityID string, notAfter time.Time) int {
	idx := -1
	for i := range s.sessions {
		sess := &s.sessions[i]
		if sess.IdentityID != identityID || !sess.IsOpen() {
			continue
		}
		if !notAfter.IsZero() && sess.OpenedAt.After(notAfter) {
			continue
		}
		if idx < 0 || !sess.OpenedAt.Before(s.sessions[idx].OpenedAt) {
			idx = i
		}
	}
	return idx
}

// ListSessions returns every session for identityID, newest first.
func (s *Store) ListSessions(_ context.Context, identityID string) ([]models.AttendanceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AttendanceSession
	for _, sess := range s.sessions {
		if sess.IdentityID == identityID {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

// SessionsBetween returns sessions whose OpenedAt falls in [from, to), oldest first.
func (s *Store) SessionsBetween(_ context.Context, from, to time.Time) ([]models.AttendanceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AttendanceSession
	for _, sess := range s.sessions {
		if !sess.OpenedAt.Before(from) && sess.OpenedAt.Before(to) {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// OpenSessionCount returns how many sessions are open for identityID.
func (s *Store) OpenSessionCount(identityID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.IdentityID == identityID && sess.IsOpen() {
			n++
		}
	}
	return n
}

// SampleCount returns the number of stored samples.
func (s *Store) SampleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

var (
	_ storage.Store      = (*Store)(nil)
	_ storage.NameLookup = (*Store)(nil)
)
