// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package database

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/waypoint/internal/config"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO calls
// from many in-memory databases can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB opens an in-memory database held for the whole test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func sample(id, identity string, offset time.Duration, address string) *models.LocationSample {
	return &models.LocationSample{
		ID:         id,
		IdentityID: identity,
		Latitude:   52.37,
		Longitude:  4.89,
		Address:    address,
		CapturedAt: base.Add(offset),
	}
}

func TestLocationSamples(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.LatestSample(ctx, "emp-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on empty table, got %v", err)
	}

	for _, s := range []*models.LocationSample{
		sample("s1", "emp-a", 0, "Dam 1"),
		sample("s2", "emp-a", time.Minute, "Dam 2"),
		sample("s3", "emp-b", 30*time.Second, "Spui 5"),
	} {
		if err := db.InsertLocationSample(ctx, s); err != nil {
			t.Fatalf("InsertLocationSample(%s): %v", s.ID, err)
		}
	}

	// Replays of an existing ID are ignored.
	if err := db.InsertLocationSample(ctx, sample("s1", "emp-a", time.Hour, "elsewhere")); err != nil {
		t.Fatalf("Replayed insert: %v", err)
	}

	latest, err := db.LatestSample(ctx, "emp-a")
	if err != nil {
		t.Fatalf("LatestSample: %v", err)
	}
	if latest.ID != "s2" || latest.Address != "Dam 2" || !latest.CapturedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("Unexpected latest sample %+v", latest)
	}

	all, err := db.LatestSamples(ctx)
	if err != nil {
		t.Fatalf("LatestSamples: %v", err)
	}
	if len(all) != 2 || all[0].ID != "s2" || all[1].ID != "s3" {
		t.Errorf("Expected [s2 s3], got %+v", all)
	}

	history, err := db.ListSamples(ctx, "emp-a", 1)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(history) != 1 || history[0].ID != "s2" {
		t.Errorf("Expected newest sample only, got %+v", history)
	}
	history, err = db.ListSamples(ctx, "emp-a", 0)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected 2 samples for emp-a, got %d", len(history))
	}
}

func TestAttendanceSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.FindOpenSession(ctx, "emp-a"); !errors.Is(err, storage.ErrNoOpenSession) {
		t.Fatalf("Expected ErrNoOpenSession, got %v", err)
	}

	open := &models.AttendanceSession{
		ID:          "sess-1",
		IdentityID:  "emp-a",
		SessionDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		OpenedAt:    base,
	}
	if err := db.OpenSession(ctx, open); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	found, err := db.FindOpenSession(ctx, "emp-a")
	if err != nil {
		t.Fatalf("FindOpenSession: %v", err)
	}
	if found.ID != "sess-1" || found.SessionDate.Format(time.DateOnly) != "2026-03-02" {
		t.Errorf("Unexpected open session %+v", found)
	}

	// A close stamped before the session opened must not touch it.
	if _, err := db.CloseOpenSession(ctx, "emp-a", base.Add(-time.Minute)); !errors.Is(err, storage.ErrNoOpenSession) {
		t.Fatalf("Expected ErrNoOpenSession for an earlier close, got %v", err)
	}

	closed, err := db.CloseOpenSession(ctx, "emp-a", base.Add(8*time.Hour))
	if err != nil {
		t.Fatalf("CloseOpenSession: %v", err)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(base.Add(8*time.Hour)) {
		t.Errorf("Expected closed_at 17:00, got %v", closed.ClosedAt)
	}

	if _, err := db.CloseOpenSession(ctx, "emp-a", base.Add(9*time.Hour)); !errors.Is(err, storage.ErrNoOpenSession) {
		t.Errorf("Expected second close to find nothing, got %v", err)
	}

	if err := db.OpenSession(ctx, &models.AttendanceSession{
		ID: "sess-2", IdentityID: "emp-a", SessionDate: open.SessionDate.AddDate(0, 0, 1), OpenedAt: base.Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	sessions, err := db.ListSessions(ctx, "emp-a")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "sess-2" || sessions[1].ClosedAt == nil {
		t.Errorf("Unexpected session list %+v", sessions)
	}

	between, err := db.SessionsBetween(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("SessionsBetween: %v", err)
	}
	if len(between) != 1 || between[0].ID != "sess-1" {
		t.Errorf("Expected only sess-1 in range, got %+v", between)
	}
}

func TestEmployees(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.LookupDisplayName(ctx, "emp-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := db.UpsertEmployee(ctx, "emp-a", "Ada"); err != nil {
		t.Fatalf("UpsertEmployee: %v", err)
	}
	if err := db.UpsertEmployee(ctx, "emp-a", "Ada Lovelace"); err != nil {
		t.Fatalf("UpsertEmployee rename: %v", err)
	}
	name, err := db.LookupDisplayName(ctx, "emp-a")
	if err != nil || name != "Ada Lovelace" {
		t.Errorf("Expected renamed entry, got %q (%v)", name, err)
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
