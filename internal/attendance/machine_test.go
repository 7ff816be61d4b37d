// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package attendance

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/storage/memory"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// recordingStore counts close calls and can fail them.
type recordingStore struct {
	*memory.Store
	mu       sync.Mutex
	closes   int
	closeErr error
}

func (r *recordingStore) CloseOpenSession(ctx context.Context, identityID string, at time.Time) (*models.AttendanceSession, error) {
	r.mu.Lock()
	r.closes++
	err := r.closeErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.Store.CloseOpenSession(ctx, identityID, at)
}

type fakeSpool struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeSpool) SpoolClose(_ context.Context, _ string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, at)
	return f.err
}

func TestLoginRejectsSecondOpen(t *testing.T) {
	store := memory.NewStore()
	m := NewMachine(store, Config{})
	ctx := context.Background()

	first, err := m.Login(ctx, "emp-1", t0)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := m.Login(ctx, "emp-1", t0.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("Expected ErrAlreadyOpen, got %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Errorf("Expected existing session returned, got %+v", second)
	}
	if n := store.OpenSessionCount("emp-1"); n != 1 {
		t.Errorf("Expected 1 open session, got %d", n)
	}
}

func TestSingleOpenSessionInvariant(t *testing.T) {
	store := memory.NewStore()
	m := NewMachine(store, Config{})
	ctx := context.Background()

	// login, login, logout, logout, login, reconcile, reconcile, login
	steps := []func(time.Time){
		func(at time.Time) { _, _ = m.Login(ctx, "emp-1", at) },
		func(at time.Time) { _, _ = m.Login(ctx, "emp-1", at) },
		func(at time.Time) { _, _ = m.Logout(ctx, "emp-1", at) },
		func(at time.Time) { _, _ = m.Logout(ctx, "emp-1", at) },
		func(at time.Time) { _, _ = m.Login(ctx, "emp-1", at) },
		func(at time.Time) { m.ReconcileOnDisconnect(ctx, "emp-1", at) },
		func(at time.Time) { m.ReconcileOnDisconnect(ctx, "emp-1", at) },
		func(at time.Time) { _, _ = m.Login(ctx, "emp-1", at) },
	}
	for i, step := range steps {
		step(t0.Add(time.Duration(i) * time.Minute))
		if n := store.OpenSessionCount("emp-1"); n > 1 {
			t.Fatalf("step %d: %d open sessions", i, n)
		}
	}

	sessions, _ := m.Sessions(ctx, "emp-1")
	if len(sessions) != 3 {
		t.Errorf("Expected 3 sessions, got %d", len(sessions))
	}
}

func TestConcurrentLoginsOpenOnce(t *testing.T) {
	store := memory.NewStore()
	m := NewMachine(store, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Login(context.Background(), "emp-1", t0)
		}()
	}
	wg.Wait()

	if n := store.OpenSessionCount("emp-1"); n != 1 {
		t.Errorf("Expected exactly 1 open session, got %d", n)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	m := NewMachine(memory.NewStore(), Config{})

	if _, err := m.Logout(context.Background(), "emp-1", t0); !errors.Is(err, ErrNoOpenSession) {
		t.Errorf("Expected ErrNoOpenSession, got %v", err)
	}
}

func TestReconcileClosesExactlyOnce(t *testing.T) {
	store := &recordingStore{Store: memory.NewStore()}
	m := NewMachine(store, Config{})
	ctx := context.Background()

	if _, err := m.Login(ctx, "emp-1", t0); err != nil {
		t.Fatalf("Login: %v", err)
	}
	closed := m.ReconcileOnDisconnect(ctx, "emp-1", t0.Add(2*time.Minute))
	if closed == nil || closed.ClosedAt == nil || !closed.ClosedAt.Equal(t0.Add(2*time.Minute)) {
		t.Fatalf("Expected session closed at t+2m, got %+v", closed)
	}
	if store.closes != 1 {
		t.Errorf("Expected exactly 1 close call, got %d", store.closes)
	}

	// A second reconcile finds nothing and does not fail.
	if again := m.ReconcileOnDisconnect(ctx, "emp-1", t0.Add(3*time.Minute)); again != nil {
		t.Errorf("Expected nothing to close, got %+v", again)
	}
}

func TestReconcileSpoolsFailedClose(t *testing.T) {
	store := &recordingStore{Store: memory.NewStore(), closeErr: errors.New("database is locked")}
	spool := &fakeSpool{}
	m := NewMachine(store, Config{Spool: spool})
	ctx := context.Background()

	_, _ = m.Login(ctx, "emp-1", t0)
	if closed := m.ReconcileOnDisconnect(ctx, "emp-1", t0.Add(time.Hour)); closed != nil {
		t.Errorf("Expected no closed session, got %+v", closed)
	}
	if len(spool.calls) != 1 || !spool.calls[0].Equal(t0.Add(time.Hour)) {
		t.Errorf("Expected one spooled close at t+1h, got %v", spool.calls)
	}

	// Spool failure is still swallowed.
	spool.err = errors.New("wal closed")
	m.ReconcileOnDisconnect(ctx, "emp-1", t0.Add(2*time.Hour))
}

func TestLogoutSurfacesPersistenceFailure(t *testing.T) {
	boom := errors.New("database is locked")
	store := &recordingStore{Store: memory.NewStore(), closeErr: boom}
	m := NewMachine(store, Config{})

	if _, err := m.Logout(context.Background(), "emp-1", t0); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}

func TestSessionDateUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	m := NewMachine(memory.NewStore(), Config{Location: loc})

	// 20:00 UTC on March 2 is 01:30 on March 3 in UTC+5:30.
	at := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	s, err := m.Login(context.Background(), "emp-1", at)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	want := time.Date(2026, 3, 3, 0, 0, 0, 0, loc)
	if !s.SessionDate.Equal(want) {
		t.Errorf("Expected session date %v, got %v", want, s.SessionDate)
	}
}
