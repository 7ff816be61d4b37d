// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/waypoint/internal/attendance"
	"github.com/tomtom215/waypoint/internal/models"
	ws "github.com/tomtom215/waypoint/internal/websocket"
)

func TestObserverClosesSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)
	a := newFakePeer("emp-a", models.RoleSubject)
	h.coord.Activate(ctx, a)

	h.clock.Set(t0.Add(9 * time.Hour))
	closed, err := h.coord.CloseSession(ctx, "emp-a")
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(t0.Add(9*time.Hour)) {
		t.Errorf("Expected close at the server clock, got %v", closed.ClosedAt)
	}
	if !h.registry.IsOnline("emp-a") {
		t.Error("Expected the subject connection to stay registered")
	}
	if _, err := h.coord.CloseSession(ctx, "emp-a"); !errors.Is(err, attendance.ErrNoOpenSession) {
		t.Errorf("Expected ErrNoOpenSession on second close, got %v", err)
	}

	events := obs.ofType(ws.MessageTypeAttendance)
	last, ok := events[len(events)-1].Data.(models.AttendanceChanged)
	if !ok || last.Open || last.DisplayName != "Ada" {
		t.Errorf("Unexpected close announcement %+v", events[len(events)-1].Data)
	}
}

func TestExplicitLoginLogout(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.AutoOpenSession = false })
	ctx := context.Background()

	obs := newFakePeer("admin-1", models.RoleObserver)
	h.coord.Activate(ctx, obs)

	ada := models.Identity{ID: "emp-a", Role: models.RoleSubject}
	opened, err := h.coord.Login(ctx, ada)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	h.clock.Set(t0.Add(time.Minute))
	again, err := h.coord.Login(ctx, ada)
	if !errors.Is(err, attendance.ErrAlreadyOpen) || again == nil || again.ID != opened.ID {
		t.Fatalf("Expected existing session with ErrAlreadyOpen, got %+v (%v)", again, err)
	}

	h.clock.Set(t0.Add(8 * time.Hour))
	closed, err := h.coord.Logout(ctx, ada)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(t0.Add(8*time.Hour)) {
		t.Errorf("Expected close at 17:00, got %v", closed.ClosedAt)
	}

	if _, err := h.coord.Logout(ctx, ada); !errors.Is(err, attendance.ErrNoOpenSession) {
		t.Errorf("Expected ErrNoOpenSession on second logout, got %v", err)
	}

	events := obs.ofType(ws.MessageTypeAttendance)
	if len(events) != 2 {
		t.Fatalf("Expected open and close announcements, got %d", len(events))
	}
	first, ok := events[0].Data.(models.AttendanceChanged)
	if !ok || !first.Open || first.DisplayName != "Ada" {
		t.Errorf("Unexpected open announcement %+v", events[0].Data)
	}
	last, ok := events[1].Data.(models.AttendanceChanged)
	if !ok || last.Open {
		t.Errorf("Unexpected close announcement %+v", events[1].Data)
	}
}
