// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package attendance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/waypoint/internal/models"
)

// WeekDays is the number of days covered by WeeklyPresence.
const WeekDays = 7

// Sessions returns every session of identityID, newest first.
func (m *Machine) Sessions(ctx context.Context, identityID string) ([]models.AttendanceSession, error) {
	sessions, err := m.store.ListSessions(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Today returns the most recently opened session of each identity for the
// local day containing now, ordered by identity ID.
func (m *Machine) Today(ctx context.Context, now time.Time) ([]models.AttendanceSession, error) {
	start := m.SessionDate(now)
	sessions, err := m.store.SessionsBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("sessions today: %w", err)
	}

	latest := make(map[string]models.AttendanceSession)
	for _, s := range sessions {
		if cur, ok := latest[s.IdentityID]; !ok || s.OpenedAt.After(cur.OpenedAt) {
			latest[s.IdentityID] = s
		}
	}
	out := make([]models.AttendanceSession, 0, len(latest))
	for _, s := range latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// WeeklyPresence counts distinct identities with at least one session on
// each of the last seven local days, oldest first. Days without sessions
// are reported with a zero count.
func (m *Machine) WeeklyPresence(ctx context.Context, now time.Time) ([]models.DailyPresence, error) {
	today := m.SessionDate(now)
	start := today.AddDate(0, 0, -(WeekDays - 1))

	sessions, err := m.store.SessionsBetween(ctx, start, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("sessions this week: %w", err)
	}

	seen := make(map[string]map[string]struct{}, WeekDays)
	for _, s := range sessions {
		day := m.SessionDate(s.OpenedAt).Format(time.DateOnly)
		if seen[day] == nil {
			seen[day] = make(map[string]struct{})
		}
		seen[day][s.IdentityID] = struct{}{}
	}

	out := make([]models.DailyPresence, 0, WeekDays)
	for i := 0; i < WeekDays; i++ {
		day := start.AddDate(0, 0, i)
		out = append(out, models.DailyPresence{Date: day, Count: len(seen[day.Format(time.DateOnly)])})
	}
	return out, nil
}
