// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package tracking

import (
	"context"

	"github.com/tomtom215/waypoint/internal/models"
)

// Login opens an attendance session for an explicit login request and
// announces it to observers. An already open session is returned together
// with attendance.ErrAlreadyOpen and is not announced again.
func (c *Coordinator) Login(ctx context.Context, identity models.Identity) (*models.AttendanceSession, error) {
	session, err := c.deps.Sessions.Login(ctx, identity.ID, c.cfg.Clock())
	if err != nil {
		return session, err
	}
	c.deps.Broadcaster.AnnounceAttendance(c.nameFor(ctx, identity), session)
	return session, nil
}

// Logout closes the open attendance session for an explicit logout request.
// The live connection, if any, stays registered.
func (c *Coordinator) Logout(ctx context.Context, identity models.Identity) (*models.AttendanceSession, error) {
	session, err := c.deps.Sessions.Logout(ctx, identity.ID, c.cfg.Clock())
	if err != nil {
		return nil, err
	}
	c.deps.Broadcaster.AnnounceAttendance(c.nameFor(ctx, identity), session)
	return session, nil
}

// CloseSession closes the open session of another identity on an
// observer's request. The subject's live connection, if any, is untouched.
func (c *Coordinator) CloseSession(ctx context.Context, identityID string) (*models.AttendanceSession, error) {
	return c.Logout(ctx, models.Identity{ID: identityID, Role: models.RoleSubject})
}

// nameFor prefers the name already resolved for a live connection.
func (c *Coordinator) nameFor(ctx context.Context, identity models.Identity) string {
	if p, ok := c.deps.Registry.Get(identity.ID); ok {
		if entry, _ := c.lookup(p.ID()); entry != nil {
			return entry.displayName
		}
	}
	return c.displayName(ctx, identity)
}
