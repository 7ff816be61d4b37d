// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package services

import (
	"context"
)

// ContextHub is satisfied by *websocket.Hub. Declared here so this package
// does not import the websocket package.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService supervises the fan-out hub. On shutdown the hub closes every
// registered connection, which in turn reconciles open attendance sessions.
type HubService struct {
	hub ContextHub
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string {
	return "websocket-hub"
}
