// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package api

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/waypoint/internal/attendance"
	"github.com/tomtom215/waypoint/internal/config"
	"github.com/tomtom215/waypoint/internal/storage"
	"github.com/tomtom215/waypoint/internal/tracking"
	ws "github.com/tomtom215/waypoint/internal/websocket"
)

// PendingCounter reports the retry log backlog. Satisfied by *wal.Log.
type PendingCounter interface {
	PendingCount() int
}

// BreakerState reports the store circuit breaker state. Satisfied by
// *storage.BreakerStore.
type BreakerState interface {
	State() string
}

// Deps are the collaborators of the HTTP layer. Retry and Breaker are optional.
type Deps struct {
	Config      *config.Config
	Coordinator *tracking.Coordinator
	Sessions    *attendance.Machine
	Store       storage.Store
	Hub         *ws.Hub
	Retry       PendingCounter
	Breaker     BreakerState
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Handler serves the REST and websocket endpoints.
type Handler struct {
	cfg       *config.Config
	coord     *tracking.Coordinator
	sessions  *attendance.Machine
	store     storage.Store
	hub       *ws.Hub
	retry     PendingCounter
	breaker   BreakerState
	clock     func() time.Time
	startTime time.Time
	upgrader  websocket.Upgrader
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	h := &Handler{
		cfg:       deps.Config,
		coord:     deps.Coordinator,
		sessions:  deps.Sessions,
		store:     deps.Store,
		hub:       deps.Hub,
		retry:     deps.Retry,
		breaker:   deps.Breaker,
		clock:     clock,
		startTime: clock(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}
