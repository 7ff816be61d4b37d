// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package websocket

import (
	"context"
	"time"

	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/metrics"
	"github.com/tomtom215/waypoint/internal/models"
	"github.com/tomtom215/waypoint/internal/presence"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// gaugeInterval is how often the connection gauges are refreshed.
const gaugeInterval = 5 * time.Second

// Hub is the fan-out broadcaster. It reads the presence registry at call
// time and never holds the registry lock while sending.
type Hub struct {
	registry *presence.Registry[Peer]
}

// NewHub creates a Hub over registry.
func NewHub(registry *presence.Registry[Peer]) *Hub {
	return &Hub{registry: registry}
}

// Registry returns the presence registry the hub reads from.
func (h *Hub) Registry() *presence.Registry[Peer] {
	return h.registry
}

// GetClientCount returns the number of registered connections.
func (h *Hub) GetClientCount() int {
	return h.registry.Len()
}

// Observers returns the registered observer connections ordered by connection ID.
func (h *Hub) Observers() []Peer {
	snap := h.registry.Snapshot()
	out := snap[:0]
	for _, p := range snap {
		if p.Identity().IsObserver() {
			out = append(out, p)
		}
	}
	return out
}

// AnnouncePresence tells every observer that identityID came online or went
// offline. It returns the number of observers the event was queued for.
func (h *Hub) AnnouncePresence(identityID, displayName string, online bool) int {
	return h.broadcast(Message{
		Type: MessageTypePresenceChanged,
		Data: models.PresenceChanged{IdentityID: identityID, DisplayName: displayName, Online: online},
	})
}

// AnnounceLocation tells every observer about a new sample.
func (h *Hub) AnnounceLocation(displayName string, sample *models.LocationSample) int {
	return h.broadcast(Message{
		Type: MessageTypeLocationUpdate,
		Data: models.NewLocationUpdate(displayName, sample),
	})
}

// AnnounceAttendance tells every observer that a session opened or closed.
func (h *Hub) AnnounceAttendance(displayName string, session *models.AttendanceSession) int {
	at := session.OpenedAt
	if session.ClosedAt != nil {
		at = *session.ClosedAt
	}
	return h.broadcast(Message{
		Type: MessageTypeAttendance,
		Data: models.AttendanceChanged{
			IdentityID:  session.IdentityID,
			DisplayName: displayName,
			SessionID:   session.ID,
			Open:        session.IsOpen(),
			At:          at,
		},
	})
}

// broadcast queues message on every observer without blocking. A full
// buffer drops the message for that observer only.
func (h *Hub) broadcast(message Message) int {
	delivered := 0
	for _, peer := range h.Observers() {
		if peer.Send(message) {
			delivered++
			metrics.RecordBroadcast(message.Type, true)
			continue
		}
		metrics.RecordBroadcast(message.Type, false)
		logging.Warn().
			Uint64("connection_id", peer.ID()).
			Str("identity_id", peer.Identity().ID).
			Str("message_type", message.Type).
			Msg("observer send buffer full, dropping message")
	}
	return delivered
}

// RunWithContext keeps the connection gauges current until ctx is done,
// then closes every registered connection. It is designed for use with
// suture supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	h.publishGauges()
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case <-ticker.C:
			h.publishGauges()
		}
	}
}

func (h *Hub) publishGauges() {
	counts := map[models.Role]int{models.RoleSubject: 0, models.RoleObserver: 0}
	for _, p := range h.registry.Snapshot() {
		counts[p.Identity().Role]++
	}
	for role, n := range counts {
		metrics.ConnectionsActive.WithLabelValues(string(role)).Set(float64(n))
	}
}

// logGracefulShutdown closes all connections and logs the shutdown.
// ctx.Err() is not logged as an error because cancellation is the expected
// shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clients := h.registry.Snapshot()
	for _, p := range clients {
		p.Close(ReasonShutdown)
	}

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
