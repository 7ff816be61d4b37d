// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/waypoint/internal/models"
)

// Message types for WebSocket communication
const (
	MessageTypeReportLocation  = "report-location"
	MessageTypeEndSession      = "end-session"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypePresenceChanged = "presence-changed"
	MessageTypeLocationUpdate  = "location-update"
	MessageTypeAttendance      = "attendance-changed"
	MessageTypeError           = "error"
)

// Message is an outbound WebSocket message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound is a decoded inbound envelope; Data is decoded by the handler
// according to Type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorMessage builds an error message for a single connection.
func ErrorMessage(code, message string) Message {
	return Message{Type: MessageTypeError, Data: models.ErrorPayload{Code: code, Message: message}}
}
