// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package websocket provides the live connection transport and the fan-out
broadcaster for presence and location events.

Key Components:

  - Client: one gorilla/websocket connection bound to a verified identity,
    with a readPump and a writePump goroutine
  - Peer: the connection handle stored in the presence registry
  - Handler: receives decoded inbound messages and the final disconnect
  - Hub: delivers presence-changed and location-update events to every
    registered observer

Architecture:

	           ┌────────────────────┐
	subject ──▶│ Client.readPump    │──▶ Handler.HandleMessage
	           └────────────────────┘            │
	                                              ▼
	                          Hub.AnnounceLocation (registry snapshot)
	                                              │
	                   ┌──────────────┬───────────┴──┐
	                   ▼              ▼              ▼
	              observer 1     observer 2     observer 3
	            (send buffer)  (send buffer)  (send buffer)

Recipients are computed from the presence registry at call time, so there
is no separate subscriber list. Each send is a non-blocking write into a
bounded buffer; when an observer's buffer is full that one message is
dropped, logged and counted, and delivery to the other observers continues.
Dropped messages are not retried: an observer that reconnects receives a
fresh snapshot.

Message Types:

Inbound (subject to server):

  - report-location: {lat, lng, address}
  - end-session: voluntary disconnect
  - ping

Outbound:

  - presence-changed: {identityId, displayName, online}
  - location-update: {identityId, displayName, lat, lng, address, capturedAt}
  - attendance-changed: {identityId, displayName, sessionId, open, at}
  - pong
  - error: {code, message}

Messages are JSON envelopes {"type": ..., "data": ...} encoded with goccy/go-json.
*/
package websocket
