// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package api exposes Waypoint over HTTP using the chi router.

# Routes

	GET  /ws                                      websocket upgrade (token query param or Bearer header)
	GET  /metrics                                 Prometheus exposition
	GET  /api/v1/health/live                      liveness
	GET  /api/v1/health/ready                     readiness (database ping, breaker, retry backlog)
	POST /api/v1/attendance/login                 subject: open own session
	POST /api/v1/attendance/logout                subject: close own session
	GET  /api/v1/attendance/me                    any role: own sessions
	GET  /api/v1/attendance/today                 observer: latest session per identity today
	GET  /api/v1/attendance/weekly                observer: identities present per day, last 7 days
	GET  /api/v1/attendance/sessions/{identityID} observer: sessions of one identity
	GET  /api/v1/presence                         observer: online subjects
	GET  /api/v1/locations/latest                 observer: newest sample per identity
	GET  /api/v1/locations/{identityID}           observer: sample history (?limit=)

# Middleware

Every route gets request IDs, panic recovery, CORS and Prometheus
instrumentation. /api/v1 routes are additionally rate limited with httprate,
authenticated with a JWT (auth.Middleware) and authorized per role with
Casbin (authz.Middleware).

The websocket handshake verifies the credential before upgrading, so a
refused connection is answered with a plain 401 and never touches the
presence registry.

# Responses

REST responses use models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":2}}
	{"status":"error","data":null,"error":{"code":"FORBIDDEN","message":"..."},"metadata":{...}}
*/
package api
