// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - live connections by role and presence announcements
  - location report outcomes (persisted, suppressed, rejected)
  - attendance session transitions
  - fan-out drops when an observer's send buffer is full
  - DuckDB query latency and errors
  - store circuit breaker state
  - retry log depth and replays
  - HTTP request latency

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3870/metrics

# Example Alerts

  - alert: WaypointBroadcastDrops
    expr: rate(waypoint_broadcast_dropped_total[5m]) > 1
  - alert: WaypointStoreCircuitOpen
    expr: circuit_breaker_state{name="store"} == 2
*/
package metrics
