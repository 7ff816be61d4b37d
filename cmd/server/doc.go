// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package main is the entry point for the Waypoint server.

Waypoint tracks which employees are connected, streams their reported
locations to observers in real time and keeps one attendance session per
employee per day.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("waypoint")
	├── DataSupervisor ("data-layer")
	│   ├── WAL retry loop (when WAL_ENABLED=true)
	│   └── WAL value-log GC
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket hub (gauges, shutdown notice)
	└── APISupervisor ("api-layer")
	    └── HTTP server (REST + /ws)

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Store: DuckDB or in-memory, behind a gobreaker circuit breaker
 4. WAL: BadgerDB retry log for writes that failed to persist
 5. Auth: HS256 JWT verification and Casbin route policy
 6. Tracking: presence registry, attendance machine, coordinator
 7. HTTP: chi router with CORS, httprate and Prometheus middleware

# Configuration

Priority: environment variables > config file > defaults.

	HTTP_PORT=8090
	JWT_SECRET=<32+ chars>               # required
	DB_DRIVER=duckdb                     # duckdb or memory
	DUCKDB_PATH=/data/waypoint.duckdb
	LOCATION_REFRESH_THRESHOLD=1h        # 0 disables dedup
	LOCATION_DUPLICATE_THRESHOLD=5m
	ATTENDANCE_TIMEZONE=Europe/Amsterdam
	AUTO_OPEN_SESSION=false
	WAL_ENABLED=true
	WAL_PATH=/data/wal
	CORS_ORIGINS=https://dashboard.example.com
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

On SIGINT or SIGTERM the tree is canceled: the HTTP server drains within
SHUTDOWN_TIMEOUT, the hub logs the shutdown, and the WAL and store are
closed after the tree returns. Entries still pending in the WAL are replayed
on the next start.
*/
package main
