// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection Metrics
	ConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waypoint_connections_active",
			Help: "Current number of live connections",
		},
		[]string{"role"},
	)

	ConnectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_connections_rejected_total",
			Help: "Total number of refused connection attempts",
		},
		[]string{"reason"}, // "auth", "origin"
	)

	ConnectionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waypoint_connections_evicted_total",
			Help: "Total number of connections replaced by a newer connection for the same identity",
		},
	)

	StaleUnregisters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waypoint_stale_unregisters_total",
			Help: "Total number of disconnects ignored because a fresher connection owns the identity",
		},
	)

	// Location Metrics
	LocationReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_location_reports_total",
			Help: "Total number of location reports by outcome",
		},
		// outcome: first_sample, refresh_elapsed, changed, duplicate_suppressed,
		// failed_geocode, invalid, rate_limited
		[]string{"outcome"},
	)

	// Fan-out Metrics
	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_broadcast_sent_total",
			Help: "Total number of events queued to observers",
		},
		[]string{"type"},
	)

	BroadcastsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_broadcast_dropped_total",
			Help: "Total number of events dropped because an observer buffer was full",
		},
		[]string{"type"},
	)

	// Attendance Metrics
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_session_transitions_total",
			Help: "Total number of attendance session transitions",
		},
		// transition: opened, already_open, closed_logout, closed_reconcile, no_open_session, spooled
		[]string{"transition"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Retry Log Metrics
	RetryPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "waypoint_retry_pending",
			Help: "Current number of spooled writes awaiting replay",
		},
	)

	RetryReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_retry_replays_total",
			Help: "Total number of spooled write replays by result",
		},
		[]string{"op", "result"}, // result: "success", "failure", "abandoned"
	)

	// Directory Metrics
	NameCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waypoint_name_cache_lookups_total",
			Help: "Total number of display name lookups by cache result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordLocationReport counts one report outcome.
func RecordLocationReport(outcome string) {
	LocationReports.WithLabelValues(outcome).Inc()
}

// RecordSessionTransition counts one attendance transition.
func RecordSessionTransition(transition string) {
	SessionTransitions.WithLabelValues(transition).Inc()
}

// RecordBroadcast counts one queued or dropped event.
func RecordBroadcast(eventType string, delivered bool) {
	if delivered {
		BroadcastsSent.WithLabelValues(eventType).Inc()
		return
	}
	BroadcastsDropped.WithLabelValues(eventType).Inc()
}
