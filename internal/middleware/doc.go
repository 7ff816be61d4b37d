// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package middleware provides the infrastructure HTTP middleware shared by
every route: request ID propagation into the logging context and Prometheus
request instrumentation.

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

PrometheusMetrics labels requests with the matched chi route pattern rather
than the raw path, so /api/v1/locations/{identityID} is one series no matter
how many identities are queried. The response writer is wrapped with chi's
WrapResponseWriter, which keeps http.Hijacker available for websocket
upgrades.
*/
package middleware
