// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

/*
Package auth verifies the bearer credentials presented by subjects and
observers.

Credentials are HS256 JWTs carrying the identity ID (the registered "sub"
claim), a display name and a role of either "subject" or "observer".
JWTManager implements storage.Verifier, so the same verification backs the
REST middleware and the websocket handshake.

Tokens are read from the Authorization header ("Bearer <token>") or, for
browser websocket clients that cannot set headers, from the "token" query
parameter:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	r.Use(auth.NewMiddleware(jwtManager).Authenticate)

	identity, ok := auth.IdentityFromContext(r.Context())
*/
package auth
