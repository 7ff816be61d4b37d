// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/waypoint/internal/config"
	"github.com/tomtom215/waypoint/internal/models"
)

var (
	// ErrInvalidRole is returned when a token's role is neither subject nor observer.
	ErrInvalidRole = errors.New("invalid role claim")

	// ErrMissingSubject is returned when a token carries no identity ID.
	ErrMissingSubject = errors.New("missing subject claim")
)

// Claims represents JWT claims. The identity ID is RegisteredClaims.Subject.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity converts the claims to a models.Identity.
func (c *Claims) Identity() models.Identity {
	return models.Identity{ID: c.Subject, Role: models.Role(c.Role), Name: c.Name}
}

// JWTManager handles JWT token creation and validation.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

// NewJWTManager creates a manager signing with HMAC-SHA256.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: cfg.SessionTimeout,
		now:     time.Now,
	}, nil
}

// GenerateToken signs a token for identity that expires after the
// configured session timeout.
func (m *JWTManager) GenerateToken(identity models.Identity) (string, error) {
	if identity.ID == "" {
		return "", ErrMissingSubject
	}
	if !identity.Role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, identity.Role)
	}

	now := m.now()
	claims := &Claims{
		Name: identity.Name,
		Role: string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a token, rejecting any signing method
// other than HMAC.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if !models.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, claims.Role)
	}
	return claims, nil
}

// VerifyCredential implements storage.Verifier.
func (m *JWTManager) VerifyCredential(token string) (models.Identity, error) {
	claims, err := m.ValidateToken(token)
	if err != nil {
		return models.Identity{}, err
	}
	return claims.Identity(), nil
}
