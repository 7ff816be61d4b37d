// Waypoint - Employee Presence and Location Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypoint

package auth

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/waypoint/internal/config"
	"github.com/tomtom215/waypoint/internal/logging"
	"github.com/tomtom215/waypoint/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "this_is_a_very_long_secret_key_for_testing_purposes_12345",
		SessionTimeout: time.Hour,
	}
}

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManager(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Error("NewJWTManager() expected error for empty secret")
	}
	if m, err := NewJWTManager(testSecurityConfig()); err != nil || m == nil {
		t.Errorf("NewJWTManager() = %v, %v", m, err)
	}
}

func TestGenerateAndVerify(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name     string
		identity models.Identity
	}{
		{"subject", models.Identity{ID: "emp-17", Role: models.RoleSubject, Name: "Ada Lovelace"}},
		{"observer", models.Identity{ID: "admin-1", Role: models.RoleObserver}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.GenerateToken(tt.identity)
			if err != nil {
				t.Fatalf("GenerateToken() error = %v", err)
			}
			got, err := m.VerifyCredential(token)
			if err != nil {
				t.Fatalf("VerifyCredential() error = %v", err)
			}
			if got != tt.identity {
				t.Errorf("VerifyCredential() = %+v, want %+v", got, tt.identity)
			}
		})
	}
}

func TestGenerateTokenRejectsBadIdentity(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.GenerateToken(models.Identity{Role: models.RoleSubject}); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("expected ErrMissingSubject, got %v", err)
	}
	if _, err := m.GenerateToken(models.Identity{ID: "x", Role: "admin"}); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestValidateTokenFailures(t *testing.T) {
	m := newTestManager(t)
	other, _ := NewJWTManager(&config.SecurityConfig{JWTSecret: "another_secret_that_is_also_long_enough_123", SessionTimeout: time.Hour})

	foreign, _ := other.GenerateToken(models.Identity{ID: "emp-1", Role: models.RoleSubject})

	expiredManager := newTestManager(t)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredManager.GenerateToken(models.Identity{ID: "emp-1", Role: models.RoleSubject})

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "emp-1"},
	}).SignedString(m.secret)

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role:             "observer",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "emp-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"invalid role", badRole},
		{"none algorithm", noneAlg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.VerifyCredential(tt.token); err == nil {
				t.Error("VerifyCredential() expected error")
			}
		})
	}
}
