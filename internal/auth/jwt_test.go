// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doughmination/backend/internal/config"
)

func newTestManager(t *testing.T, timeout time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken("uid-1", "dough", true)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "uid-1" || claims.Username != "dough" || !claims.IsAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newTestManager(t, -time.Minute)

	token, err := m.GenerateToken("uid-1", "dough", false)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other := newTestManager(t, time.Hour)
	other.secret = []byte("ffffffffffffffffffffffffffffffff")

	token, err := other.GenerateToken("uid-1", "dough", true)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected token signed with a different secret to be rejected")
	}
}

func TestAuthenticateMiddleware(t *testing.T) {
	m := newTestManager(t, time.Hour)

	var gotClaims *Claims
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	// Valid bearer token.
	token, _ := m.GenerateToken("uid-1", "dough", false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if gotClaims == nil || gotClaims.Username != "dough" {
		t.Errorf("claims not attached to context: %+v", gotClaims)
	}

	// Token via query parameter (websocket path).
	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with query token, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	m := newTestManager(t, time.Hour)
	handler := m.Authenticate(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	userToken, _ := m.GenerateToken("uid-1", "dough", false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin, got %d", rec.Code)
	}

	adminToken, _ := m.GenerateToken("uid-2", "admin", true)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestOptionalAuth(t *testing.T) {
	m := newTestManager(t, time.Hour)

	var authed bool
	handler := m.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, authed = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || authed {
		t.Errorf("anonymous request should pass unauthenticated, code=%d authed=%v", rec.Code, authed)
	}

	token, _ := m.GenerateToken("uid-1", "dough", false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !authed {
		t.Error("valid token should attach claims")
	}
}
