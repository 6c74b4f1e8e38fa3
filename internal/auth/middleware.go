// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/doughmination/backend/internal/logging"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ClaimsFromContext returns the session claims attached by the middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// ContextWithClaims attaches session claims to a context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// TokenFromRequest extracts the bearer token from the Authorization
// header, falling back to the "token" query parameter for websocket
// clients that cannot set headers.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Authenticate rejects requests without a valid session token.
func (m *JWTManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := m.ValidateToken(token)
		if err != nil {
			logging.Debug().Err(err).Msg("rejected invalid session token")
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// RequireAdmin rejects authenticated requests from non-admin users.
// Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !claims.IsAdmin {
			writeAuthError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuth attaches claims when a valid token is present but lets
// anonymous requests through. Used by the websocket endpoint, where
// authentication only widens the subscription groups.
func (m *JWTManager) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := TokenFromRequest(r); token != "" {
			if claims, err := m.ValidateToken(token); err == nil {
				r = r.WithContext(ContextWithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
