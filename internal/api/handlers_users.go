// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doughmination/backend/internal/auth"
	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/models"
)

// Login authenticates a user and returns a session token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.LoginRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		logging.Warn().Str("username", req.Username).Msg("failed login attempt")
		h.handleError(rw, err)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		rw.InternalError("failed to create session")
		return
	}

	rw.Success(map[string]interface{}{
		"token": token,
		"user":  user.Response(),
	})
}

// IsAdmin reports whether the current session belongs to an admin.
func (h *Handlers) IsAdmin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}
	rw.Success(map[string]bool{"is_admin": claims.IsAdmin})
}

// CurrentUser returns the account behind the current session.
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	user, err := h.users.Get(claims.UserID)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(user.Response())
}

// ListUsers returns all accounts. Admin only.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	users := h.users.List()
	out := make([]models.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, users[i].Response())
	}
	rw.Success(out)
}

// CreateUser adds an account. Admin only.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.UserCreateRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	user, err := h.users.Create(req.Username, req.Password, req.DisplayName, req.IsAdmin)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Created(user.Response())
}

// GetUser returns one account. Admin only.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	user, err := h.users.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(user.Response())
}

// UpdateUser applies a partial update to an account. Users may update
// themselves; admins may update anyone.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id != claims.UserID && !claims.IsAdmin {
		rw.Forbidden("cannot modify another user's account")
		return
	}

	var req models.UserUpdateRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	user, err := h.users.Update(id, req)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(user.Response())
}

// DeleteUser removes an account. Admin only; self-deletion is refused so
// the last admin cannot lock everyone out by accident.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if id == claims.UserID {
		rw.BadRequest("cannot delete your own account")
		return
	}

	if err := h.users.Delete(id); err != nil {
		h.handleError(rw, err)
		return
	}
	rw.NoContent()
}
