// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/doughmination/backend/internal/auth"
	"github.com/doughmination/backend/internal/config"
	"github.com/doughmination/backend/internal/coordinator"
	"github.com/doughmination/backend/internal/pluralkit"
	"github.com/doughmination/backend/internal/store"
	"github.com/doughmination/backend/internal/websocket"
)

// Handlers bundles the dependencies every endpoint needs.
type Handlers struct {
	cfg      *config.Config
	pk       pluralkit.API
	coord    *coordinator.Coordinator
	tags     *store.TagStore
	statuses *store.StatusStore
	mental   *store.MentalStateStore
	users    *store.UserStore
	jwt      *auth.JWTManager
	hub      *websocket.Hub
	validate *validator.Validate
}

// NewHandlers wires the handler set.
func NewHandlers(
	cfg *config.Config,
	pk pluralkit.API,
	coord *coordinator.Coordinator,
	tags *store.TagStore,
	statuses *store.StatusStore,
	mental *store.MentalStateStore,
	users *store.UserStore,
	jwt *auth.JWTManager,
	hub *websocket.Hub,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		pk:       pk,
		coord:    coord,
		tags:     tags,
		statuses: statuses,
		mental:   mental,
		users:    users,
		jwt:      jwt,
		hub:      hub,
		validate: validator.New(),
	}
}

// decodeAndValidate parses a JSON body into target and runs struct
// validation. Returns false after writing the error response.
func (h *Handlers) decodeAndValidate(rw *ResponseWriter, r *http.Request, target interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fe.Field()+" failed "+fe.Tag()+" validation")
			}
			rw.ValidationError("request validation failed", details)
		} else {
			rw.BadRequest("request validation failed")
		}
		return false
	}
	return true
}

// handleError maps domain errors to HTTP responses. Validation failures
// become 400s, missing resources 404s, upstream failures 502s with the
// remote status and body preserved.
func (h *Handlers) handleError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, pluralkit.ErrTooManyFronters),
		errors.Is(err, pluralkit.ErrCofrontTooSmall),
		errors.Is(err, store.ErrInvalidTag),
		errors.Is(err, store.ErrStatusTooLong),
		errors.Is(err, store.ErrInvalidMentalState):
		rw.BadRequest(err.Error())

	case errors.Is(err, pluralkit.ErrMemberNotFound),
		errors.Is(err, store.ErrTagNotFound),
		errors.Is(err, store.ErrStatusNotFound),
		errors.Is(err, store.ErrUserNotFound):
		rw.NotFound(err.Error())

	case errors.Is(err, store.ErrUsernameTaken):
		rw.Conflict(err.Error())

	case errors.Is(err, store.ErrInvalidCredentials):
		rw.Unauthorized("invalid credentials")

	default:
		if ue, ok := pluralkit.IsUpstreamError(err); ok {
			rw.UpstreamError(err, ue.StatusCode, ue.Body)
			return
		}
		rw.InternalError(err.Error())
	}
}
