// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"

	"github.com/doughmination/backend/internal/models"
)

// GetSystem returns the system record with the current mental state
// attached.
func (h *Handlers) GetSystem(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	system, err := h.pk.System(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}

	// Overlay is locally owned; attach on a copy so the cached record
	// stays clean.
	out := *system
	state := h.mental.Get()
	out.MentalState = &state

	rw.Success(out)
}

// GetMentalState returns the current mental state.
func (h *Handlers) GetMentalState(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.mental.Get())
}

type mentalStateRequest struct {
	Level string `json:"level" validate:"required"`
	Notes string `json:"notes"`
}

// UpdateMentalState records a new mental state and broadcasts it.
func (h *Handlers) UpdateMentalState(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req mentalStateRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	state, err := h.coord.UpdateMentalState(req.Level, req.Notes)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(state)
}

// GetMentalStateLevels returns the accepted mental-state levels.
func (h *Handlers) GetMentalStateLevels(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(models.MentalStateLevels)
}

// Health reports liveness plus connection counts for quick diagnostics.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":            "ok",
		"websocket_clients": h.hub.GroupSize("all"),
	})
}
