// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"

	"github.com/doughmination/backend/internal/models"
)

// Switch replaces the front with the given member IDs. An empty list is
// valid and clears the front.
func (h *Handlers) Switch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.SwitchRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	body, err := h.coord.Switch(r.Context(), req.Members)
	if err != nil {
		h.handleError(rw, err)
		return
	}

	if body == nil {
		rw.Success(map[string]interface{}{"members": req.Members})
		return
	}
	rw.Success(body)
}

// SwitchFront makes a single member (or cofront) the sole fronter. The
// identifier may be an ID or a name.
func (h *Handlers) SwitchFront(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.SingleSwitchRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	member, err := h.coord.SwitchFront(r.Context(), req.MemberID)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(member)
}

// MultiSwitch fronts several members at once.
func (h *Handlers) MultiSwitch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.MultiSwitchRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	switched, err := h.coord.MultiSwitch(r.Context(), req.MemberIDs)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{"switched": switched})
}

// CreateCofront composes a synthetic grouped member and optionally
// switches the front to it.
func (h *Handlers) CreateCofront(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.CofrontCreateRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	cofront, err := h.coord.CreateCofront(r.Context(), req)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Created(cofront)
}

// GetCofronts lists available cofronts.
func (h *Handlers) GetCofronts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cofronts, err := h.pk.Cofronts(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}
	if cofronts == nil {
		cofronts = []models.Member{}
	}
	rw.Success(cofronts)
}

// ForceRefresh drops every cache entry and tells clients to re-read.
// Admin only.
func (h *Handlers) ForceRefresh(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.coord.ForceRefresh(r.Context()); err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(map[string]string{"status": "refreshed"})
}
