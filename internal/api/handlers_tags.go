// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/doughmination/backend/internal/enrich"
	"github.com/doughmination/backend/internal/models"
)

// GetSubsystems returns the subsystem definitions with their members
// grouped in.
func (h *Handlers) GetSubsystems(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	members, err := h.coord.EnrichedMembers(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}

	subsystems := h.tags.Subsystems()
	groups := enrich.GroupBySubsystem(members, subsystems)

	type subsystemView struct {
		models.SubSystem
		Members []models.Member `json:"members"`
	}
	out := make([]subsystemView, 0, len(subsystems))
	for _, sub := range subsystems {
		bucket := groups[sub.Label]
		if bucket == nil {
			bucket = []models.Member{}
		}
		out = append(out, subsystemView{SubSystem: sub, Members: bucket})
	}
	rw.Success(out)
}

// ListMemberTags returns every tag assignment keyed by member.
func (h *Handlers) ListMemberTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(map[string]interface{}{"member_tags": h.tags.AllTags()})
}

// GetMemberTags returns the tags assigned to a member.
func (h *Handlers) GetMemberTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}

	tags := member.Tags
	if tags == nil {
		tags = []string{}
	}
	rw.Success(map[string]interface{}{"member": member.ID, "tags": tags})
}

// UpdateMemberTags replaces a member's tag set.
func (h *Handlers) UpdateMemberTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.TagUpdateRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}

	if err := h.coord.SetTags(r.Context(), member.ID, req.Tags); err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{"member": member.ID, "tags": req.Tags})
}

// AddMemberTag appends one tag to a member's set.
func (h *Handlers) AddMemberTag(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.TagAddRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}

	if err := h.coord.AddTag(r.Context(), member.ID, req.Tag); err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{"member": member.ID, "tags": h.tags.TagsFor(member.ID)})
}

// RemoveMemberTag removes one tag from a member's set.
func (h *Handlers) RemoveMemberTag(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}

	if err := h.coord.RemoveTag(r.Context(), member.ID, chi.URLParam(r, "tag")); err != nil {
		h.handleError(rw, err)
		return
	}
	rw.NoContent()
}
