// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/doughmination/backend/internal/enrich"
	"github.com/doughmination/backend/internal/models"
)

// GetMembers returns the enriched member list. Supports ?tag= to filter
// by a single tag and ?subsystem= as an alias for the same thing.
func (h *Handlers) GetMembers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	members, err := h.coord.EnrichedMembers(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}

	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = r.URL.Query().Get("subsystem")
	}
	if tag != "" {
		members = enrich.FilterByTag(members, tag)
	}

	if members == nil {
		members = []models.Member{}
	}
	rw.Success(members)
}

// GetMembersBySubsystem returns members grouped into one bucket per
// configured subsystem, plus "untagged" and "host" buckets.
func (h *Handlers) GetMembersBySubsystem(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	members, err := h.coord.EnrichedMembers(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}

	groups := enrich.GroupBySubsystem(members, h.tags.Subsystems())
	for label, bucket := range groups {
		if bucket == nil {
			groups[label] = []models.Member{}
		}
	}
	rw.Success(map[string]interface{}{"subsystems": groups})
}

// GetFilteredMembers filters the member list by subsystem tag. The
// ?include_untagged= flag (default true) also passes through members
// carrying no tags at all.
func (h *Handlers) GetFilteredMembers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	subsystem := r.URL.Query().Get("subsystem")
	if subsystem != "" && !h.tags.ValidTag(subsystem) && subsystem != enrich.BucketUntagged {
		rw.BadRequest("unknown subsystem filter")
		return
	}

	includeUntagged := true
	if raw := r.URL.Query().Get("include_untagged"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			rw.BadRequest("include_untagged must be a boolean")
			return
		}
		includeUntagged = v
	}

	members, err := h.coord.EnrichedMembers(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}

	filtered := enrich.FilterBySubsystem(members, subsystem, includeUntagged)
	if filtered == nil {
		filtered = []models.Member{}
	}
	rw.Success(map[string]interface{}{
		"members": filtered,
		"filter": map[string]interface{}{
			"subsystem":        subsystem,
			"include_untagged": includeUntagged,
		},
	})
}

// GetMember returns one member by ID or name.
func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(member)
}

// GetFronters returns the current fronting state with overlays attached.
func (h *Handlers) GetFronters(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	fronters, err := h.coord.EnrichedFronters(r.Context())
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(fronters)
}

// GetMemberStatus returns a member's status overlay, null when unset.
func (h *Handlers) GetMemberStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(map[string]interface{}{"member": member.ID, "status": member.Status})
}

// SetMemberStatus stores a status overlay for a member.
func (h *Handlers) SetMemberStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req models.StatusRequest
	if !h.decodeAndValidate(rw, r, &req) {
		return
	}

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}

	status, err := h.coord.SetStatus(r.Context(), member.ID, req.Text, req.Emoji)
	if err != nil {
		h.handleError(rw, err)
		return
	}
	rw.Success(status)
}

// ClearMemberStatus removes a member's status overlay.
func (h *Handlers) ClearMemberStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	member, err := h.coord.ResolveMember(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		h.handleError(rw, err)
		return
	}

	if err := h.coord.ClearStatus(r.Context(), member.ID); err != nil {
		h.handleError(rw, err)
		return
	}
	rw.NoContent()
}
