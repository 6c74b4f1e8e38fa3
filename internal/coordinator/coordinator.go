// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package coordinator sequences every mutation behind a fixed protocol:
// apply the mutation, invalidate the affected cache entries, re-read the
// fresh state, then broadcast it. Broadcasts always carry post-mutation
// data; no event is ever built from a cache entry that predates the
// mutation it announces.
package coordinator

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/doughmination/backend/internal/enrich"
	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/models"
	"github.com/doughmination/backend/internal/pluralkit"
	"github.com/doughmination/backend/internal/store"
	"github.com/doughmination/backend/internal/websocket"
)

// Broadcaster is the hub surface the coordinator needs.
type Broadcaster interface {
	BroadcastEvent(group, messageType string, data interface{})
	BroadcastToInterested(messageType string, data interface{}, relatedMembers []string)
}

// Coordinator owns the mutation flow across the upstream client, the
// local stores, and the websocket hub.
type Coordinator struct {
	pk       pluralkit.API
	tags     *store.TagStore
	statuses *store.StatusStore
	mental   *store.MentalStateStore
	hub      Broadcaster
}

// New wires a coordinator.
func New(pk pluralkit.API, tags *store.TagStore, statuses *store.StatusStore, mental *store.MentalStateStore, hub Broadcaster) *Coordinator {
	return &Coordinator{
		pk:       pk,
		tags:     tags,
		statuses: statuses,
		mental:   mental,
		hub:      hub,
	}
}

// EnrichedMembers returns the member list with tag and status overlays
// attached. Shared by the read handlers and the post-mutation re-reads.
func (c *Coordinator) EnrichedMembers(ctx context.Context) ([]models.Member, error) {
	members, err := c.pk.Members(ctx)
	if err != nil {
		return nil, err
	}
	members = enrich.WithTags(members, c.tags.AllTags())
	members = enrich.WithStatus(members, c.statuses.All())
	return members, nil
}

// EnrichedFronters returns the fronting state with overlays attached to
// each fronter.
func (c *Coordinator) EnrichedFronters(ctx context.Context) (*models.Fronters, error) {
	fronters, err := c.pk.Fronters(ctx)
	if err != nil {
		return nil, err
	}
	enriched := *fronters
	enriched.Members = enrich.WithTags(fronters.Members, c.tags.AllTags())
	enriched.Members = enrich.WithStatus(enriched.Members, c.statuses.All())
	return &enriched, nil
}

// Switch replaces the front with the given member IDs (empty clears it),
// then broadcasts the fresh fronting state to everyone.
func (c *Coordinator) Switch(ctx context.Context, memberIDs []string) (json.RawMessage, error) {
	body, err := c.pk.SetFront(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	c.broadcastFronting(ctx)
	return body, nil
}

// SwitchFront makes a single member the sole fronter. The identifier may
// be a member ID or name; names are resolved against the member list.
func (c *Coordinator) SwitchFront(ctx context.Context, identifier string) (*models.Member, error) {
	member, err := c.ResolveMember(ctx, identifier)
	if err != nil {
		return nil, err
	}

	ids := []string{member.ID}
	if member.IsCofront && len(member.MemberIDs) > 0 {
		// Switching to a cofront fronts its constituent members.
		ids = member.MemberIDs
	}

	if _, err := c.pk.SetFront(ctx, ids); err != nil {
		return nil, err
	}
	c.broadcastFronting(ctx)
	return member, nil
}

// MultiSwitch fronts several members at once and reports which members
// were switched in.
func (c *Coordinator) MultiSwitch(ctx context.Context, memberIDs []string) ([]models.SwitchedMember, error) {
	members, err := c.pk.Members(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	switched := make([]models.SwitchedMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", pluralkit.ErrMemberNotFound, id)
		}
		switched = append(switched, models.SwitchedMember{
			ID:          m.ID,
			Name:        m.Name,
			DisplayName: m.DisplayName,
		})
	}

	if _, err := c.pk.SetFront(ctx, memberIDs); err != nil {
		return nil, err
	}
	c.broadcastFronting(ctx)
	return switched, nil
}

// CreateCofront composes a synthetic grouped member, optionally switches
// the front to it, and notifies interested clients.
func (c *Coordinator) CreateCofront(ctx context.Context, req models.CofrontCreateRequest) (*models.Member, error) {
	cofront, err := c.pk.CreateCofront(ctx, req.MemberIDs, req.Name)
	if err != nil {
		return nil, err
	}

	if req.SetAsCurrent {
		if _, err := c.pk.SetFront(ctx, req.MemberIDs); err != nil {
			return nil, err
		}
		c.broadcastFronting(ctx)
	}

	c.hub.BroadcastToInterested(websocket.MessageTypeCofrontUpdate, cofront, req.MemberIDs)
	return cofront, nil
}

// UpdateMentalState records a new mental state and broadcasts it to
// everyone.
func (c *Coordinator) UpdateMentalState(level, notes string) (models.MentalState, error) {
	state, err := c.mental.Set(level, notes)
	if err != nil {
		return models.MentalState{}, err
	}
	c.hub.BroadcastEvent(websocket.GroupAll, websocket.MessageTypeMentalStateUpdate, state)
	return state, nil
}

// SetTags replaces a member's tag set and propagates the change.
func (c *Coordinator) SetTags(ctx context.Context, key string, tags []string) error {
	if err := c.tags.SetTags(key, tags); err != nil {
		return err
	}
	return c.refreshMembers(ctx)
}

// AddTag appends a tag to a member's set and propagates the change.
func (c *Coordinator) AddTag(ctx context.Context, key, tag string) error {
	if err := c.tags.AddTag(key, tag); err != nil {
		return err
	}
	return c.refreshMembers(ctx)
}

// RemoveTag removes a tag from a member's set and propagates the change.
func (c *Coordinator) RemoveTag(ctx context.Context, key, tag string) error {
	if err := c.tags.RemoveTag(key, tag); err != nil {
		return err
	}
	return c.refreshMembers(ctx)
}

// SetStatus stores a member's status and propagates the change.
func (c *Coordinator) SetStatus(ctx context.Context, key, text, emoji string) (models.MemberStatus, error) {
	status, err := c.statuses.Set(key, text, emoji)
	if err != nil {
		return models.MemberStatus{}, err
	}
	if err := c.refreshMembers(ctx); err != nil {
		return status, err
	}
	return status, nil
}

// ClearStatus removes a member's status and propagates the change.
func (c *Coordinator) ClearStatus(ctx context.Context, key string) error {
	if err := c.statuses.Clear(key); err != nil {
		return err
	}
	return c.refreshMembers(ctx)
}

// ForceRefresh drops every derived cache entry and tells clients to
// re-read. Used by the admin refresh endpoint.
func (c *Coordinator) ForceRefresh(ctx context.Context) error {
	c.pk.InvalidateMembers()
	c.pk.InvalidateFronters()

	members, err := c.EnrichedMembers(ctx)
	if err != nil {
		return err
	}
	c.hub.BroadcastEvent(websocket.GroupAll, websocket.MessageTypeMembersUpdate, members)
	c.broadcastFronting(ctx)
	c.hub.BroadcastEvent(websocket.GroupAll, websocket.MessageTypeForceRefresh, nil)
	return nil
}

// refreshMembers invalidates both member cache tiers, re-reads the fresh
// enriched list, and broadcasts it. The invalidation happens before the
// re-read, so the broadcast can only ever carry post-mutation data.
func (c *Coordinator) refreshMembers(ctx context.Context) error {
	c.pk.InvalidateMembers()

	members, err := c.EnrichedMembers(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to re-read members after mutation")
		return err
	}

	c.hub.BroadcastEvent(websocket.GroupAll, websocket.MessageTypeMembersUpdate, members)
	return nil
}

// broadcastFronting reads the fresh fronting state and broadcasts it. A
// failed re-read is logged but does not fail the mutation that triggered
// it: the switch itself already succeeded upstream.
func (c *Coordinator) broadcastFronting(ctx context.Context) {
	fronters, err := c.EnrichedFronters(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("failed to re-read fronters after switch")
		return
	}
	c.hub.BroadcastEvent(websocket.GroupAll, websocket.MessageTypeFrontingUpdate, fronters)
}

// ResolveMember finds a member by ID or, failing that, by name or
// display name. ID matches always win.
func (c *Coordinator) ResolveMember(ctx context.Context, identifier string) (*models.Member, error) {
	members, err := c.EnrichedMembers(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range members {
		if m.ID == identifier {
			member := m
			return &member, nil
		}
	}
	for _, m := range members {
		if m.Name == identifier || m.DisplayName == identifier {
			member := m
			return &member, nil
		}
	}

	cofronts, err := c.pk.Cofronts(ctx)
	if err == nil {
		for _, m := range cofronts {
			if m.ID == identifier || m.Name == identifier {
				member := m
				return &member, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", pluralkit.ErrMemberNotFound, identifier)
}
