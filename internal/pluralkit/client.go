// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package pluralkit implements the read-through/write-through client for
// the PluralKit system API.
//
// All reads go through the shared cache store with a short TTL; all writes
// invalidate the derived cache entries so the next read refetches fresh
// data. Member data is cached in two tiers: a raw tier holding the
// unprocessed upstream list, and a processed tier holding the
// display-adjusted list (special display names applied). The processed
// tier is a pure function of the raw tier, so the two are always
// invalidated together.
package pluralkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/doughmination/backend/internal/cache"
	"github.com/doughmination/backend/internal/config"
	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/metrics"
	"github.com/doughmination/backend/internal/models"
)

// Cache keys. Each key is an independent unit of consistency.
const (
	cacheKeySystem     = "system"
	cacheKeyMembersRaw = "members_raw"
	cacheKeyMembers    = "members"
	cacheKeyFronters   = "fronters"
)

// SpecialDisplayNames maps internal member names to the human-readable
// aliases shown everywhere a member is rendered. Matched members are
// flagged is_special with their original name preserved.
var SpecialDisplayNames = map[string]string{
	"answer":   "Answer Machine",
	"system":   "Unsure",
	"sleeping": "I am sleeping",
}

// maxErrorBodySize limits how much of an upstream error body is retained.
const maxErrorBodySize = 64 * 1024

// API is the upstream operations surface consumed by the coordinator and
// the HTTP handlers. Implemented by Client and by CircuitBreakerClient.
type API interface {
	System(ctx context.Context) (*models.System, error)
	Members(ctx context.Context) ([]models.Member, error)
	Fronters(ctx context.Context) (*models.Fronters, error)
	SetFront(ctx context.Context, memberIDs []string) (json.RawMessage, error)
	CreateCofront(ctx context.Context, memberIDs []string, name string) (*models.Member, error)
	Cofronts(ctx context.Context) ([]models.Member, error)
	InvalidateMembers()
	InvalidateFronters()
	MaxFronters() int
}

// Client talks to the PluralKit API with read-through caching.
//
// Concurrent SetFront calls have last-remote-write-wins semantics: the
// fronters entry is invalidated before the remote write, which bounds the
// staleness window but does not serialize two in-flight switches. That is
// acceptable for the single-writer admin use case and is intentionally
// not papered over with locking.
type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	cache       *cache.Store
	ttl         time.Duration
	maxFronters int

	// Dynamic cofronts composed at runtime. Process-scoped, like the
	// cache: not persisted across restarts.
	mu       sync.RWMutex
	cofronts map[string]models.Member
}

// NewClient creates a PluralKit client backed by the given cache store.
func NewClient(cfg *config.PluralKitConfig, store *cache.Store) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:       store,
		ttl:         cfg.CacheTTL,
		maxFronters: cfg.MaxFronters,
		cofronts:    make(map[string]models.Member),
	}
}

// MaxFronters returns the configured upper bound on simultaneous fronters.
func (c *Client) MaxFronters() int {
	return c.maxFronters
}

// System fetches the system record, read-through the "system" cache key.
func (c *Client) System(ctx context.Context) (*models.System, error) {
	if cached, ok := c.cache.Get(cacheKeySystem); ok {
		if sys, ok := cached.(*models.System); ok {
			return sys, nil
		}
	}

	sys := &models.System{}
	if err := c.getJSON(ctx, "system", "/systems/@me", sys); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKeySystem, sys, c.ttl)
	return sys, nil
}

// Members fetches the display-adjusted member list.
//
// Two cache tiers are involved: "members_raw" holds the unprocessed
// upstream list, "members" holds the processed list with special display
// names applied. A processed-tier hit short-circuits everything; a miss
// falls back to the raw tier and reprocesses; a raw miss refetches from
// upstream.
func (c *Client) Members(ctx context.Context) ([]models.Member, error) {
	if cached, ok := c.cache.Get(cacheKeyMembers); ok {
		if members, ok := cached.([]models.Member); ok {
			return members, nil
		}
	}

	raw, err := c.rawMembers(ctx)
	if err != nil {
		return nil, err
	}

	processed := processMembers(raw)
	c.cache.Set(cacheKeyMembers, processed, c.ttl)
	return processed, nil
}

// rawMembers fetches the unprocessed member list, read-through the raw tier.
func (c *Client) rawMembers(ctx context.Context) ([]models.Member, error) {
	if cached, ok := c.cache.Get(cacheKeyMembersRaw); ok {
		if members, ok := cached.([]models.Member); ok {
			return members, nil
		}
	}

	var raw []models.Member
	if err := c.getJSON(ctx, "members", "/systems/@me/members", &raw); err != nil {
		return nil, err
	}

	c.cache.Set(cacheKeyMembersRaw, raw, c.ttl)
	return raw, nil
}

// processMembers applies the special display-name table. Pure function of
// the raw list; the result is what the processed tier caches.
func processMembers(raw []models.Member) []models.Member {
	processed := make([]models.Member, len(raw))
	for i, member := range raw {
		if alias, ok := SpecialDisplayNames[member.Name]; ok {
			member.DisplayName = alias
			member.IsSpecial = true
			member.OriginalName = member.Name
		}
		processed[i] = member
	}
	return processed
}

// Fronters fetches the current fronting state, read-through the "fronters"
// cache key. Each fronter is re-resolved against the processed member list
// so special display names appear consistently in fronting data.
func (c *Client) Fronters(ctx context.Context) (*models.Fronters, error) {
	if cached, ok := c.cache.Get(cacheKeyFronters); ok {
		if fronters, ok := cached.(*models.Fronters); ok {
			return fronters, nil
		}
	}

	fronters := &models.Fronters{}
	if err := c.getJSON(ctx, "fronters", "/systems/@me/fronters", fronters); err != nil {
		return nil, err
	}

	if len(fronters.Members) > 0 {
		all, err := c.Members(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]models.Member, len(all))
		for _, m := range all {
			byID[m.ID] = m
		}
		for i, fronter := range fronters.Members {
			if processed, ok := byID[fronter.ID]; ok {
				fronters.Members[i] = processed
			}
		}
	}

	c.cache.Set(cacheKeyFronters, fronters, c.ttl)
	return fronters, nil
}

// SetFront replaces the current front with the given member IDs. An empty
// list clears the front.
//
// The fronters cache entry is invalidated BEFORE the remote write is
// issued so a concurrent reader cannot observe a stale hit while the
// switch is in flight. Any non-2xx remote response is propagated as an
// UpstreamError carrying the remote status and body. The remote response
// body is returned when present, nil for a bodyless 204.
func (c *Client) SetFront(ctx context.Context, memberIDs []string) (json.RawMessage, error) {
	if len(memberIDs) > c.maxFronters {
		return nil, fmt.Errorf("%w: cannot have more than %d members fronting at once", ErrTooManyFronters, c.maxFronters)
	}

	// Invalidate before the remote write. Ordering matters: see above.
	c.InvalidateFronters()

	payload, err := json.Marshal(models.SwitchRequest{Members: memberIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode switch payload: %w", err)
	}
	if memberIDs == nil {
		// PluralKit requires an explicit empty array to clear the front.
		payload = []byte(`{"members":[]}`)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/systems/@me/switches", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create switch request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	metrics.RecordUpstreamRequest("set_front", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("switch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, &UpstreamError{
			Operation:  "set_front",
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return nil, nil
	}

	logging.Debug().Int("members", len(memberIDs)).Msg("front switched upstream")
	return json.RawMessage(body), nil
}

// CreateCofront composes a synthetic grouped member from 2..MaxFronters
// existing members. It does not switch the front; callers opt into that
// separately.
func (c *Client) CreateCofront(ctx context.Context, memberIDs []string, name string) (*models.Member, error) {
	if len(memberIDs) < 2 {
		return nil, ErrCofrontTooSmall
	}
	if len(memberIDs) > c.maxFronters {
		return nil, fmt.Errorf("%w: cannot have more than %d members in a cofront", ErrTooManyFronters, c.maxFronters)
	}

	all, err := c.Members(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Member, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}

	selected := make([]models.Member, 0, len(memberIDs))
	for _, id := range memberIDs {
		member, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
		}
		selected = append(selected, member)
	}

	cofront := composeCofront(selected, name)

	c.mu.Lock()
	c.cofronts[cofront.ID] = cofront
	c.mu.Unlock()

	logging.Info().Str("cofront", cofront.ID).Int("members", len(memberIDs)).Msg("dynamic cofront created")
	return &cofront, nil
}

// composeCofront builds the synthetic member record for a cofront. The ID
// is derived from the sorted member IDs so recreating the same grouping
// yields the same cofront.
func composeCofront(members []models.Member, name string) models.Member {
	ids := make([]string, len(members))
	names := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
		display := m.DisplayName
		if display == "" {
			display = m.Name
		}
		names[i] = display
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	displayName := name
	if displayName == "" {
		displayName = strings.Join(names, " & ")
	}

	return models.Member{
		ID:          "cofront-" + strings.Join(sorted, "-"),
		Name:        displayName,
		DisplayName: displayName,
		AvatarURL:   members[0].AvatarURL,
		Color:       members[0].Color,
		IsCofront:   true,
		MemberIDs:   ids,
	}
}

// Cofronts returns all available cofronts: upstream members flagged as
// cofronts plus any dynamic cofronts composed at runtime.
func (c *Client) Cofronts(ctx context.Context) ([]models.Member, error) {
	all, err := c.Members(ctx)
	if err != nil {
		return nil, err
	}

	var cofronts []models.Member
	for _, m := range all {
		if m.IsCofront {
			cofronts = append(cofronts, m)
		}
	}

	c.mu.RLock()
	dynamic := make([]models.Member, 0, len(c.cofronts))
	for _, m := range c.cofronts {
		dynamic = append(dynamic, m)
	}
	c.mu.RUnlock()

	sort.Slice(dynamic, func(i, j int) bool { return dynamic[i].ID < dynamic[j].ID })
	return append(cofronts, dynamic...), nil
}

// InvalidateMembers drops BOTH member cache tiers. The processed tier is a
// pure function of the raw tier; invalidating only raw would leave a
// stale processed hit, so the two always go together.
func (c *Client) InvalidateMembers() {
	c.cache.Invalidate(cacheKeyMembersRaw)
	c.cache.Invalidate(cacheKeyMembers)
}

// InvalidateFronters drops the fronters cache entry.
func (c *Client) InvalidateFronters() {
	c.cache.Invalidate(cacheKeyFronters)
}

// getJSON performs an authenticated GET against the API and decodes the
// JSON response. Non-2xx statuses become UpstreamErrors with the remote
// status and body attached.
func (c *Client) getJSON(ctx context.Context, operation, path string, result interface{}) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	metrics.RecordUpstreamRequest(operation, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(readBodyForError(resp.Body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// readBodyForError reads at most maxErrorBodySize of a response body for
// error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
