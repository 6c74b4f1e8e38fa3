// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package pluralkit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/doughmination/backend/internal/cache"
	"github.com/doughmination/backend/internal/config"
)

type upstreamCounts struct {
	members  atomic.Int64
	fronters atomic.Int64
	system   atomic.Int64
	switches atomic.Int64
}

func newTestUpstream(t *testing.T, counts *upstreamCounts) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/systems/@me", func(w http.ResponseWriter, r *http.Request) {
		counts.system.Add(1)
		writeJSON(w, map[string]interface{}{
			"id":   "sysid",
			"name": "Doughmination",
		})
	})
	mux.HandleFunc("/systems/@me/members", func(w http.ResponseWriter, r *http.Request) {
		counts.members.Add(1)
		writeJSON(w, []map[string]interface{}{
			{"id": "aaaaa", "name": "Alice", "display_name": "Alice!"},
			{"id": "bbbbb", "name": "sleeping"},
			{"id": "ccccc", "name": "answer"},
			{"id": "ddddd", "name": "system", "color": "ff0000"},
		})
	})
	mux.HandleFunc("/systems/@me/fronters", func(w http.ResponseWriter, r *http.Request) {
		counts.fronters.Add(1)
		writeJSON(w, map[string]interface{}{
			"id":        "switchid",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"members": []map[string]interface{}{
				{"id": "bbbbb", "name": "sleeping"},
			},
		})
	})
	mux.HandleFunc("/systems/@me/switches", func(w http.ResponseWriter, r *http.Request) {
		counts.switches.Add(1)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string][]string
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, ok := payload["members"]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, baseURL string) (*Client, *cache.Store) {
	t.Helper()
	store := cache.New()
	client := NewClient(&config.PluralKitConfig{
		BaseURL:     baseURL,
		Token:       "test-token",
		CacheTTL:    time.Minute,
		MaxFronters: 3,
		Timeout:     5 * time.Second,
	}, store)
	return client, store
}

func TestMembersAppliesSpecialDisplayNames(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)

	members, err := client.Members(context.Background())
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 4 {
		t.Fatalf("expected 4 members, got %d", len(members))
	}

	byName := make(map[string]int)
	for i, m := range members {
		byName[m.Name] = i
	}

	alice := members[byName["Alice"]]
	if alice.IsSpecial || alice.DisplayName != "Alice!" {
		t.Errorf("regular member altered: %+v", alice)
	}

	sleeping := members[byName["sleeping"]]
	if !sleeping.IsSpecial {
		t.Error("expected sleeping member to be flagged special")
	}
	if sleeping.DisplayName != "I am sleeping" {
		t.Errorf("expected display name %q, got %q", "I am sleeping", sleeping.DisplayName)
	}
	if sleeping.OriginalName != "sleeping" {
		t.Errorf("expected original name preserved, got %q", sleeping.OriginalName)
	}

	answer := members[byName["answer"]]
	if answer.DisplayName != "Answer Machine" {
		t.Errorf("expected display name %q, got %q", "Answer Machine", answer.DisplayName)
	}

	// A member literally named "system" is always shown as "Unsure",
	// regardless of its other fields.
	unsure := members[byName["system"]]
	if unsure.DisplayName != "Unsure" || !unsure.IsSpecial {
		t.Errorf("expected system member mapped to Unsure, got %+v", unsure)
	}
	if unsure.Color != "ff0000" {
		t.Errorf("other fields must pass through untouched, got %+v", unsure)
	}
}

func TestMembersReadThroughCache(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)

	ctx := context.Background()
	if _, err := client.Members(ctx); err != nil {
		t.Fatalf("first Members failed: %v", err)
	}
	if _, err := client.Members(ctx); err != nil {
		t.Fatalf("second Members failed: %v", err)
	}
	if got := counts.members.Load(); got != 1 {
		t.Errorf("expected 1 upstream fetch for cached reads, got %d", got)
	}
}

func TestInvalidateMembersDropsBothTiers(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, store := newTestClient(t, server.URL)

	ctx := context.Background()
	if _, err := client.Members(ctx); err != nil {
		t.Fatalf("Members failed: %v", err)
	}

	client.InvalidateMembers()

	if _, ok := store.Get(cacheKeyMembersRaw); ok {
		t.Error("raw tier still cached after invalidation")
	}
	if _, ok := store.Get(cacheKeyMembers); ok {
		t.Error("processed tier still cached after invalidation")
	}

	if _, err := client.Members(ctx); err != nil {
		t.Fatalf("Members after invalidation failed: %v", err)
	}
	if got := counts.members.Load(); got != 2 {
		t.Errorf("expected refetch after invalidation, got %d upstream fetches", got)
	}
}

func TestFrontersResolvedAgainstProcessedMembers(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)

	fronters, err := client.Fronters(context.Background())
	if err != nil {
		t.Fatalf("Fronters failed: %v", err)
	}
	if len(fronters.Members) != 1 {
		t.Fatalf("expected 1 fronter, got %d", len(fronters.Members))
	}
	if fronters.Members[0].DisplayName != "I am sleeping" {
		t.Errorf("fronter not resolved against processed members: %+v", fronters.Members[0])
	}
}

func TestSetFrontRejectsTooManyBeforeRemoteCall(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)

	_, err := client.SetFront(context.Background(), []string{"a", "b", "c", "d"})
	if !errors.Is(err, ErrTooManyFronters) {
		t.Fatalf("expected ErrTooManyFronters, got %v", err)
	}
	if got := counts.switches.Load(); got != 0 {
		t.Errorf("expected no remote call on validation failure, got %d", got)
	}
}

func TestSetFrontInvalidatesBeforeRemoteWrite(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, store := newTestClient(t, server.URL)

	ctx := context.Background()
	if _, err := client.Fronters(ctx); err != nil {
		t.Fatalf("Fronters failed: %v", err)
	}
	if _, ok := store.Get(cacheKeyFronters); !ok {
		t.Fatal("expected fronters cached after read")
	}

	body, err := client.SetFront(ctx, []string{"aaaaa"})
	if err != nil {
		t.Fatalf("SetFront failed: %v", err)
	}
	if body != nil {
		t.Errorf("expected nil body for 204 response, got %q", string(body))
	}
	if _, ok := store.Get(cacheKeyFronters); ok {
		t.Error("fronters still cached after switch")
	}
}

func TestSetFrontEmptyListClearsFront(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)

	if _, err := client.SetFront(context.Background(), nil); err != nil {
		t.Fatalf("SetFront with empty list failed: %v", err)
	}
	if got := counts.switches.Load(); got != 1 {
		t.Errorf("expected 1 switch call, got %d", got)
	}
}

func TestSetFrontSurfacesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid member"}`))
	}))
	t.Cleanup(server.Close)

	client, _ := newTestClient(t, server.URL)
	_, err := client.SetFront(context.Background(), []string{"zzzzz"})

	ue, ok := IsUpstreamError(err)
	if !ok {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", ue.StatusCode)
	}
	if ue.Body != `{"message":"invalid member"}` {
		t.Errorf("expected remote body preserved, got %q", ue.Body)
	}
}

func TestCreateCofrontValidation(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)
	ctx := context.Background()

	if _, err := client.CreateCofront(ctx, []string{"aaaaa"}, ""); !errors.Is(err, ErrCofrontTooSmall) {
		t.Errorf("expected ErrCofrontTooSmall, got %v", err)
	}
	if _, err := client.CreateCofront(ctx, []string{"a", "b", "c", "d"}, ""); !errors.Is(err, ErrTooManyFronters) {
		t.Errorf("expected ErrTooManyFronters, got %v", err)
	}
	if _, err := client.CreateCofront(ctx, []string{"aaaaa", "zzzzz"}, ""); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestCreateCofrontComposesSyntheticMember(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)
	ctx := context.Background()

	cofront, err := client.CreateCofront(ctx, []string{"bbbbb", "aaaaa"}, "")
	if err != nil {
		t.Fatalf("CreateCofront failed: %v", err)
	}
	if !cofront.IsCofront {
		t.Error("expected cofront flag set")
	}
	// ID derives from sorted member IDs, so the same grouping is stable.
	if cofront.ID != "cofront-aaaaa-bbbbb" {
		t.Errorf("unexpected cofront id %q", cofront.ID)
	}
	if cofront.DisplayName != "I am sleeping & Alice!" {
		t.Errorf("unexpected cofront display name %q", cofront.DisplayName)
	}
	if len(cofront.MemberIDs) != 2 || cofront.MemberIDs[0] != "bbbbb" {
		t.Errorf("expected member order preserved, got %v", cofront.MemberIDs)
	}

	cofronts, err := client.Cofronts(ctx)
	if err != nil {
		t.Fatalf("Cofronts failed: %v", err)
	}
	found := false
	for _, m := range cofronts {
		if m.ID == cofront.ID {
			found = true
		}
	}
	if !found {
		t.Error("dynamic cofront not listed")
	}
}

func TestCreateCofrontNamedOverride(t *testing.T) {
	counts := &upstreamCounts{}
	server := newTestUpstream(t, counts)
	client, _ := newTestClient(t, server.URL)

	cofront, err := client.CreateCofront(context.Background(), []string{"aaaaa", "ccccc"}, "The Committee")
	if err != nil {
		t.Fatalf("CreateCofront failed: %v", err)
	}
	if cofront.DisplayName != "The Committee" {
		t.Errorf("expected explicit name kept, got %q", cofront.DisplayName)
	}
}
