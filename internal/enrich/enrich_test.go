// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package enrich

import (
	"testing"

	"github.com/doughmination/backend/internal/models"
)

func TestTagLookupPrefersIDOverName(t *testing.T) {
	member := models.Member{ID: "aaaaa", Name: "Alice"}
	tags := map[string][]string{
		"aaaaa": {"daycare"},
		"Alice": {"defenders"},
	}

	got := TagsFor(member, tags)
	if len(got) != 1 || got[0] != "daycare" {
		t.Errorf("expected ID-keyed tags to win, got %v", got)
	}
}

func TestTagLookupFallsBackToName(t *testing.T) {
	member := models.Member{ID: "aaaaa", Name: "Alice"}
	tags := map[string][]string{"Alice": {"defenders"}}

	got := TagsFor(member, tags)
	if len(got) != 1 || got[0] != "defenders" {
		t.Errorf("expected name-keyed fallback, got %v", got)
	}
}

func TestWithTagsDoesNotMutateInput(t *testing.T) {
	members := []models.Member{{ID: "aaaaa", Name: "Alice"}}
	tags := map[string][]string{"aaaaa": {"daycare"}}

	enriched := WithTags(members, tags)
	if len(enriched[0].Tags) != 1 {
		t.Fatalf("expected tags attached, got %v", enriched[0].Tags)
	}
	if members[0].Tags != nil {
		t.Error("input slice was mutated")
	}
}

func TestWithStatus(t *testing.T) {
	members := []models.Member{
		{ID: "aaaaa", Name: "Alice"},
		{ID: "bbbbb", Name: "Bee"},
	}
	statuses := map[string]models.MemberStatus{
		"aaaaa": {Text: "around", Emoji: "🌿"},
	}

	enriched := WithStatus(members, statuses)
	if enriched[0].Status == nil || enriched[0].Status.Text != "around" {
		t.Errorf("expected status attached, got %+v", enriched[0].Status)
	}
	if enriched[1].Status != nil {
		t.Error("expected no status for unmapped member")
	}
}

func TestFilterByTag(t *testing.T) {
	members := WithTags([]models.Member{
		{ID: "aaaaa", Name: "Alice"},
		{ID: "bbbbb", Name: "Bee"},
	}, map[string][]string{
		"aaaaa": {"daycare", "host"},
		"bbbbb": {"defenders"},
	})

	got := FilterByTag(members, "daycare")
	if len(got) != 1 || got[0].ID != "aaaaa" {
		t.Errorf("unexpected filter result: %v", got)
	}
}

func TestGroupBySubsystem(t *testing.T) {
	members := WithTags([]models.Member{
		{ID: "aaaaa", Name: "Alice"},
		{ID: "bbbbb", Name: "Bee"},
		{ID: "ccccc", Name: "Cee"},
	}, map[string][]string{
		"aaaaa": {"daycare", "defenders"},
		"bbbbb": {"defenders"},
	})
	subsystems := []models.SubSystem{{Label: "daycare"}, {Label: "defenders"}}

	groups := GroupBySubsystem(members, subsystems)
	if len(groups["daycare"]) != 1 {
		t.Errorf("expected 1 daycare member, got %d", len(groups["daycare"]))
	}
	if len(groups["defenders"]) != 2 {
		t.Errorf("expected 2 defenders, got %d", len(groups["defenders"]))
	}
	if len(groups[BucketUntagged]) != 1 || groups[BucketUntagged][0].ID != "ccccc" {
		t.Errorf("expected untagged bucket with ccccc, got %v", groups[BucketUntagged])
	}
}

func TestGroupBySubsystemHostBucket(t *testing.T) {
	members := WithTags([]models.Member{
		{ID: "aaaaa", Name: "Alice"},
		{ID: "bbbbb", Name: "Bee"},
	}, map[string][]string{
		"aaaaa": {"host", "daycare"},
		"bbbbb": {"mystery"},
	})
	subsystems := []models.SubSystem{{Label: "daycare"}}

	groups := GroupBySubsystem(members, subsystems)
	if len(groups[BucketHost]) != 1 || groups[BucketHost][0].ID != "aaaaa" {
		t.Errorf("expected host bucket with aaaaa, got %v", groups[BucketHost])
	}
	// Tags matching no subsystem and not "host" create no bucket.
	if _, ok := groups["mystery"]; ok {
		t.Error("unknown tag produced a bucket")
	}
}

func TestFilterBySubsystem(t *testing.T) {
	members := WithTags([]models.Member{
		{ID: "aaaaa", Name: "Alice"},
		{ID: "bbbbb", Name: "Bee"},
		{ID: "ccccc", Name: "Cee"},
	}, map[string][]string{
		"aaaaa": {"daycare"},
		"bbbbb": {"defenders"},
	})

	got := FilterBySubsystem(members, "daycare", true)
	if len(got) != 2 {
		t.Fatalf("expected tagged match plus untagged member, got %v", got)
	}

	got = FilterBySubsystem(members, "daycare", false)
	if len(got) != 1 || got[0].ID != "aaaaa" {
		t.Errorf("expected only the tagged match, got %v", got)
	}

	if got := FilterBySubsystem(members, "", false); len(got) != 3 {
		t.Errorf("empty filter must pass everything through, got %v", got)
	}
}
