// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package enrich joins locally-owned overlays (tags, statuses) onto
// upstream member data at read time. All functions are pure: they take
// plain maps and return new slices, never mutating their inputs and never
// touching a store or the network.
package enrich

import "github.com/doughmination/backend/internal/models"

// Bucket names produced by GroupBySubsystem beyond the configured
// subsystem labels.
const (
	BucketUntagged = "untagged"
	BucketHost     = "host"
)

// lookup resolves an overlay entry for a member. Entries keyed by member
// ID take precedence over entries keyed by name; name keys exist only for
// data written before IDs were used.
func lookup[V any](m models.Member, overlays map[string]V) (V, bool) {
	if v, ok := overlays[m.ID]; ok {
		return v, true
	}
	v, ok := overlays[m.Name]
	return v, ok
}

// TagsFor returns the tags for a member, ID key first, then name.
func TagsFor(m models.Member, tags map[string][]string) []string {
	v, _ := lookup(m, tags)
	return v
}

// WithTags returns a copy of members with tag overlays attached.
func WithTags(members []models.Member, tags map[string][]string) []models.Member {
	out := make([]models.Member, len(members))
	for i, m := range members {
		if v, ok := lookup(m, tags); ok {
			m.Tags = v
		}
		out[i] = m
	}
	return out
}

// WithStatus returns a copy of members with status overlays attached.
func WithStatus(members []models.Member, statuses map[string]models.MemberStatus) []models.Member {
	out := make([]models.Member, len(members))
	for i, m := range members {
		if v, ok := lookup(m, statuses); ok {
			status := v
			m.Status = &status
		}
		out[i] = m
	}
	return out
}

// HasTag reports whether a member carries the given tag.
func HasTag(m models.Member, tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FilterByTag returns the members carrying the given tag. Call after
// WithTags so the overlays are populated.
func FilterByTag(members []models.Member, tag string) []models.Member {
	var out []models.Member
	for _, m := range members {
		if HasTag(m, tag) {
			out = append(out, m)
		}
	}
	return out
}

// GroupBySubsystem buckets members by their tags against the configured
// subsystem labels. A member may appear in several buckets. Members with
// no tags land in the "untagged" bucket; the "host" tag gets its own
// bucket even when no subsystem carries that label. Tags matching
// nothing are ignored.
func GroupBySubsystem(members []models.Member, subsystems []models.SubSystem) map[string][]models.Member {
	out := make(map[string][]models.Member, len(subsystems)+2)
	for _, sub := range subsystems {
		out[sub.Label] = nil
	}
	out[BucketUntagged] = nil
	for _, m := range members {
		if len(m.Tags) == 0 {
			out[BucketUntagged] = append(out[BucketUntagged], m)
			continue
		}
		for _, tag := range m.Tags {
			if _, ok := out[tag]; ok {
				out[tag] = append(out[tag], m)
			} else if tag == BucketHost {
				out[BucketHost] = append(out[BucketHost], m)
			}
		}
	}
	return out
}

// FilterBySubsystem returns the members tagged with the given subsystem,
// optionally including members that carry no tags at all. An empty
// filter returns the input unchanged.
func FilterBySubsystem(members []models.Member, subsystem string, includeUntagged bool) []models.Member {
	if subsystem == "" {
		return members
	}
	var out []models.Member
	for _, m := range members {
		if HasTag(m, subsystem) || (includeUntagged && len(m.Tags) == 0) {
			out = append(out, m)
		}
	}
	return out
}
