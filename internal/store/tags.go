// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/doughmination/backend/internal/models"
)

// HostTag is always a valid tag even without a matching subsystem.
const HostTag = "host"

// ErrInvalidTag indicates a tag that is neither a configured subsystem
// label nor the host tag.
var ErrInvalidTag = errors.New("invalid tag")

// ErrTagNotFound indicates a removal of a tag the member does not carry.
var ErrTagNotFound = errors.New("tag not found")

// TagStore persists subsystem definitions and per-member tag assignments.
// Subsystems come from subsystems.json (operator-edited); member tags live
// in member_tags.json and are mutated through the API.
type TagStore struct {
	mu sync.RWMutex

	subsystemsPath string
	tagsPath       string

	subsystems []models.SubSystem
	// memberTags maps member ID (or name, for legacy entries) to tags.
	memberTags map[string][]string
}

// NewTagStore loads subsystems and member tags from dataDir. Missing files
// yield empty state.
func NewTagStore(dataDir string) (*TagStore, error) {
	s := &TagStore{
		subsystemsPath: filepath.Join(dataDir, "subsystems.json"),
		tagsPath:       filepath.Join(dataDir, "member_tags.json"),
		memberTags:     make(map[string][]string),
	}

	if _, err := loadJSONFile(s.subsystemsPath, &s.subsystems); err != nil {
		return nil, err
	}
	if _, err := loadJSONFile(s.tagsPath, &s.memberTags); err != nil {
		return nil, err
	}
	return s, nil
}

// Subsystems returns the configured subsystem definitions.
func (s *TagStore) Subsystems() []models.SubSystem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SubSystem, len(s.subsystems))
	copy(out, s.subsystems)
	return out
}

// SetSubsystems replaces the subsystem definitions.
func (s *TagStore) SetSubsystems(subsystems []models.SubSystem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subsystems = append([]models.SubSystem(nil), subsystems...)
	return saveJSONFile(s.subsystemsPath, s.subsystems)
}

// ValidTag reports whether tag is a configured subsystem label or the
// host tag.
func (s *TagStore) ValidTag(tag string) bool {
	if tag == HostTag {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subsystems {
		if sub.Label == tag {
			return true
		}
	}
	return false
}

// AllTags returns the full member-ID-to-tags mapping. The result is a
// copy and safe to hand to enrichment.
func (s *TagStore) AllTags() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.memberTags))
	for k, v := range s.memberTags {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// TagsFor returns the tags assigned to the given key, or nil.
func (s *TagStore) TagsFor(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.memberTags[key]...)
}

// SetTags replaces the tag set for a member. Every tag must be valid;
// an invalid tag rejects the whole update.
func (s *TagStore) SetTags(key string, tags []string) error {
	for _, tag := range tags {
		if !s.ValidTag(tag) {
			return fmt.Errorf("%w: %q is not a subsystem label or %q", ErrInvalidTag, tag, HostTag)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tags) == 0 {
		delete(s.memberTags, key)
	} else {
		s.memberTags[key] = append([]string(nil), tags...)
	}
	return saveJSONFile(s.tagsPath, s.memberTags)
}

// AddTag appends a tag to a member's set. Adding a tag the member already
// carries is a no-op, not an error.
func (s *TagStore) AddTag(key, tag string) error {
	if !s.ValidTag(tag) {
		return fmt.Errorf("%w: %q is not a subsystem label or %q", ErrInvalidTag, tag, HostTag)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.memberTags[key] {
		if existing == tag {
			return nil
		}
	}
	s.memberTags[key] = append(s.memberTags[key], tag)
	return saveJSONFile(s.tagsPath, s.memberTags)
}

// RemoveTag removes a tag from a member's set. Removing a tag the member
// does not carry returns ErrTagNotFound.
func (s *TagStore) RemoveTag(key, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags := s.memberTags[key]
	for i, existing := range tags {
		if existing == tag {
			tags = append(tags[:i], tags[i+1:]...)
			if len(tags) == 0 {
				delete(s.memberTags, key)
			} else {
				s.memberTags[key] = tags
			}
			return saveJSONFile(s.tagsPath, s.memberTags)
		}
	}
	return fmt.Errorf("%w: %q on member %q", ErrTagNotFound, tag, key)
}
