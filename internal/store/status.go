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
	"time"
	"unicode/utf8"

	"github.com/doughmination/backend/internal/models"
)

// MaxStatusLength caps status text length in characters.
const MaxStatusLength = 100

// ErrStatusTooLong indicates a status exceeding MaxStatusLength.
var ErrStatusTooLong = errors.New("status text too long")

// ErrStatusNotFound indicates a clear of a status that is not set.
var ErrStatusNotFound = errors.New("status not found")

// StatusStore persists per-member status overlays in member_status.json.
type StatusStore struct {
	mu       sync.RWMutex
	path     string
	statuses map[string]models.MemberStatus
}

// NewStatusStore loads member statuses from dataDir.
func NewStatusStore(dataDir string) (*StatusStore, error) {
	s := &StatusStore{
		path:     filepath.Join(dataDir, "member_status.json"),
		statuses: make(map[string]models.MemberStatus),
	}
	if _, err := loadJSONFile(s.path, &s.statuses); err != nil {
		return nil, err
	}
	return s, nil
}

// All returns the full member-ID-to-status mapping as a copy.
func (s *StatusStore) All() map[string]models.MemberStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.MemberStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}

// Get returns the status for the given key.
func (s *StatusStore) Get(key string) (models.MemberStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[key]
	return status, ok
}

// Set stores a status for a member, stamping the update time.
func (s *StatusStore) Set(key, text, emoji string) (models.MemberStatus, error) {
	if utf8.RuneCountInString(text) > MaxStatusLength {
		return models.MemberStatus{}, fmt.Errorf("%w: %d characters (max %d)",
			ErrStatusTooLong, utf8.RuneCountInString(text), MaxStatusLength)
	}

	status := models.MemberStatus{
		Text:      text,
		Emoji:     emoji,
		UpdatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[key] = status
	if err := saveJSONFile(s.path, s.statuses); err != nil {
		return models.MemberStatus{}, err
	}
	return status, nil
}

// Clear removes a member's status. Clearing an unset status returns
// ErrStatusNotFound.
func (s *StatusStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[key]; !ok {
		return fmt.Errorf("%w: member %q", ErrStatusNotFound, key)
	}
	delete(s.statuses, key)
	return saveJSONFile(s.path, s.statuses)
}
