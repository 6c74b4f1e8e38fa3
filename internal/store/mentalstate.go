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

	"github.com/doughmination/backend/internal/models"
)

// DefaultMentalStateLevel is reported when no state has ever been set.
const DefaultMentalStateLevel = "safe"

// ErrInvalidMentalState indicates a level outside the accepted set.
var ErrInvalidMentalState = errors.New("invalid mental state level")

// MentalStateStore persists the system-wide mental state in
// mental_state.json.
type MentalStateStore struct {
	mu    sync.RWMutex
	path  string
	state *models.MentalState
}

// NewMentalStateStore loads the mental state from dataDir.
func NewMentalStateStore(dataDir string) (*MentalStateStore, error) {
	s := &MentalStateStore{
		path: filepath.Join(dataDir, "mental_state.json"),
	}
	var state models.MentalState
	ok, err := loadJSONFile(s.path, &state)
	if err != nil {
		return nil, err
	}
	if ok {
		s.state = &state
	}
	return s, nil
}

// Get returns the current mental state, falling back to the safe default
// when none has been recorded.
func (s *MentalStateStore) Get() models.MentalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return models.MentalState{Level: DefaultMentalStateLevel}
	}
	return *s.state
}

// Set records a new mental state. The level must be one of the accepted
// values.
func (s *MentalStateStore) Set(level, notes string) (models.MentalState, error) {
	if !ValidMentalStateLevel(level) {
		return models.MentalState{}, fmt.Errorf("%w: %q (accepted: %v)",
			ErrInvalidMentalState, level, models.MentalStateLevels)
	}

	state := models.MentalState{
		Level:     level,
		Notes:     notes,
		UpdatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	if err := saveJSONFile(s.path, state); err != nil {
		return models.MentalState{}, err
	}
	return state, nil
}

// ValidMentalStateLevel reports whether level is in the accepted set.
func ValidMentalStateLevel(level string) bool {
	for _, accepted := range models.MentalStateLevels {
		if level == accepted {
			return true
		}
	}
	return false
}
