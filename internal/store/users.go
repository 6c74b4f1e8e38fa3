// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/doughmination/backend/internal/logging"
	"github.com/doughmination/backend/internal/models"
)

var (
	// ErrUserNotFound indicates a lookup for an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken indicates a create with a duplicate username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials indicates a failed authentication attempt.
	// Deliberately the same for unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore persists local accounts in users.json. Passwords are stored
// as bcrypt hashes and never leave this layer.
type UserStore struct {
	mu    sync.RWMutex
	path  string
	users map[string]models.User
}

// NewUserStore loads users from dataDir.
func NewUserStore(dataDir string) (*UserStore, error) {
	s := &UserStore{
		path:  filepath.Join(dataDir, "users.json"),
		users: make(map[string]models.User),
	}
	if _, err := loadJSONFile(s.path, &s.users); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureAdmin bootstraps the first admin account when the store is empty.
// No-op when any user exists or when the credentials are unset.
func (s *UserStore) EnsureAdmin(username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	s.mu.RLock()
	empty := len(s.users) == 0
	s.mu.RUnlock()
	if !empty {
		return nil
	}

	if _, err := s.Create(username, password, "", true); err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}
	logging.Info().Str("username", username).Msg("bootstrapped admin account")
	return nil
}

// Create adds a new user with a bcrypt-hashed password.
func (s *UserStore) Create(username, password, displayName string, isAdmin bool) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
		}
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		IsAdmin:      isAdmin,
	}
	s.users[user.ID] = user
	if err := saveJSONFile(s.path, s.users); err != nil {
		delete(s.users, user.ID)
		return nil, err
	}
	return &user, nil
}

// Get returns a user by ID.
func (s *UserStore) Get(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return &user, nil
}

// GetByUsername returns a user by username.
func (s *UserStore) GetByUsername(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
}

// List returns all users sorted by username.
func (s *UserStore) List() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Authenticate checks credentials and returns the matching user. Failures
// are indistinguishable between unknown username and wrong password.
func (s *UserStore) Authenticate(username, password string) (*models.User, error) {
	user, err := s.GetByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Update applies a partial update to a user. Changing the password
// requires the current password to match.
func (s *UserStore) Update(id string, req models.UserUpdateRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}

	if req.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	s.users[id] = user
	if err := saveJSONFile(s.path, s.users); err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes a user.
func (s *UserStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	delete(s.users, id)
	return saveJSONFile(s.path, s.users)
}
