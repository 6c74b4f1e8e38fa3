// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package models defines the typed records exchanged with the PluralKit API,
// the locally persisted auxiliary data, and the HTTP request payloads.
//
// Member is a typed record with optional overlay fields (tags, status,
// is_special, cofront composition) filled in by enrichment and by the
// upstream client's display-name processing, rather than a loosely-typed
// map merged with spreads.
package models

import "time"

// Member is a system member as returned by the upstream API, plus the
// locally-owned overlays joined in at read time.
type Member struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Color       string `json:"color,omitempty"`
	Pronouns    string `json:"pronouns,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Description string `json:"description,omitempty"`

	// Special display-name handling: certain internal names map to
	// human-readable aliases and are flagged accordingly.
	IsSpecial    bool   `json:"is_special,omitempty"`
	OriginalName string `json:"original_name,omitempty"`

	// Cofront composition for synthetic grouped members.
	IsCofront bool     `json:"is_cofront,omitempty"`
	MemberIDs []string `json:"member_ids,omitempty"`

	// Locally-owned overlays, attached by enrichment.
	Tags   []string      `json:"tags,omitempty"`
	Status *MemberStatus `json:"status,omitempty"`
}

// System is the upstream system record.
type System struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Tag         string `json:"tag,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	// MentalState is a locally persisted overlay, attached at read time.
	MentalState *MentalState `json:"mental_state,omitempty"`
}

// Fronters is the upstream fronters response: the ordered set of currently
// fronting members. Mutated only via the switch operation, which fully
// replaces the prior state.
type Fronters struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Members   []Member  `json:"members"`
}

// MentalState is the locally persisted mental-state log entry.
// Level is one of: safe, unstable, idealizing, self-harming, highly at risk.
type MentalState struct {
	Level     string    `json:"level" validate:"required"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes,omitempty"`
}

// MentalStateLevels lists the accepted mental-state levels.
var MentalStateLevels = []string{"safe", "unstable", "idealizing", "self-harming", "highly at risk"}

// MemberStatus is a locally persisted status overlay for a member.
type MemberStatus struct {
	Text      string    `json:"text"`
	Emoji     string    `json:"emoji,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubSystem is a configured grouping label applied to members.
type SubSystem struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// User is a local account. PasswordHash never leaves the store layer.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	DisplayName  string `json:"display_name,omitempty"`
	IsAdmin      bool   `json:"is_admin"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

// UserResponse is the external view of a User.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Response converts a User to its external view.
func (u *User) Response() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		IsAdmin:     u.IsAdmin,
		AvatarURL:   u.AvatarURL,
	}
}

// LoginRequest is the credentials payload for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SwitchRequest is the payload for POST /api/switch.
// An empty member list is valid and clears the front.
type SwitchRequest struct {
	Members []string `json:"members"`
}

// SingleSwitchRequest is the payload for POST /api/switch_front.
type SingleSwitchRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}

// MultiSwitchRequest is the payload for POST /api/multi_switch.
type MultiSwitchRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// SwitchedMember is the per-member detail in a multi-switch response.
type SwitchedMember struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// CofrontCreateRequest is the payload for POST /api/dynamic_cofront.
type CofrontCreateRequest struct {
	MemberIDs    []string `json:"member_ids" validate:"required,min=2"`
	Name         string   `json:"name"`
	SetAsCurrent bool     `json:"set_as_current"`
}

// StatusRequest is the payload for POST /api/members/{identifier}/status.
type StatusRequest struct {
	Text  string `json:"text" validate:"required,max=100"`
	Emoji string `json:"emoji"`
}

// TagUpdateRequest is the payload for POST /api/member-tags/{identifier}.
type TagUpdateRequest struct {
	Tags []string `json:"tags" validate:"required"`
}

// TagAddRequest is the payload for POST /api/member-tags/{identifier}/add.
type TagAddRequest struct {
	Tag string `json:"tag" validate:"required"`
}

// UserCreateRequest is the payload for POST /api/users.
type UserCreateRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
}

// UserUpdateRequest is the payload for PUT /api/users/{id}.
// Changing the password requires the current password.
type UserUpdateRequest struct {
	DisplayName     *string `json:"display_name,omitempty"`
	CurrentPassword string  `json:"current_password,omitempty"`
	NewPassword     string  `json:"new_password,omitempty" validate:"omitempty,min=8"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
}
