// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

package pluralkit

import (
	"errors"
	"fmt"
)

// Validation errors, surfaced to clients as 400s. They are checked before
// any remote call is made.
var (
	// ErrTooManyFronters indicates a switch or cofront request exceeded
	// the configured fronter limit.
	ErrTooManyFronters = errors.New("too many fronters")

	// ErrCofrontTooSmall indicates a cofront request with fewer than two members.
	ErrCofrontTooSmall = errors.New("at least 2 members are required for a cofront")

	// ErrMemberNotFound indicates a referenced member does not exist upstream.
	ErrMemberNotFound = errors.New("member not found")
)

// UpstreamError wraps a non-2xx response from the PluralKit API. The remote
// status and body are surfaced to the caller; requests are not retried
// automatically.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("pluralkit %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// IsUpstreamError reports whether err (or anything it wraps) is an
// UpstreamError, returning it when so.
func IsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
