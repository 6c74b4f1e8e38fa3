// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package store implements the locally-owned persistence layer. Each
// dataset (subsystem tags, member statuses, mental state, users) lives in
// its own pretty-printed JSON file under the data directory and is
// guarded by its own mutex: one writer at a time per file, whole-file
// rewrite on every mutation. The data volumes involved are tiny, so
// simplicity wins over anything fancier.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// loadJSONFile reads path into target. A missing file is not an error:
// target is left untouched and ok is false, letting callers fall back to
// their zero state.
func loadJSONFile(path string, target interface{}) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

// saveJSONFile writes value to path as pretty-printed JSON via a temp
// file and rename, so a crash mid-write never leaves a truncated file.
func saveJSONFile(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
