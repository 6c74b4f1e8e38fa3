// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package cache provides a thread-safe in-memory key/value store with
// per-entry TTL. It sits in front of the PluralKit API and is the only
// consistency mechanism between writes and cached reads, so its semantics
// are deliberately exact:
//
//   - an entry is visible only while now < expiry; expired entries are
//     removed lazily on read and reported as absent,
//   - storing a nil value or a non-positive TTL invalidates the key
//     immediately, and the invalidation is visible to the very next Get,
//   - there is no background sweeper; staleness is detected on read only,
//   - each key is an independent unit of consistency (no multi-key atomicity).
package cache

import (
	"sync"
	"time"

	"github.com/doughmination/backend/internal/metrics"
)

// Entry represents a cached item with an absolute expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Store is a TTL key/value cache safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry

	statsMu sync.Mutex
	stats   Stats
}

// Stats is a snapshot of the cache performance counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	TotalKeys int64
}

// New creates an empty cache store.
func New() *Store {
	return &Store{
		entries: make(map[string]Entry),
	}
}

// Get retrieves a value by key. An entry whose TTL has elapsed is deleted
// and reported as absent; absence is never an error, callers fall through
// to a refetch.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		s.recordMiss()
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry between the two lock acquisitions.
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.ExpiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.recordMiss()
		s.recordEviction()
		return nil, false
	}

	s.recordHit()
	return entry.Data, true
}

// Set stores a value with the given TTL. A nil value or a TTL <= 0
// invalidates the key immediately: the next Get is guaranteed to report
// absent. This is how write paths force a refetch of derived data.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	if value == nil || ttl <= 0 {
		s.Invalidate(key)
		return
	}

	s.mu.Lock()
	s.entries[key] = Entry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	}
	total := int64(len(s.entries))
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.TotalKeys = total
	s.statsMu.Unlock()
}

// Invalidate removes a key immediately. No-op if the key is absent.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	s.recordEviction()
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	evictions := int64(len(s.entries))
	s.entries = make(map[string]Entry)
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Evictions += evictions
	s.stats.TotalKeys = 0
	s.statsMu.Unlock()
}

// Len returns the current number of entries, including any not yet
// detected as expired.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a snapshot of the cache counters.
func (s *Store) GetStats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// HitRate returns the cache hit rate as a percentage.
func (s *Store) HitRate() float64 {
	stats := s.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

func (s *Store) recordHit() {
	s.statsMu.Lock()
	s.stats.Hits++
	s.statsMu.Unlock()
	metrics.CacheHits.Inc()
}

func (s *Store) recordMiss() {
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
	metrics.CacheMisses.Inc()
}

func (s *Store) recordEviction() {
	s.statsMu.Lock()
	s.stats.Evictions++
	s.statsMu.Unlock()
	metrics.CacheEvictions.Inc()
}
