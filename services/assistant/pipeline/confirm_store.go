// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"sync"
	"time"
)

// MemoryConfirmStore keeps pending confirmations in process memory with a
// per-entry TTL.
//
// Description:
//
//	The fallback store when no durable backend is configured, and the
//	store of choice in tests. Expiry is checked lazily on Get; there is
//	no background sweeper, so an idle store holds at most one stale
//	entry per session until the next access.
//
// Thread Safety: Safe for concurrent use.
type MemoryConfirmStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	action    PendingAction
	expiresAt time.Time
}

// NewMemoryConfirmStore builds a store whose entries expire after ttl.
func NewMemoryConfirmStore(ttl time.Duration) *MemoryConfirmStore {
	return &MemoryConfirmStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Put stores (or replaces) the pending action for a session.
func (s *MemoryConfirmStore) Put(_ context.Context, sessionID string, action PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{
		action:    action,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Get returns the pending action for a session. Expired entries are
// removed and reported as absent.
func (s *MemoryConfirmStore) Get(_ context.Context, sessionID string) (*PendingAction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return nil, false, nil
	}
	action := entry.action
	return &action, true, nil
}

// Delete removes the pending action for a session, if any.
func (s *MemoryConfirmStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
