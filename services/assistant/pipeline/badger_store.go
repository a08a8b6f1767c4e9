// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// confirmKeyPrefix versions the key space so a format change never reads
// stale entries.
const confirmKeyPrefix = "confirm/v1/"

const confirmDefaultTTL = 5 * time.Minute

// BadgerConfirmStore persists pending confirmations in BadgerDB so a
// pending high-risk action survives a process restart.
//
// The DB must be opened by the caller (typically in main) and must not be
// closed before the store is done being used. The caller owns the DB
// lifecycle.
//
// Thread Safety: Safe for concurrent use.
type BadgerConfirmStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewBadgerConfirmStore builds a store over an opened DB.
//
// Inputs:
//   - db: Opened BadgerDB. Must not be nil.
//   - ttl: Lifetime for each pending action. Pass 0 for the default (5 minutes).
//   - logger: May be nil.
func NewBadgerConfirmStore(db *badger.DB, ttl time.Duration, logger *slog.Logger) *BadgerConfirmStore {
	if db == nil {
		panic("NewBadgerConfirmStore: db must not be nil")
	}
	if ttl <= 0 {
		ttl = confirmDefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BadgerConfirmStore{db: db, ttl: ttl, logger: logger}
}

// Put stores (or replaces) the pending action for a session with the
// configured TTL.
func (s *BadgerConfirmStore) Put(_ context.Context, sessionID string, action PendingAction) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode pending action: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(confirmKey(sessionID), raw).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store pending action: %w", err)
	}
	s.logger.Debug("pending confirmation stored",
		slog.String("session_id", sessionID),
		slog.String("tool", action.Tool),
		slog.Duration("ttl", s.ttl),
	)
	return nil
}

// Get returns the pending action for a session. Expired keys are
// invisible and reported as absent.
func (s *BadgerConfirmStore) Get(_ context.Context, sessionID string) (*PendingAction, bool, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(confirmKey(sessionID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load pending action: %w", err)
	}

	var action PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		return nil, false, fmt.Errorf("decode pending action: %w", err)
	}
	return &action, true, nil
}

// Delete removes the pending action for a session, if any.
func (s *BadgerConfirmStore) Delete(_ context.Context, sessionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(confirmKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("delete pending action: %w", err)
	}
	return nil
}

func confirmKey(sessionID string) []byte {
	return []byte(confirmKeyPrefix + sessionID)
}
