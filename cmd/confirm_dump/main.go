// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// confirm_dump inspects the assistant's pending-confirmation store.
//
// High-risk tool actions wait in BadgerDB for the user's yes/no reply so
// they survive service restarts. This tool opens the store read-only and
// prints a human-readable summary: session IDs, the tool awaiting
// confirmation, TTL remaining, and the validated parameters that would
// run on approval.
//
// Usage:
//
//	confirm_dump [--path /path/to/confirm/cache]
//
// If --path is not given, reads SELENE_CACHE_DIR from the environment,
// falling back to ~/.selene/cache/confirm/.
//
// Exit codes:
//
//	0 — success (including "empty store" which prints a message and exits 0)
//	1 — error opening or reading the database
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// confirmKeyPrefix must match the pipeline's BadgerConfirmStore exactly.
const confirmKeyPrefix = "confirm/v1/"

// pendingAction mirrors pipeline.PendingAction's wire shape.
type pendingAction struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Prompt     string         `json:"prompt"`
	ReAsked    bool           `json:"re_asked"`
	CreatedAt  time.Time      `json:"created_at"`
}

func main() {
	pathFlag := flag.String("path", "", "Path to confirmation BadgerDB directory (overrides SELENE_CACHE_DIR env var)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("SELENE_CACHE_DIR")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".selene", "cache", "confirm")
	}

	fmt.Printf("Confirmation store path: %s\n", dbPath)

	// Check existence before trying to open — gives a cleaner error message
	// than BadgerDB's "no such file or directory" buried in a long error.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Store directory does not exist. No high-risk action has been gated yet.")
		os.Exit(0)
	}

	opts := dgbadger.DefaultOptions(dbPath).
		WithLogger(nil).
		WithReadOnly(true)

	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	type entry struct {
		sessionID string
		expiresAt time.Time
		hasExpiry bool
		action    pendingAction
		rawSize   int
		decodeErr error
	}

	var entries []entry

	err = db.View(func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(confirmKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())

			var e entry
			e.sessionID = strings.TrimPrefix(key, confirmKeyPrefix)

			// TTL: item.ExpiresAt() returns Unix seconds, 0 = no expiry.
			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.hasExpiry = true
				e.expiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.decodeErr = fmt.Errorf("copy value: %w", err)
				entries = append(entries, e)
				continue
			}
			e.rawSize = len(raw)
			if err := json.Unmarshal(raw, &e.action); err != nil {
				e.decodeErr = fmt.Errorf("json decode: %w", err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo pending confirmations found.")
		fmt.Println("Either every gated action was answered, or the TTLs have expired.")
		os.Exit(0)
	}

	fmt.Printf("\nFound %d pending confirmation%s:\n", len(entries), plural(len(entries), "", "s"))
	fmt.Println(strings.Repeat("─", 80))

	for i, e := range entries {
		fmt.Printf("\n[%d] Session:  %s\n", i+1, e.sessionID)

		if e.hasExpiry {
			remaining := time.Until(e.expiresAt)
			if remaining < 0 {
				fmt.Printf("    TTL:      EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
			} else {
				fmt.Printf("    TTL:      %s remaining (expires %s)\n",
					remaining.Round(time.Second),
					e.expiresAt.Format("2006-01-02 15:04:05 MST"),
				)
			}
		} else {
			fmt.Printf("    TTL:      no expiry set\n")
		}

		if e.decodeErr != nil {
			fmt.Printf("    DECODE ERROR: %v (%d bytes)\n", e.decodeErr, e.rawSize)
			continue
		}

		fmt.Printf("    Tool:     %s\n", e.action.Tool)
		fmt.Printf("    Created:  %s\n", e.action.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("    Re-asked: %v\n", e.action.ReAsked)

		keys := make([]string, 0, len(e.action.Parameters))
		for k := range e.action.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    Param:    %s = %v\n", k, e.action.Parameters[k])
		}

		if e.action.Prompt != "" {
			fmt.Printf("    Prompt:   %s\n", indentContinuation(e.action.Prompt))
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("─", 80))
	fmt.Printf("Summary: %d pending, store path: %s\n", len(entries), dbPath)
}

// indentContinuation keeps multi-line prompts aligned under their label.
func indentContinuation(s string) string {
	return strings.ReplaceAll(s, "\n", "\n              ")
}

// plural returns singular or plural suffix based on count.
func plural(n int, singular, pluralSuffix string) string {
	if n == 1 {
		return singular
	}
	return pluralSuffix
}

// fatalf prints to stderr and exits 1.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "confirm_dump: "+format+"\n", args...)
	os.Exit(1)
}
