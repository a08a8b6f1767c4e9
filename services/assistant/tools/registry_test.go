// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRegisterRejectsDuplicatesAndNil(t *testing.T) {
	r := NewRegistry(nil)
	noop := ExecutorFunc(func(context.Context, map[string]any) (string, error) {
		return "", nil
	})

	if err := r.Register("google_search", noop); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register("google_search", noop); err == nil {
		t.Error("duplicate Register must fail")
	}
	if err := r.Register("", noop); err == nil {
		t.Error("empty name must fail")
	}
	if err := r.Register("x", nil); err == nil {
		t.Error("nil executor must fail")
	}
}

func TestRunUnknownToolErrors(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Run(context.Background(), "launch_missiles", nil)
	if err == nil {
		t.Fatal("unknown tool must error, not no-op")
	}
	if !strings.Contains(err.Error(), "launch_missiles") {
		t.Errorf("error %q should name the tool", err)
	}
}

func TestRunWrapsExecutorError(t *testing.T) {
	r := NewRegistry(nil)
	boom := errors.New("quota exceeded")
	_ = r.Register("google_search", ExecutorFunc(func(context.Context, map[string]any) (string, error) {
		return "", boom
	}))

	_, err := r.Run(context.Background(), "google_search", map[string]any{"query": "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped executor error", err)
	}
}

func TestBuiltinsCoverRegistryTools(t *testing.T) {
	r := NewRegistry(nil)
	if err := RegisterBuiltins(r, BuiltinDeps{}); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	want := []string{
		"google_search", "send_email", "get_calendar",
		"create_event", "github_issues", "notion_page",
	}
	names := make(map[string]bool)
	for _, n := range r.Names() {
		names[n] = true
	}
	for _, n := range want {
		if !names[n] {
			t.Errorf("builtin %q not registered", n)
		}
	}
}

func TestSearchExecutor(t *testing.T) {
	r := NewRegistry(nil)
	err := RegisterBuiltins(r, BuiltinDeps{
		Searcher: SearcherFunc(func(_ context.Context, query string) ([]string, error) {
			if query != "고양이" {
				t.Errorf("query = %q", query)
			}
			return []string{"Cats are mammals.", "Cats sleep a lot."}, nil
		}),
	})
	if err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}

	out, err := r.Run(context.Background(), "google_search", map[string]any{"query": "고양이"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "1. Cats are mammals.") || !strings.Contains(out, "2. Cats sleep a lot.") {
		t.Errorf("output = %q", out)
	}
}

func TestSearchExecutorUnconfigured(t *testing.T) {
	r := NewRegistry(nil)
	_ = RegisterBuiltins(r, BuiltinDeps{})

	if _, err := r.Run(context.Background(), "google_search", map[string]any{"query": "x"}); err == nil {
		t.Fatal("unconfigured searcher must error")
	}
}

func TestEmailExecutorRecordsToOutbox(t *testing.T) {
	outbox := NewOutbox()
	r := NewRegistry(nil)
	_ = RegisterBuiltins(r, BuiltinDeps{Outbox: outbox})

	out, err := r.Run(context.Background(), "send_email", map[string]any{
		"to":      "kim@example.com",
		"subject": "deploy finished",
		"body":    "all green",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "kim@example.com") {
		t.Errorf("output = %q", out)
	}

	sent := outbox.Sent()
	if len(sent) != 1 || sent[0].Subject != "deploy finished" {
		t.Fatalf("outbox = %+v", sent)
	}
}

func TestCalendarExecutors(t *testing.T) {
	events := NewEventStore()
	r := NewRegistry(nil)
	_ = RegisterBuiltins(r, BuiltinDeps{Events: events})
	ctx := context.Background()

	out, err := r.Run(ctx, "get_calendar", nil)
	if err != nil {
		t.Fatalf("Run get_calendar: %v", err)
	}
	if out != "Your calendar is clear." {
		t.Errorf("empty calendar output = %q", out)
	}

	if _, err := r.Run(ctx, "create_event", map[string]any{
		"title":      "standup",
		"start_time": "2026-09-01 09:30",
	}); err != nil {
		t.Fatalf("Run create_event: %v", err)
	}
	if _, err := r.Run(ctx, "create_event", map[string]any{
		"title":      "retro",
		"start_time": "2026-09-01 08:00",
	}); err != nil {
		t.Fatalf("Run create_event: %v", err)
	}

	out, err = r.Run(ctx, "get_calendar", nil)
	if err != nil {
		t.Fatalf("Run get_calendar: %v", err)
	}
	// Listed in start order, not insertion order.
	retro := strings.Index(out, "retro")
	standup := strings.Index(out, "standup")
	if retro < 0 || standup < 0 || retro > standup {
		t.Errorf("calendar output = %q, want retro before standup", out)
	}
}

func TestExecutorsRejectMissingParameters(t *testing.T) {
	r := NewRegistry(nil)
	_ = RegisterBuiltins(r, BuiltinDeps{})
	ctx := context.Background()

	cases := []struct {
		tool   string
		params map[string]any
	}{
		{tool: "google_search", params: map[string]any{}},
		{tool: "send_email", params: map[string]any{"to": "a@b.co"}},
		{tool: "create_event", params: map[string]any{}},
		{tool: "github_issues", params: map[string]any{"repo": "selene-ai/selene"}},
		{tool: "notion_page", params: map[string]any{}},
	}
	for _, tc := range cases {
		if _, err := r.Run(ctx, tc.tool, tc.params); err == nil {
			t.Errorf("%s with %v must error", tc.tool, tc.params)
		}
	}
}

// Every executor must accept the smallest bag its registry schema
// considers valid. A schema-valid bag reaching an executor that then
// errors would surface a confirmed action as an execution failure.
func TestExecutorsAcceptMinimalValidParameters(t *testing.T) {
	r := NewRegistry(nil)
	_ = RegisterBuiltins(r, BuiltinDeps{
		Searcher: SearcherFunc(func(context.Context, string) ([]string, error) {
			return []string{"result"}, nil
		}),
	})
	ctx := context.Background()

	cases := []struct {
		tool   string
		params map[string]any
	}{
		{tool: "google_search", params: map[string]any{"query": "boots"}},
		{tool: "send_email", params: map[string]any{
			"to": "kim@example.com", "subject": "hi", "body": "there",
		}},
		{tool: "get_calendar", params: nil},
		// Only title is required; start_time has no default.
		{tool: "create_event", params: map[string]any{"title": "standup"}},
		{tool: "github_issues", params: map[string]any{
			"repo": "selene-ai/selene", "title": "flaky test",
		}},
		{tool: "notion_page", params: map[string]any{"query": "meeting notes"}},
	}
	for _, tc := range cases {
		if _, err := r.Run(ctx, tc.tool, tc.params); err != nil {
			t.Errorf("%s with %v: %v", tc.tool, tc.params, err)
		}
	}
}

func TestCreateEventWithoutStartIsUntimed(t *testing.T) {
	events := NewEventStore()
	r := NewRegistry(nil)
	_ = RegisterBuiltins(r, BuiltinDeps{Events: events})
	ctx := context.Background()

	out, err := r.Run(ctx, "create_event", map[string]any{"title": "standup"})
	if err != nil {
		t.Fatalf("Run create_event: %v", err)
	}
	if !strings.Contains(out, "standup") {
		t.Errorf("output = %q", out)
	}

	list := events.List()
	if len(list) != 1 || list[0].Title != "standup" || list[0].Start != "" {
		t.Fatalf("events = %+v, want one untimed entry", list)
	}
}
