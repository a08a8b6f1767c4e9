// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"strings"
	"testing"
)

func TestCheckValidParameters(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	outcome := v.Check("send_email", map[string]any{
		"to":      "kim@example.com",
		"subject": "deploy finished",
		"body":    "all green",
	})

	if !outcome.IsValid {
		t.Fatalf("outcome = %+v, want valid", outcome)
	}
	if outcome.NormalizedParameters["to"] != "kim@example.com" {
		t.Errorf("to = %v", outcome.NormalizedParameters["to"])
	}
	if outcome.ClarificationMessage != "" {
		t.Errorf("clarification = %q, want empty on success", outcome.ClarificationMessage)
	}
}

func TestCheckMissingRequiredParameters(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	outcome := v.Check("send_email", map[string]any{
		"subject": "deploy finished",
	})

	if outcome.IsValid {
		t.Fatalf("outcome = %+v, want invalid", outcome)
	}
	// Both absent required fields are named, in schema order.
	want := "Could you tell me the recipient address, message body?"
	if outcome.ClarificationMessage != want {
		t.Errorf("clarification = %q, want %q", outcome.ClarificationMessage, want)
	}
}

func TestCheckClarificationIsDeterministic(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	first := v.Check("send_email", map[string]any{"subject": "hi"})
	second := v.Check("send_email", map[string]any{"subject": "hi"})

	if first.ClarificationMessage != second.ClarificationMessage {
		t.Errorf("clarifications differ: %q vs %q",
			first.ClarificationMessage, second.ClarificationMessage)
	}
}

func TestCheckMalformedEmail(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	outcome := v.Check("send_email", map[string]any{
		"to":      "not-an-address",
		"subject": "hello",
		"body":    "world",
	})

	if outcome.IsValid {
		t.Fatalf("outcome = %+v, want invalid", outcome)
	}
	// Malformed values get one fixed generic question. Echoing the field
	// name back would just invite the same bad guess again.
	if outcome.ClarificationMessage != FallbackFormatInvalid {
		t.Errorf("clarification = %q, want %q", outcome.ClarificationMessage, FallbackFormatInvalid)
	}
	if strings.Contains(outcome.ClarificationMessage, "recipient address") {
		t.Errorf("clarification = %q, must not name individual fields", outcome.ClarificationMessage)
	}
}

func TestCheckPresentButEmptyIsMalformedNotMissing(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	outcome := v.Check("send_email", map[string]any{
		"to":      "kim@example.com",
		"subject": "   ",
		"body":    "world",
	})

	if outcome.IsValid {
		t.Fatalf("outcome = %+v, want invalid", outcome)
	}
	if outcome.ClarificationMessage != FallbackFormatInvalid {
		t.Errorf("clarification = %q, want the malformed question %q",
			outcome.ClarificationMessage, FallbackFormatInvalid)
	}
}

func TestCheckMissingTakesPriorityOverMalformed(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	// "to" is malformed, "body" is absent. The user is asked for the
	// missing field first; re-validation will catch the bad address.
	outcome := v.Check("send_email", map[string]any{
		"to":      "nope",
		"subject": "hello",
	})

	if outcome.IsValid {
		t.Fatal("want invalid")
	}
	if !strings.Contains(outcome.ClarificationMessage, "Could you tell me the") {
		t.Errorf("clarification = %q, want the missing phrasing", outcome.ClarificationMessage)
	}
}

func TestCheckTrimsAndNormalizes(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	outcome := v.Check("google_search", map[string]any{
		"query": "  rain boots  ",
	})

	if !outcome.IsValid {
		t.Fatalf("outcome = %+v, want valid", outcome)
	}
	if got := outcome.NormalizedParameters["query"]; got != "rain boots" {
		t.Errorf("query = %q, want trimmed", got)
	}
}

func TestCheckUnschematizedToolPassesThrough(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	raw := map[string]any{"range": "tomorrow"}
	outcome := v.Check("get_calendar", raw)

	if !outcome.IsValid {
		t.Fatalf("outcome = %+v, want valid passthrough", outcome)
	}
	if got := outcome.NormalizedParameters["range"]; got != "tomorrow" {
		t.Errorf("range = %v", got)
	}
	// The passthrough must not alias the caller's map.
	raw["range"] = "mutated"
	if outcome.NormalizedParameters["range"] != "tomorrow" {
		t.Error("normalized parameters alias the raw map")
	}
}

func TestCheckUnschematizedHighRiskToolIsRefused(t *testing.T) {
	yaml := `
tools:
  - name: delete_file
    description: Delete a file
    trigger_keywords: ["삭제"]
high_risk_tools:
  - delete_file
`
	registry, err := loadRegistry(yaml)
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}
	v := NewValidator(registry, nil)

	outcome := v.Check("delete_file", map[string]any{"path": "/etc/passwd"})

	if outcome.IsValid {
		t.Fatal("high-risk tool without a schema must never validate")
	}
}

func TestCheckUnknownToolPassesThrough(t *testing.T) {
	v := NewValidator(newTestRegistry(t), nil)

	// Rejection of unregistered names belongs to the execution layer;
	// the validator hands the bag through untouched.
	outcome := v.Check("does_not_exist", map[string]any{"anything": "goes"})

	if !outcome.IsValid {
		t.Fatalf("outcome = %+v, want passthrough", outcome)
	}
	if outcome.NormalizedParameters["anything"] != "goes" {
		t.Errorf("parameters = %v, want untouched bag", outcome.NormalizedParameters)
	}
}

func TestCheckDatetimeLayouts(t *testing.T) {
	yaml := `
tools:
  - name: create_event
    description: Create a calendar event
    trigger_keywords: ["등록"]
    params:
      - name: title
        display_name: event title
        type: string
        required: true
      - name: start
        display_name: start time
        type: datetime
        required: true
high_risk_tools: []
`
	registry, err := loadRegistry(yaml)
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}
	v := NewValidator(registry, nil)

	cases := []struct {
		name  string
		start string
		valid bool
	}{
		{name: "rfc3339", start: "2026-09-01T14:00:00+09:00", valid: true},
		{name: "date and time", start: "2026-09-01 14:00", valid: true},
		{name: "date only", start: "2026-09-01", valid: true},
		{name: "prose", start: "next tuesday-ish", valid: false},
		{name: "empty", start: "", valid: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := v.Check("create_event", map[string]any{
				"title": "standup",
				"start": tc.start,
			})
			if outcome.IsValid != tc.valid {
				t.Errorf("start %q: valid = %v, want %v", tc.start, outcome.IsValid, tc.valid)
			}
		})
	}
}
