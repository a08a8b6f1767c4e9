// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"testing"
)

func TestGetToolRegistry_EmbeddedDefaults(t *testing.T) {
	reg, err := GetToolRegistry(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	specs := reg.Specs()
	if len(specs) != 6 {
		t.Fatalf("expected 6 tools in embedded registry, got %d", len(specs))
	}
	if specs[0].Name != "google_search" {
		t.Errorf("expected google_search first (keyword precedence), got %q", specs[0].Name)
	}

	email, ok := reg.Lookup("send_email")
	if !ok {
		t.Fatal("send_email not registered")
	}
	if !email.HasSchema() {
		t.Error("send_email should declare a schema")
	}
	if !reg.IsHighRisk("send_email") {
		t.Error("send_email should be high-risk")
	}
	if reg.IsHighRisk("google_search") {
		t.Error("google_search should not be high-risk")
	}

	cal, ok := reg.Lookup("get_calendar")
	if !ok {
		t.Fatal("get_calendar not registered")
	}
	if cal.HasSchema() {
		t.Error("get_calendar should be unschematized")
	}
}

func TestLoadToolRegistryFromBytes_DuplicateName(t *testing.T) {
	doc := []byte(`
tools:
  - name: alpha
    description: "a"
  - name: alpha
    description: "a again"
`)
	if _, err := LoadToolRegistryFromBytes(doc, nil); err == nil {
		t.Fatal("expected error for duplicate tool name")
	}
}

func TestLoadToolRegistryFromBytes_UnknownParamType(t *testing.T) {
	doc := []byte(`
tools:
  - name: alpha
    params:
      - name: when
        type: epoch
`)
	if _, err := LoadToolRegistryFromBytes(doc, nil); err == nil {
		t.Fatal("expected error for unknown parameter type")
	}
}

func TestLoadToolRegistryFromBytes_UnregisteredHighRisk(t *testing.T) {
	doc := []byte(`
tools:
  - name: alpha
high_risk_tools:
  - beta
`)
	if _, err := LoadToolRegistryFromBytes(doc, nil); err == nil {
		t.Fatal("expected error for unregistered high-risk tool")
	}
}

func TestLoadToolRegistryFromBytes_HighRiskOverride(t *testing.T) {
	doc := []byte(`
tools:
  - name: alpha
  - name: beta
high_risk_tools:
  - alpha
`)
	reg, err := LoadToolRegistryFromBytes(doc, []string{"beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.IsHighRisk("alpha") {
		t.Error("override should replace the document's high-risk set")
	}
	if !reg.IsHighRisk("beta") {
		t.Error("beta should be high-risk after override")
	}
}

func TestLoadToolRegistryFromBytes_Empty(t *testing.T) {
	if _, err := LoadToolRegistryFromBytes([]byte("tools: []"), nil); err == nil {
		t.Fatal("expected error for empty registry")
	}
}
