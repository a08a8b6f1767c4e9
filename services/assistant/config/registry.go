// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the assistant's startup configuration: the tool
// registry (embedded YAML, optionally overridden from disk) and the
// environment-derived runtime settings.
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Tool Registry
// =============================================================================

//go:embed tools.yaml
var defaultToolsYAML []byte

// =============================================================================
// Tool Registry Types
// =============================================================================

// Param type identifiers accepted in the registry document.
const (
	ParamTypeString   = "string"
	ParamTypeEmail    = "email"
	ParamTypeDatetime = "datetime"
)

// ParamSpec declares a single tool parameter.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ParamSpec struct {
	// Name is the parameter key in the raw parameter bag.
	Name string `yaml:"name"`

	// DisplayName is the user-facing name used in clarification messages.
	DisplayName string `yaml:"display_name"`

	// Type is one of string, email, datetime.
	Type string `yaml:"type"`

	// Required marks the parameter as mandatory.
	Required bool `yaml:"required"`

	// Default is applied to absent optional parameters when non-empty.
	Default string `yaml:"default"`

	// Description explains the parameter (used in oracle prompts).
	Description string `yaml:"description"`
}

// ToolSpec is a static registry entry for one tool.
//
// Description:
//
//	Describes a tool's identity, its trigger keywords for the intent
//	fast path, and its declared parameter schema. A tool with no params
//	is unschematized and handled permissively by the validator.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type ToolSpec struct {
	// Name is the unique tool identifier.
	Name string `yaml:"name"`

	// Description is a short human-readable summary.
	Description string `yaml:"description"`

	// TriggerKeywords are case-folded substrings that select this tool
	// on the fast path.
	TriggerKeywords []string `yaml:"trigger_keywords"`

	// Params is the declared parameter schema. Empty means unschematized.
	Params []ParamSpec `yaml:"params"`
}

// HasSchema reports whether the tool declares a parameter schema.
func (s *ToolSpec) HasSchema() bool {
	return len(s.Params) > 0
}

// registryDocument is the YAML document shape.
type registryDocument struct {
	Tools         []ToolSpec `yaml:"tools"`
	HighRiskTools []string   `yaml:"high_risk_tools"`
}

// ToolRegistry is the process-wide tool registry.
//
// Description:
//
//	Built once at startup and never mutated during request handling.
//	Specs preserves document order, which defines fast-path keyword
//	precedence.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type ToolRegistry struct {
	specs    []ToolSpec
	byName   map[string]*ToolSpec
	highRisk map[string]struct{}
}

// Specs returns the tool specs in registry order.
func (r *ToolRegistry) Specs() []ToolSpec {
	return r.specs
}

// Lookup returns the spec for a tool name, if registered.
func (r *ToolRegistry) Lookup(name string) (*ToolSpec, bool) {
	spec, ok := r.byName[name]
	return spec, ok
}

// IsHighRisk reports whether the named tool requires confirmation.
func (r *ToolRegistry) IsHighRisk(name string) bool {
	_, ok := r.highRisk[name]
	return ok
}

// HighRiskTools returns the high-risk tool names (unordered).
func (r *ToolRegistry) HighRiskTools() []string {
	names := make([]string, 0, len(r.highRisk))
	for name := range r.highRisk {
		names = append(names, name)
	}
	return names
}

// =============================================================================
// Loading
// =============================================================================

var (
	registryOnce sync.Once
	registryInst *ToolRegistry
	registryErr  error
)

// GetToolRegistry returns the process-wide tool registry, loading it on
// first use.
//
// Description:
//
//	Reads SELENE_TOOLS_CONFIG when set, otherwise the embedded default
//	document. SELENE_HIGH_RISK_TOOLS (comma-separated names) replaces the
//	document's high-risk set. The result is cached for process lifetime;
//	subsequent calls return the same registry.
//
// Outputs:
//
//	*ToolRegistry - The loaded registry.
//	error - Non-nil if the document cannot be read or fails validation.
//
// Thread Safety: Safe for concurrent use.
func GetToolRegistry(ctx context.Context) (*ToolRegistry, error) {
	registryOnce.Do(func() {
		registryInst, registryErr = loadToolRegistry()
	})
	return registryInst, registryErr
}

// LoadToolRegistryFromBytes parses and validates a registry document.
// Exposed for tests and for operators validating override files.
func LoadToolRegistryFromBytes(data []byte, highRiskOverride []string) (*ToolRegistry, error) {
	var doc registryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing tool registry: %w", err)
	}

	if len(doc.Tools) == 0 {
		return nil, fmt.Errorf("config: tool registry declares no tools")
	}

	highRiskNames := doc.HighRiskTools
	if highRiskOverride != nil {
		highRiskNames = highRiskOverride
	}

	reg := &ToolRegistry{
		specs:    doc.Tools,
		byName:   make(map[string]*ToolSpec, len(doc.Tools)),
		highRisk: make(map[string]struct{}, len(highRiskNames)),
	}

	for i := range reg.specs {
		spec := &reg.specs[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("config: tool at index %d has no name", i)
		}
		if _, dup := reg.byName[spec.Name]; dup {
			return nil, fmt.Errorf("config: duplicate tool name %q", spec.Name)
		}
		for _, p := range spec.Params {
			if p.Name == "" {
				return nil, fmt.Errorf("config: tool %q declares a nameless parameter", spec.Name)
			}
			switch p.Type {
			case ParamTypeString, ParamTypeEmail, ParamTypeDatetime:
			default:
				return nil, fmt.Errorf("config: tool %q parameter %q has unknown type %q",
					spec.Name, p.Name, p.Type)
			}
		}
		reg.byName[spec.Name] = spec
	}

	for _, name := range highRiskNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := reg.byName[name]; !ok {
			return nil, fmt.Errorf("config: high-risk tool %q is not registered", name)
		}
		reg.highRisk[name] = struct{}{}
	}

	return reg, nil
}

func loadToolRegistry() (*ToolRegistry, error) {
	data := defaultToolsYAML
	source := "embedded"
	if path := os.Getenv("SELENE_TOOLS_CONFIG"); path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		data = fileData
		source = path
	}

	var highRiskOverride []string
	if raw := os.Getenv("SELENE_HIGH_RISK_TOOLS"); raw != "" {
		highRiskOverride = strings.Split(raw, ",")
	}

	reg, err := LoadToolRegistryFromBytes(data, highRiskOverride)
	if err != nil {
		return nil, err
	}

	slog.Info("Tool registry loaded",
		slog.String("source", source),
		slog.Int("tools", len(reg.specs)),
		slog.Int("high_risk", len(reg.highRisk)),
	)
	return reg, nil
}
