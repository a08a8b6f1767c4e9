// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/selene-ai/selene/services/assistant/config"
)

// datetimeLayouts are the accepted datetime input shapes, tried in order.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Validator is Stage 2: it checks a raw parameter bag against the tool's
// declared schema and produces either normalized parameters or a
// deterministic clarification question.
//
// Description:
//
//	Validation is purely structural; no oracle call is ever made here.
//	Failures are partitioned into missing (required key absent) and
//	malformed (key present but failing its type check). Missing fields
//	are asked for by their schema display names; malformed fields get one
//	fixed generic question, so identical inputs always produce identical
//	questions.
//
// Thread Safety: Safe for concurrent use.
type Validator struct {
	registry *config.ToolRegistry
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator wires a Validator over the tool registry.
func NewValidator(registry *config.ToolRegistry, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		registry: registry,
		validate: validator.New(),
		logger:   logger,
	}
}

// Check validates raw parameters for the named tool.
//
// Inputs:
//   - toolName: Must be registered; callers resolve it in Stage 1.
//   - raw: The unvalidated parameter guess. May be nil.
//
// Outputs:
//   - ValidationOutcome: IsValid with NormalizedParameters, or a
//     clarification. Unschematized high-risk tools always fail closed.
func (v *Validator) Check(toolName string, raw map[string]any) ValidationOutcome {
	spec, ok := v.registry.Lookup(toolName)
	if !ok {
		// Unregistered names pass through unchanged; the execution layer
		// rejects them. Stage 1 never resolves to an unregistered tool,
		// so this path only serves direct callers.
		validationOutcomesTotal.WithLabelValues(toolName, "valid").Inc()
		return ValidationOutcome{
			IsValid:              true,
			ToolName:             toolName,
			NormalizedParameters: passthrough(raw),
		}
	}

	if !spec.HasSchema() {
		if v.registry.IsHighRisk(toolName) {
			// A consequential action with no schema cannot be checked,
			// so it cannot be allowed to run.
			validationOutcomesTotal.WithLabelValues(toolName, "rejected").Inc()
			v.logger.Error("high-risk tool has no parameter schema, refusing",
				"tool", toolName,
			)
			return ValidationOutcome{
				ToolName:             toolName,
				ClarificationMessage: FallbackExecutionFailed,
			}
		}
		validationOutcomesTotal.WithLabelValues(toolName, "valid").Inc()
		return ValidationOutcome{
			IsValid:              true,
			ToolName:             toolName,
			NormalizedParameters: passthrough(raw),
		}
	}

	normalized := make(map[string]any, len(spec.Params))
	var missing, malformed []string

	for i := range spec.Params {
		p := &spec.Params[i]
		value, present := raw[p.Name]
		if !present {
			if p.Required {
				missing = append(missing, p.DisplayName)
			} else if p.Default != "" {
				normalized[p.Name] = p.Default
			}
			continue
		}
		coerced, ok := v.checkType(p, value)
		if !ok {
			malformed = append(malformed, p.DisplayName)
			continue
		}
		normalized[p.Name] = coerced
	}

	switch {
	case len(missing) > 0:
		validationOutcomesTotal.WithLabelValues(toolName, "missing").Inc()
		return ValidationOutcome{
			ToolName:             toolName,
			ClarificationMessage: fmt.Sprintf("Could you tell me the %s?", strings.Join(missing, ", ")),
		}
	case len(malformed) > 0:
		validationOutcomesTotal.WithLabelValues(toolName, "malformed").Inc()
		return ValidationOutcome{
			ToolName:             toolName,
			ClarificationMessage: FallbackFormatInvalid,
		}
	default:
		validationOutcomesTotal.WithLabelValues(toolName, "valid").Inc()
		return ValidationOutcome{
			IsValid:              true,
			ToolName:             toolName,
			NormalizedParameters: normalized,
		}
	}
}

// checkType coerces and validates one value against its declared type.
// A present-but-empty string is malformed, not missing.
func (v *Validator) checkType(p *config.ParamSpec, value any) (string, bool) {
	s, isString := value.(string)
	if !isString {
		// Classifiers occasionally emit numbers for free-text fields.
		if p.Type != "string" {
			return "", false
		}
		s = fmt.Sprint(value)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	switch p.Type {
	case "string":
		return s, true
	case "email":
		if err := v.validate.Var(s, "required,email"); err != nil {
			return "", false
		}
		return s, true
	case "datetime":
		for _, layout := range datetimeLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return s, true
			}
		}
		return "", false
	default:
		// Registry loading rejects unknown types; unreachable in practice.
		return "", false
	}
}

// passthrough shallow-copies a raw bag so later stages never alias the
// classifier's map.
func passthrough(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, val := range raw {
		out[k] = val
	}
	return out
}
