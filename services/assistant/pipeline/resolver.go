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
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/selene-ai/selene/services/assistant/config"
	"github.com/selene-ai/selene/services/llm"
)

// fastPathConfidence is the fixed confidence assigned to keyword matches.
// It sits above the execution threshold but below what a confident oracle
// classification reports, so downstream consumers can tell the paths apart.
const fastPathConfidence = 0.7

// classifierTemperature keeps the oracle's JSON output near-deterministic.
const classifierTemperature = 0.1

// Resolver is Stage 1: it maps a user message to an IntentDecision.
//
// Description:
//
//	Resolution is two-tier. The keyword fast path scans the registry's
//	trigger keywords in registry order and short-circuits on the first
//	match without consulting the oracle. Only keyword misses escalate to
//	the oracle classifier. The resolver never returns an error: any
//	oracle or parse failure degrades to a no-tool decision so the
//	conversation can continue as plain chat.
//
// Thread Safety: Safe for concurrent use.
type Resolver struct {
	oracle   Oracle
	registry *config.ToolRegistry
	logger   *slog.Logger
}

// NewResolver wires a Resolver over the given oracle and tool registry.
func NewResolver(oracle Oracle, registry *config.ToolRegistry, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{oracle: oracle, registry: registry, logger: logger}
}

// Resolve classifies one message.
//
// Inputs:
//   - ctx: Request-scoped context; bounds the oracle call.
//   - message: The raw user text.
//
// Outputs:
//   - IntentDecision: Never zero-valued on the tool path; tool decisions
//     always carry a non-empty ToolName known to the registry.
func (r *Resolver) Resolve(ctx context.Context, message string) IntentDecision {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.Resolve")
	defer span.End()

	if decision, ok := r.matchKeywords(message); ok {
		span.SetAttributes(
			attribute.String("intent.path", "fast_path"),
			attribute.String("intent.tool", decision.ToolName),
		)
		intentDecisionsTotal.WithLabelValues("fast_path", "tool").Inc()
		r.logger.Debug("intent resolved on fast path",
			"tool", decision.ToolName,
			"confidence", decision.Confidence,
		)
		return decision
	}

	decision := r.classify(ctx, span, message)
	result := "chat"
	if decision.ToolNeeded {
		result = "tool"
	}
	intentDecisionsTotal.WithLabelValues("oracle", result).Inc()
	return decision
}

// matchKeywords runs the deterministic fast path. Matching is case-folded
// substring containment; the first matching tool in registry order wins.
func (r *Resolver) matchKeywords(message string) (IntentDecision, bool) {
	folded := strings.ToLower(message)
	for _, spec := range r.registry.Specs() {
		for _, keyword := range spec.TriggerKeywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(folded, strings.ToLower(keyword)) {
				return IntentDecision{
					ToolNeeded:    true,
					ToolName:      spec.Name,
					RawParameters: map[string]any{"query": message},
					Confidence:    fastPathConfidence,
				}, true
			}
		}
	}
	return IntentDecision{}, false
}

// classify escalates to the oracle. Exactly one oracle call is made per
// invocation. Unreachable oracles and malformed replies both collapse to
// the no-tool decision.
func (r *Resolver) classify(ctx context.Context, span trace.Span, message string) IntentDecision {
	span.SetAttributes(attribute.String("intent.path", "oracle"))

	temp := classifierTemperature
	reply, err := r.oracle.Chat(ctx, []llm.Message{
		{Role: "system", Content: classifierSystemPrompt + "\n\n" + buildToolCatalog(r.registry)},
		{Role: "user", Content: message},
	}, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		r.logger.Warn("oracle classification failed, treating as plain chat", "error", err)
		return IntentDecision{ToolNeeded: false}
	}

	decision, ok := parseDecision(reply)
	if !ok {
		oracleParseFailuresTotal.Inc()
		r.logger.Warn("unparseable classifier reply, treating as plain chat",
			"reply_prefix", prefix(reply, 120),
		)
		return IntentDecision{ToolNeeded: false}
	}

	if decision.ToolNeeded {
		if _, known := r.registry.Lookup(decision.ToolName); !known {
			r.logger.Warn("classifier selected unknown tool, treating as plain chat",
				"tool", decision.ToolName,
			)
			return IntentDecision{ToolNeeded: false}
		}
		span.SetAttributes(attribute.String("intent.tool", decision.ToolName))
	}
	return decision
}

// parseDecision extracts an IntentDecision from the classifier reply.
// Code fences and surrounding prose are tolerated by slicing out the
// first top-level JSON object; anything else fails the parse.
func parseDecision(reply string) (IntentDecision, bool) {
	raw := strings.TrimSpace(reply)
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return IntentDecision{}, false
	}

	var decision IntentDecision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decision); err != nil {
		return IntentDecision{}, false
	}
	if decision.ToolNeeded && decision.ToolName == "" {
		return IntentDecision{}, false
	}
	if decision.Confidence < 0 || decision.Confidence > 1 {
		return IntentDecision{}, false
	}
	if !decision.ToolNeeded {
		// Normalize: a no-tool decision carries no tool fields.
		decision.ToolName = ""
		decision.RawParameters = nil
	}
	return decision, true
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
