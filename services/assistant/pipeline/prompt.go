// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"strings"

	"github.com/selene-ai/selene/services/assistant/config"
)

// classifierSystemPrompt frames the oracle as a strict JSON classifier.
// The reply must be a single JSON object and nothing else; the resolver
// treats anything unparseable as "no tool".
const classifierSystemPrompt = `You are an intent classifier for a personal assistant.
Given the user's message and the catalog of available tools, decide whether
a tool should handle the message.

Respond with ONLY a single JSON object, no prose, no code fences:
{"tool_needed": <bool>, "tool_name": "<name or empty>", "parameters": {<extracted parameters>}, "confidence": <0.0-1.0>}

Rules:
- tool_name must be one of the catalog names exactly, or empty when tool_needed is false.
- parameters must only use the parameter names listed for that tool.
- Extract parameter values from the user's message; omit parameters you cannot infer.
- confidence reflects how certain you are of the selection.`

// persona is the system prompt for plain conversational replies.
const persona = `You are Selene, a concise and friendly personal assistant.
Answer the user directly in their language. Do not mention tools.`

// buildToolCatalog renders the registry as the classifier's tool catalog.
//
// Description:
//
//	One block per tool in registry order: name, description, and the
//	parameter list with types and required markers. Tools without a
//	parameter schema are listed with their name and description only.
func buildToolCatalog(registry *config.ToolRegistry) string {
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, spec := range registry.Specs() {
		b.WriteString("- ")
		b.WriteString(spec.Name)
		b.WriteString(": ")
		b.WriteString(spec.Description)
		b.WriteString("\n")
		for _, p := range spec.Params {
			b.WriteString("    ")
			b.WriteString(p.Name)
			b.WriteString(" (")
			b.WriteString(p.Type)
			if p.Required {
				b.WriteString(", required")
			}
			b.WriteString(")")
			if p.Description != "" {
				b.WriteString(": ")
				b.WriteString(p.Description)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
