// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the client for the capability oracle: an
// OpenRouter-compatible chat completions API reached over raw net/http.
// It supports plain text generation and tool-choice ("auto") mode.
package llm

import "encoding/json"

// Message is a single role-tagged conversation message.
//
// Thread Safety: Message is immutable and safe for concurrent read access.
type Message struct {
	// Role is "system", "user", "assistant", or "tool".
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`
}

// GenerationParams holds optional generation parameters for a chat request.
//
// Description:
//
//	Nil pointer fields are omitted from the wire request so the upstream
//	default applies. ModelOverride selects a different model for a single
//	call without reconfiguring the client.
type GenerationParams struct {
	// Temperature controls randomness (0.0-1.0). Lower favors determinism.
	Temperature *float64

	// MaxTokens limits the response length.
	MaxTokens *int

	// Stop lists stop sequences.
	Stop []string

	// ModelOverride selects the model for this request only.
	ModelOverride string
}

// ToolDef is a tool definition sent to the oracle in tool-choice mode.
// Follows the OpenAI function calling schema.
//
// Thread Safety: ToolDef is immutable and safe for concurrent read access.
type ToolDef struct {
	// Type is always "function".
	Type string `json:"type"`

	// Function contains the function definition.
	Function ToolFunction `json:"function"`
}

// ToolFunction contains the function name, description, and parameter schema.
type ToolFunction struct {
	// Name is the function name the model may call.
	Name string `json:"name"`

	// Description explains what the function does.
	Description string `json:"description"`

	// Parameters is the JSON Schema for the function parameters.
	Parameters ToolParameters `json:"parameters"`
}

// ToolParameters is the JSON Schema object describing tool parameters.
type ToolParameters struct {
	// Type is always "object".
	Type string `json:"type"`

	// Properties maps parameter names to their definitions.
	Properties map[string]ToolParamDef `json:"properties,omitempty"`

	// Required lists parameter names that must be provided.
	Required []string `json:"required,omitempty"`
}

// ToolParamDef defines a single parameter in JSON Schema format.
type ToolParamDef struct {
	// Type is the JSON Schema type (string, integer, boolean, number).
	Type string `json:"type"`

	// Description explains what the parameter is for.
	Description string `json:"description,omitempty"`

	// Format is an optional format hint (e.g., "email", "date-time").
	Format string `json:"format,omitempty"`
}

// ToolCall is a structured tool-call proposal returned by the oracle.
//
// Thread Safety: ToolCall is safe for concurrent read access.
type ToolCall struct {
	// ID is the upstream identifier for this call.
	ID string `json:"id"`

	// Name is the function name the model wants to call.
	Name string `json:"name"`

	// Arguments is the raw JSON argument object.
	Arguments json.RawMessage `json:"arguments"`
}

// ChatResult is the outcome of a tool-choice chat request: generated text,
// zero or more tool-call proposals, or both.
type ChatResult struct {
	// Content is the assistant's text, possibly empty when tools were called.
	Content string `json:"content"`

	// ToolCalls holds the proposed tool invocations, if any.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// StopReason is "tool_use" when tool calls are present, "end" otherwise.
	StopReason string `json:"stop_reason"`
}
