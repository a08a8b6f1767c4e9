// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the staged intent-resolution pipeline that
// turns a free-text user message into either a plain chat reply or a
// validated, risk-gated tool execution.
//
// The stages are:
//
//  1. Intent resolution - keyword fast path, then an oracle-backed
//     classifier (Resolver).
//  2. Parameter validation - structural schema checks producing either
//     normalized parameters or a clarification question (Validator).
//  3. Risk gating - high-risk tools pause for an explicit confirmation
//     turn before execution (RiskGate + ConfirmStore).
//
// The Orchestrator sequences the stages and guarantees every branch
// terminates in a well-formed Result.
package pipeline

import (
	"context"
	"time"

	"github.com/selene-ai/selene/services/llm"
)

// ConversationContext is the ephemeral per-request conversation identity.
// It carries no history; history is an external collaborator's concern.
type ConversationContext struct {
	// UserID identifies the requesting user.
	UserID string

	// SessionID identifies the conversation.
	SessionID string
}

// IntentDecision is the Stage 1 outcome for one message.
//
// Description:
//
//	Immutable once returned. ToolName is non-empty iff ToolNeeded is true.
//	RawParameters is the unvalidated parameter guess; the fast path always
//	guesses {"query": message}.
type IntentDecision struct {
	// ToolNeeded reports whether a tool should handle the message.
	ToolNeeded bool `json:"tool_needed"`

	// ToolName is the selected tool. Empty when ToolNeeded is false.
	ToolName string `json:"tool_name,omitempty"`

	// RawParameters is the unvalidated parameter guess.
	RawParameters map[string]any `json:"parameters,omitempty"`

	// Confidence is the selection confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// ValidationOutcome is the Stage 2 outcome for a tool's raw parameters.
//
// Description:
//
//	Exactly one of NormalizedParameters (when IsValid) or
//	ClarificationMessage (when not) is populated.
type ValidationOutcome struct {
	// IsValid reports whether the parameters satisfy the tool's schema.
	IsValid bool

	// ToolName echoes the validated tool.
	ToolName string

	// NormalizedParameters is the coerced/defaulted parameter set.
	NormalizedParameters map[string]any

	// ClarificationMessage is the follow-up question on failure.
	ClarificationMessage string
}

// Result is the terminal pipeline output for one message.
type Result struct {
	// Message is the user-facing reply.
	Message string `json:"message"`

	// ToolUsed names the executed tool, if any.
	ToolUsed string `json:"tool_used,omitempty"`

	// Success reports whether the request completed as intended.
	Success bool `json:"success"`
}

// Request is one incoming message to process.
type Request struct {
	// UserID identifies the requesting user.
	UserID string

	// SessionID identifies the conversation. Must not be empty.
	SessionID string

	// Message is the raw user text.
	Message string

	// EnableTools gates the tool pipeline; false forces a plain chat reply.
	EnableTools bool
}

// Oracle is the pipeline's view of the capability oracle. Implemented by
// *llm.Client; stages only need plain chat.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Oracle interface {
	// Chat sends messages and returns the assistant's response text.
	Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error)
}

// PendingAction is a validated high-risk action waiting for the user's
// yes/no reply in the same session.
type PendingAction struct {
	// Tool is the tool awaiting confirmation.
	Tool string `json:"tool"`

	// Parameters is the normalized parameter set to execute with.
	Parameters map[string]any `json:"parameters"`

	// Prompt is the confirmation question shown to the user.
	Prompt string `json:"prompt"`

	// ReAsked is set after one ambiguous reply; a second ambiguous reply aborts.
	ReAsked bool `json:"re_asked"`

	// CreatedAt is when the confirmation was requested.
	CreatedAt time.Time `json:"created_at"`
}

// ConfirmStore persists pending confirmations keyed by session.
//
// Description:
//
//	Entries expire after the store's TTL; Get never returns an expired
//	entry. Implementations: MemoryConfirmStore and BadgerConfirmStore.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ConfirmStore interface {
	// Put stores (or replaces) the pending action for a session.
	Put(ctx context.Context, sessionID string, action PendingAction) error

	// Get returns the pending action for a session, if present and unexpired.
	Get(ctx context.Context, sessionID string) (*PendingAction, bool, error)

	// Delete removes the pending action for a session.
	Delete(ctx context.Context, sessionID string) error
}

// Fixed user-facing fallback strings. Every pipeline branch that cannot
// produce a real reply falls back to one of these; upstream faults never
// propagate to the transport.
const (
	// FallbackOracleFailure covers transient oracle/tool transport failures.
	FallbackOracleFailure = "Sorry, something went wrong on my end. Please try again in a moment."

	// FallbackClarification covers validation failures with no clarification text.
	FallbackClarification = "Could you say that again?"

	// FallbackFormatInvalid covers parameters that are present but malformed.
	// Deliberately generic: malformed values are often classifier guesses,
	// and echoing field names back invites the user to repeat the same guess.
	FallbackFormatInvalid = "Some of that doesn't look right. Could you rephrase your request?"

	// FallbackExecutionFailed covers tool execution failures.
	FallbackExecutionFailed = "Sorry, I couldn't complete that action."

	// FallbackAborted covers declined or expired confirmations.
	FallbackAborted = "Okay, I won't proceed with that."
)
