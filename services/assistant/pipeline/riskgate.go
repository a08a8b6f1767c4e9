// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/selene-ai/selene/services/assistant/config"
)

// Reply is the interpretation of a user's confirmation-turn message.
type Reply int

const (
	// ReplyAmbiguous means the message was neither a clear yes nor a clear no.
	ReplyAmbiguous Reply = iota

	// ReplyAffirmative means the user approved the pending action.
	ReplyAffirmative

	// ReplyNegative means the user declined the pending action.
	ReplyNegative
)

// Negative cues are checked before affirmative ones so a reply like
// "no, don't, it's ok" declines rather than approves.
var (
	negativeTokens = map[string]struct{}{
		"no": {}, "nope": {}, "n": {}, "don't": {}, "dont": {},
		"stop": {}, "cancel": {}, "never": {}, "abort": {},
	}
	negativePhrases = []string{"아니", "취소", "안돼", "안 돼", "하지마", "하지 마"}

	affirmativeTokens = map[string]struct{}{
		"yes": {}, "y": {}, "yeah": {}, "yep": {}, "sure": {},
		"ok": {}, "okay": {}, "confirm": {}, "confirmed": {}, "proceed": {},
	}
	affirmativePhrases = []string{"go ahead", "do it", "응", "네", "예", "좋아", "그래", "진행해", "확인"}
)

// RiskGate is Stage 3: it decides which validated actions must pause for
// an explicit confirmation turn, builds the confirmation question, and
// interprets the user's reply.
//
// Description:
//
//	High-risk membership comes from the registry. Bypass (for trusted
//	automation callers) can be enabled globally; it is off by default
//	and every bypassed confirmation is the caller's responsibility.
//
// Thread Safety: Safe for concurrent use.
type RiskGate struct {
	registry *config.ToolRegistry
	bypass   bool
}

// NewRiskGate wires a RiskGate over the tool registry.
func NewRiskGate(registry *config.ToolRegistry, bypass bool) *RiskGate {
	return &RiskGate{registry: registry, bypass: bypass}
}

// RequiresConfirmation reports whether the named tool must pause for a
// confirmation turn before executing.
func (g *RiskGate) RequiresConfirmation(toolName string) bool {
	if g.bypass {
		return false
	}
	return g.registry.IsHighRisk(toolName)
}

// ConfirmationPrompt builds the question shown before a high-risk action.
//
// Description:
//
//	The prompt restates the tool and its validated parameters in a
//	stable order so the user confirms exactly what will run. Parameter
//	order is sorted by key for determinism.
func (g *RiskGate) ConfirmationPrompt(toolName string, params map[string]any) string {
	label := toolName
	if spec, ok := g.registry.Lookup(toolName); ok && spec.Description != "" {
		label = spec.Description
	}

	if len(params) == 0 {
		return fmt.Sprintf("This will %s. Should I go ahead? (yes/no)", lowerFirst(label))
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "This will %s with:\n", lowerFirst(label))
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", displayName(g.registry, toolName, k), params[k])
	}
	b.WriteString("Should I go ahead? (yes/no)")
	return b.String()
}

// InterpretReply classifies a confirmation-turn message. Negative cues
// win over affirmative ones; anything without a clear cue is ambiguous.
func (g *RiskGate) InterpretReply(message string) Reply {
	folded := strings.ToLower(strings.TrimSpace(message))
	if folded == "" {
		return ReplyAmbiguous
	}

	for _, phrase := range negativePhrases {
		if strings.Contains(folded, phrase) {
			return ReplyNegative
		}
	}
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	})
	for _, tok := range tokens {
		if _, ok := negativeTokens[tok]; ok {
			return ReplyNegative
		}
	}

	for _, phrase := range affirmativePhrases {
		if strings.Contains(folded, phrase) {
			return ReplyAffirmative
		}
	}
	for _, tok := range tokens {
		if _, ok := affirmativeTokens[tok]; ok {
			return ReplyAffirmative
		}
	}
	return ReplyAmbiguous
}

// displayName resolves a parameter key to its schema display name,
// falling back to the raw key for passthrough parameters.
func displayName(registry *config.ToolRegistry, toolName, key string) string {
	if spec, ok := registry.Lookup(toolName); ok {
		for i := range spec.Params {
			if spec.Params[i].Name == key && spec.Params[i].DisplayName != "" {
				return spec.Params[i].DisplayName
			}
		}
	}
	return key
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
