// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/selene-ai/selene/services/llm"
)

// ToolRunner executes a named tool with validated parameters and returns
// the user-facing result text. Implemented by the tools registry.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ToolRunner interface {
	Run(ctx context.Context, toolName string, params map[string]any) (string, error)
}

// Orchestrator sequences the pipeline stages for each incoming message.
//
// Description:
//
//	Process is the single entry point. Every branch terminates in a
//	well-formed Result; stage failures degrade to fixed fallback
//	messages and never surface as errors to the transport. On a
//	tools-enabled request, a session with a pending high-risk
//	confirmation consumes its next message as the yes/no reply before
//	any new intent resolution happens, so a confirmed action can never
//	be anything other than the one the user was shown. A tools-disabled
//	request is always plain chat and leaves any pending action in place.
//
// Thread Safety: Safe for concurrent use. Confirmation state is stored
// per session; concurrent messages within one session race on the
// pending entry, last write wins.
type Orchestrator struct {
	resolver  *Resolver
	validator *Validator
	gate      *RiskGate
	store     ConfirmStore
	runner    ToolRunner
	oracle    Oracle
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline. All collaborators are required
// except logger, which defaults to slog.Default().
func NewOrchestrator(
	resolver *Resolver,
	validator *Validator,
	gate *RiskGate,
	store ConfirmStore,
	runner ToolRunner,
	oracle Oracle,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		resolver:  resolver,
		validator: validator,
		gate:      gate,
		store:     store,
		runner:    runner,
		oracle:    oracle,
		logger:    logger,
	}
}

// Process handles one user message end to end.
//
// Inputs:
//   - ctx: Request-scoped context; bounds oracle calls and tool execution.
//   - req: The message. SessionID must be set by the caller.
//
// Outputs:
//   - Result: Always well-formed; Message is never empty.
func (o *Orchestrator) Process(ctx context.Context, req Request) Result {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.Process")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	start := time.Now()
	defer func() {
		pipelineLatency.Observe(time.Since(start).Seconds())
	}()

	// Disabled tools force plain chat even over a pending confirmation:
	// a "yes" must never execute anything on a request that opted out of
	// tools. The pending entry stays until its TTL clears it.
	if !req.EnableTools {
		return o.plainChat(ctx, req.Message)
	}

	if result, handled := o.resumePending(ctx, req); handled {
		return result
	}

	decision := o.resolver.Resolve(ctx, req.Message)
	if !decision.ToolNeeded {
		return o.plainChat(ctx, req.Message)
	}
	span.SetAttributes(
		attribute.String("pipeline.tool", decision.ToolName),
		attribute.Float64("pipeline.confidence", decision.Confidence),
	)

	outcome := o.validator.Check(decision.ToolName, decision.RawParameters)
	if !outcome.IsValid {
		msg := outcome.ClarificationMessage
		if msg == "" {
			msg = FallbackClarification
		}
		return Result{Message: msg, Success: false}
	}

	if o.gate.RequiresConfirmation(outcome.ToolName) {
		return o.requestConfirmation(ctx, req.SessionID, outcome)
	}

	return o.execute(ctx, outcome.ToolName, outcome.NormalizedParameters)
}

// resumePending consumes the message as a confirmation reply when the
// session has an unexpired pending action. Returns handled=false when
// there is nothing pending and normal resolution should proceed.
func (o *Orchestrator) resumePending(ctx context.Context, req Request) (Result, bool) {
	pending, ok, err := o.store.Get(ctx, req.SessionID)
	if err != nil {
		// Cannot tell whether a confirmation is pending. Treat the
		// message as a fresh request; the stored action stays blocked
		// until its TTL clears it.
		o.logger.Error("pending confirmation lookup failed", "error", err,
			"session_id", req.SessionID)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	switch o.gate.InterpretReply(req.Message) {
	case ReplyNegative:
		o.deletePending(ctx, req.SessionID)
		confirmationsTotal.WithLabelValues(pending.Tool, "declined").Inc()
		o.logger.Info("high-risk action declined",
			"session_id", req.SessionID, "tool", pending.Tool)
		return Result{Message: FallbackAborted, Success: false}, true

	case ReplyAffirmative:
		o.deletePending(ctx, req.SessionID)
		confirmationsTotal.WithLabelValues(pending.Tool, "confirmed").Inc()
		o.logger.Info("high-risk action confirmed",
			"session_id", req.SessionID, "tool", pending.Tool)
		return o.execute(ctx, pending.Tool, pending.Parameters), true

	default:
		if pending.ReAsked {
			o.deletePending(ctx, req.SessionID)
			confirmationsTotal.WithLabelValues(pending.Tool, "aborted").Inc()
			return Result{Message: FallbackAborted, Success: false}, true
		}
		pending.ReAsked = true
		if err := o.store.Put(ctx, req.SessionID, *pending); err != nil {
			o.logger.Error("pending confirmation update failed", "error", err)
			return Result{Message: FallbackAborted, Success: false}, true
		}
		confirmationsTotal.WithLabelValues(pending.Tool, "reasked").Inc()
		return Result{
			Message: "I need a clear yes or no. " + pending.Prompt,
			Success: true,
		}, true
	}
}

// requestConfirmation stores the validated action and asks the user. A
// storage failure fails closed: the action is not executed.
func (o *Orchestrator) requestConfirmation(ctx context.Context, sessionID string, outcome ValidationOutcome) Result {
	prompt := o.gate.ConfirmationPrompt(outcome.ToolName, outcome.NormalizedParameters)
	pending := PendingAction{
		Tool:       outcome.ToolName,
		Parameters: outcome.NormalizedParameters,
		Prompt:     prompt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.store.Put(ctx, sessionID, pending); err != nil {
		o.logger.Error("pending confirmation store failed, refusing action",
			"error", err, "tool", outcome.ToolName, "session_id", sessionID)
		return Result{Message: FallbackOracleFailure, Success: false}
	}
	confirmationsTotal.WithLabelValues(outcome.ToolName, "requested").Inc()
	o.logger.Info("high-risk action awaiting confirmation",
		"session_id", sessionID, "tool", outcome.ToolName)
	return Result{Message: prompt, Success: true}
}

// execute runs a validated tool and wraps its output.
func (o *Orchestrator) execute(ctx context.Context, toolName string, params map[string]any) Result {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("pipeline.tool", toolName))

	output, err := o.runner.Run(ctx, toolName, params)
	if err != nil {
		executionsTotal.WithLabelValues(toolName, "error").Inc()
		o.logger.Error("tool execution failed", "tool", toolName, "error", err)
		return Result{Message: FallbackExecutionFailed, ToolUsed: toolName, Success: false}
	}
	executionsTotal.WithLabelValues(toolName, "ok").Inc()
	return Result{Message: output, ToolUsed: toolName, Success: true}
}

// plainChat answers without tools, using the assistant persona.
func (o *Orchestrator) plainChat(ctx context.Context, message string) Result {
	reply, err := o.oracle.Chat(ctx, []llm.Message{
		{Role: "system", Content: persona},
		{Role: "user", Content: message},
	}, llm.GenerationParams{})
	if err != nil {
		o.logger.Warn("plain chat failed", "error", err)
		return Result{Message: FallbackOracleFailure, Success: false}
	}
	return Result{Message: reply, Success: true}
}

func (o *Orchestrator) deletePending(ctx context.Context, sessionID string) {
	if err := o.store.Delete(ctx, sessionID); err != nil {
		o.logger.Error("pending confirmation delete failed", "error", err,
			"session_id", sessionID)
	}
}
