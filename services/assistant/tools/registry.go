// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tools maps validated tool invocations to executors. The
// pipeline hands this package a tool name and a normalized parameter
// bag; nothing here re-validates, re-classifies, or asks for
// confirmation.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var executorLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "selene",
		Subsystem: "tools",
		Name:      "executor_duration_seconds",
		Help:      "Per-tool executor latency.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"tool"},
)

var toolsTracer = otel.Tracer("selene.assistant.tools")

// Executor performs one tool's side effect and returns user-facing text.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Executor interface {
	// Execute runs the tool with validated, normalized parameters.
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, params map[string]any) (string, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, params map[string]any) (string, error) {
	return f(ctx, params)
}

// Registry dispatches tool invocations by name.
//
// Description:
//
//	Registration happens at startup; Run is the hot path. Unknown tool
//	names are an error, never a silent no-op, so a registry/executor
//	mismatch surfaces immediately.
//
// Thread Safety: Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	logger    *slog.Logger
}

// NewRegistry builds an empty executor registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		executors: make(map[string]Executor),
		logger:    logger,
	}
}

// Register binds an executor to a tool name.
//
// Outputs:
//   - error: Non-nil when the name is empty, the executor is nil, or the
//     name is already registered.
func (r *Registry) Register(name string, exec Executor) error {
	if name == "" {
		return fmt.Errorf("tools: executor name must not be empty")
	}
	if exec == nil {
		return fmt.Errorf("tools: executor for %q must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; exists {
		return fmt.Errorf("tools: executor %q already registered", name)
	}
	r.executors[name] = exec
	return nil
}

// Names returns the registered tool names (unordered).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	return names
}

// Run executes the named tool.
//
// Inputs:
//   - ctx: Bounds the execution.
//   - toolName: Must be registered.
//   - params: Normalized parameters from validation.
//
// Outputs:
//   - string: User-facing result text.
//   - error: Unknown tool or executor failure.
func (r *Registry) Run(ctx context.Context, toolName string, params map[string]any) (string, error) {
	ctx, span := toolsTracer.Start(ctx, "tools.Run")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolName))

	r.mu.RLock()
	exec, ok := r.executors[toolName]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("tools: no executor registered for %q", toolName)
	}

	timer := prometheus.NewTimer(executorLatency.WithLabelValues(toolName))
	defer timer.ObserveDuration()

	output, err := exec.Execute(ctx, params)
	if err != nil {
		return "", fmt.Errorf("tools: %s: %w", toolName, err)
	}
	r.logger.Debug("tool executed", "tool", toolName)
	return output, nil
}
