// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var (
	// intentDecisionsTotal counts Stage 1 outcomes by resolution path and result.
	// path: fast_path | oracle. result: tool | chat.
	intentDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selene",
			Subsystem: "pipeline",
			Name:      "intent_decisions_total",
			Help:      "Intent decisions by resolution path and result.",
		},
		[]string{"path", "result"},
	)

	// oracleParseFailuresTotal counts classifier replies that were not valid JSON.
	oracleParseFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "selene",
			Subsystem: "pipeline",
			Name:      "oracle_parse_failures_total",
			Help:      "Classifier responses rejected as unparseable.",
		},
	)

	// validationOutcomesTotal counts Stage 2 outcomes per tool.
	// outcome: valid | missing | malformed | rejected.
	validationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selene",
			Subsystem: "pipeline",
			Name:      "validation_outcomes_total",
			Help:      "Parameter validation outcomes by tool.",
		},
		[]string{"tool", "outcome"},
	)

	// confirmationsTotal counts risk-gate turns by terminal disposition.
	// disposition: requested | confirmed | declined | reasked | aborted | expired.
	confirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selene",
			Subsystem: "pipeline",
			Name:      "confirmations_total",
			Help:      "High-risk confirmation turns by disposition.",
		},
		[]string{"tool", "disposition"},
	)

	// executionsTotal counts tool executions by outcome (ok | error).
	executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selene",
			Subsystem: "pipeline",
			Name:      "tool_executions_total",
			Help:      "Tool executions by outcome.",
		},
		[]string{"tool", "outcome"},
	)

	// pipelineLatency observes end-to-end Process durations in seconds.
	pipelineLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "selene",
			Subsystem: "pipeline",
			Name:      "process_duration_seconds",
			Help:      "End-to-end pipeline latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

var pipelineTracer = otel.Tracer("selene.assistant.pipeline")
