// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	oracleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "selene",
		Subsystem: "oracle",
		Name:      "requests_total",
		Help:      "Oracle chat requests by mode (text, tools) and outcome",
	}, []string{"mode", "outcome"})

	oracleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "selene",
		Subsystem: "oracle",
		Name:      "latency_seconds",
		Help:      "Latency of oracle chat completions",
		Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"mode"})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var oracleTracer = otel.Tracer("selene.llm.openrouter")

// =============================================================================
// OpenRouter Wire Types
// =============================================================================

const (
	// DefaultBaseURL is the OpenRouter chat completions endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultModel is used when no model is configured.
	DefaultModel = "google/gemini-2.0-flash-exp:free"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Tools       []ToolDef     `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// =============================================================================
// Client Configuration
// =============================================================================

// Config holds the OpenRouter client configuration.
//
// Description:
//
//	Zero values fall back to defaults: DefaultBaseURL, DefaultModel, a 30s
//	per-call timeout, 8 in-flight calls, and no rate limit. Referer and
//	Title populate the HTTP-Referer and X-Title headers OpenRouter expects
//	for request attribution.
type Config struct {
	// APIKey is the bearer credential. Must not be empty.
	APIKey string

	// BaseURL is the chat completions endpoint.
	BaseURL string

	// Model is the default model identifier.
	Model string

	// Referer identifies the calling application (HTTP-Referer header).
	Referer string

	// Title is the client title (X-Title header).
	Title string

	// Timeout bounds each call. Zero uses 30s.
	Timeout time.Duration

	// MaxInFlight bounds concurrent upstream calls; excess callers queue.
	// Zero uses 8.
	MaxInFlight int64

	// RatePerSecond throttles upstream calls. Zero disables throttling.
	RatePerSecond float64
}

// =============================================================================
// Client Implementation
// =============================================================================

// Client calls an OpenRouter-compatible chat completions API using raw
// net/http with a pooled, keep-alive transport.
//
// Description:
//
//	Supports a plain text mode (Chat) and a tool-choice "auto" mode
//	(ChatWithTools). Concurrent in-flight calls are bounded by a weighted
//	semaphore so the upstream rate limit is not overwhelmed; callers past
//	the bound queue on acquisition rather than failing.
//
// Thread Safety: Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	referer    string
	title      string
	timeout    time.Duration
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an OpenRouter client from the given configuration.
//
// Inputs:
//
//	cfg - Client configuration. APIKey must not be empty.
//	logger - Logger instance. Nil uses slog.Default().
//
// Outputs:
//
//	*Client - The configured client.
//	error - Non-nil if the API key is missing.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter: API key is missing")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 8
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	logger.Info("Initializing OpenRouter client",
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int64("max_in_flight", cfg.MaxInFlight),
	)

	return &Client{
		httpClient: &http.Client{},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		referer:    cfg.Referer,
		title:      cfg.Title,
		timeout:    cfg.Timeout,
		sem:        semaphore.NewWeighted(cfg.MaxInFlight),
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Model returns the default model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a plain-text chat completion request.
//
// Description:
//
//	Converts the messages to wire format and posts them to the chat
//	completions endpoint. Unknown roles are mapped to "user" with a
//	warning. The call is bounded by the configured per-call timeout.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	messages - Conversation messages.
//	params - Generation parameters.
//
// Outputs:
//
//	string - The assistant's response text.
//	error - Non-nil on transport failure, upstream error status,
//	        malformed response body, or an empty choice list.
//
// Thread Safety: Safe for concurrent use.
func (c *Client) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	req := c.buildRequest(messages, params, nil)
	resp, err := c.do(ctx, "text", req)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}


// ChatWithTools sends a chat request with tool definitions in
// tool_choice "auto" mode and returns text and/or tool-call proposals.
//
// Inputs:
//
//	ctx - Context for cancellation. Must not be nil.
//	messages - Conversation messages.
//	params - Generation parameters.
//	tools - Tool definitions the model may invoke.
//
// Outputs:
//
//	*ChatResult - Content and/or tool-call proposals.
//	error - Non-nil on failure.
//
// Thread Safety: Safe for concurrent use.
func (c *Client) ChatWithTools(ctx context.Context, messages []Message, params GenerationParams, tools []ToolDef) (*ChatResult, error) {
	req := c.buildRequest(messages, params, tools)
	resp, err := c.do(ctx, "tools", req)
	if err != nil {
		return nil, err
	}

	choice := resp.Choices[0]
	result := &ChatResult{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	if len(result.ToolCalls) > 0 {
		result.StopReason = "tool_use"
	} else {
		result.StopReason = "end"
	}
	return result, nil
}

// buildRequest converts messages and params into the wire request.
func (c *Client) buildRequest(messages []Message, params GenerationParams, tools []ToolDef) chatRequest {
	model := c.model
	if params.ModelOverride != "" {
		model = params.ModelOverride
	}

	wire := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		role := msg.Role
		switch role {
		case "system", "user", "assistant", "tool":
			// valid roles, keep as-is
		default:
			c.logger.Warn("openrouter: unknown message role, mapping to user",
				slog.String("unknown_role", role),
			)
			role = "user"
		}
		wire = append(wire, chatMessage{Role: role, Content: msg.Content})
	}

	req := chatRequest{
		Model:       model,
		Messages:    wire,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stop:        params.Stop,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	return req
}

// do posts the request and decodes the response, recording metrics and a span.
func (c *Client) do(ctx context.Context, mode string, req chatRequest) (*chatResponse, error) {
	ctx, span := oracleTracer.Start(ctx, "llm.Client.Chat",
		trace.WithAttributes(
			attribute.String("oracle.mode", mode),
			attribute.String("oracle.model", req.Model),
			attribute.Int("oracle.messages", len(req.Messages)),
		),
	)
	defer span.End()

	// Queue behind the in-flight bound rather than failing immediately.
	if err := c.sem.Acquire(ctx, 1); err != nil {
		span.SetStatus(codes.Error, "queue cancelled")
		oracleRequestsTotal.WithLabelValues(mode, "cancelled").Inc()
		return nil, fmt.Errorf("openrouter: waiting for in-flight slot: %w", err)
	}
	defer c.sem.Release(1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, "rate wait cancelled")
			oracleRequestsTotal.WithLabelValues(mode, "cancelled").Inc()
			return nil, fmt.Errorf("openrouter: waiting for rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	oracleLatency.WithLabelValues(mode).Observe(duration.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		oracleRequestsTotal.WithLabelValues(mode, "transport_error").Inc()
		return nil, fmt.Errorf("openrouter: HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		span.RecordError(err)
		oracleRequestsTotal.WithLabelValues(mode, "read_error").Inc()
		return nil, fmt.Errorf("openrouter: reading response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "upstream error status")
		oracleRequestsTotal.WithLabelValues(mode, "http_error").Inc()
		return nil, fmt.Errorf("openrouter: API returned status %d: %s",
			httpResp.StatusCode, truncateBody(respBody, 200))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response body")
		oracleRequestsTotal.WithLabelValues(mode, "parse_error").Inc()
		return nil, fmt.Errorf("openrouter: parsing response JSON: %w", err)
	}

	if apiResp.Error != nil {
		span.SetStatus(codes.Error, "API error")
		oracleRequestsTotal.WithLabelValues(mode, "api_error").Inc()
		return nil, fmt.Errorf("openrouter: API error %d: %s",
			apiResp.Error.Code, apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		oracleRequestsTotal.WithLabelValues(mode, "empty").Inc()
		return nil, fmt.Errorf("openrouter: returned no choices")
	}

	oracleRequestsTotal.WithLabelValues(mode, "success").Inc()
	span.SetAttributes(
		attribute.String("oracle.finish_reason", apiResp.Choices[0].FinishReason),
		attribute.Int64("oracle.duration_ms", duration.Milliseconds()),
	)

	c.logger.Debug("Received oracle chat response",
		slog.String("mode", mode),
		slog.String("finish_reason", apiResp.Choices[0].FinishReason),
		slog.Duration("duration", duration),
	)

	return &apiResp, nil
}

// truncateBody shortens an upstream body for error messages and logs.
func truncateBody(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
