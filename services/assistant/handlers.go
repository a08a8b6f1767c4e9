// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package assistant exposes the conversation pipeline over HTTP and
// WebSocket. Handlers translate transport concerns (binding, status
// codes, session identity) and delegate every message to the pipeline.
package assistant

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/selene-ai/selene/services/assistant/config"
	"github.com/selene-ai/selene/services/assistant/pipeline"
)

// Processor handles one user message end to end. Implemented by
// *pipeline.Orchestrator.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Handlers carries the HTTP handler dependencies.
type Handlers struct {
	processor Processor
	registry  *config.ToolRegistry
	logger    *slog.Logger
	ready     func() bool
}

// NewHandlers builds the handler set.
//
// Inputs:
//   - processor: The pipeline entry point. Must not be nil.
//   - registry: The tool registry backing /tools. Must not be nil.
//   - ready: Readiness probe; nil means always ready.
//   - logger: May be nil.
func NewHandlers(processor Processor, registry *config.ToolRegistry, ready func() bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Handlers{
		processor: processor,
		registry:  registry,
		logger:    logger,
		ready:     ready,
	}
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ChatRequest is the POST /v1/assistant/chat body.
type ChatRequest struct {
	// UserID identifies the requesting user. Optional.
	UserID string `json:"user_id"`

	// SessionID identifies the conversation. A new one is issued when absent.
	SessionID string `json:"session_id"`

	// Message is the raw user text.
	Message string `json:"message" binding:"required"`

	// EnableTools gates the tool pipeline. Defaults to true.
	EnableTools *bool `json:"enable_tools"`
}

// ChatResponse is the chat reply body.
type ChatResponse struct {
	Message   string `json:"message"`
	ToolUsed  string `json:"tool_used,omitempty"`
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// ToolInfo describes one registered tool for discovery.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	HighRisk    bool            `json:"high_risk"`
	Params      []ToolParamInfo `json:"params,omitempty"`
}

// ToolParamInfo describes one tool parameter for discovery.
type ToolParamInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// HandleChat handles POST /v1/assistant/chat.
//
// Description:
//
//	Binds the chat request, fills in session identity, and runs the
//	pipeline. Pipeline failures are already folded into the Result, so
//	this handler only ever returns 400 (bad body) or 200.
//
// Response:
//
//	200 OK: ChatResponse
//	400 Bad Request: Missing or malformed body
func (h *Handlers) HandleChat(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleChat")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "message is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	enableTools := true
	if req.EnableTools != nil {
		enableTools = *req.EnableTools
	}

	result := h.processor.Process(c.Request.Context(), pipeline.Request{
		UserID:      req.UserID,
		SessionID:   sessionID,
		Message:     req.Message,
		EnableTools: enableTools,
	})

	logger.Info("chat turn completed",
		"session_id", sessionID,
		"tool_used", result.ToolUsed,
		"success", result.Success,
	)
	c.JSON(http.StatusOK, ChatResponse{
		Message:   result.Message,
		ToolUsed:  result.ToolUsed,
		Success:   result.Success,
		SessionID: sessionID,
	})
}

// HandleListTools handles GET /v1/assistant/tools.
//
// Response:
//
//	200 OK: {"tools": [ToolInfo...]} in registry order.
func (h *Handlers) HandleListTools(c *gin.Context) {
	specs := h.registry.Specs()
	infos := make([]ToolInfo, 0, len(specs))
	for _, spec := range specs {
		info := ToolInfo{
			Name:        spec.Name,
			Description: spec.Description,
			HighRisk:    h.registry.IsHighRisk(spec.Name),
		}
		for _, p := range spec.Params {
			info.Params = append(info.Params, ToolParamInfo{
				Name:        p.Name,
				Type:        p.Type,
				Required:    p.Required,
				Description: p.Description,
			})
		}
		infos = append(infos, info)
	}
	c.JSON(http.StatusOK, gin.H{"tools": infos})
}

// HandleHealth handles GET /v1/assistant/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /v1/assistant/ready.
//
// Response:
//
//	200 OK when the pipeline's collaborators are wired.
//	503 Service Unavailable otherwise.
func (h *Handlers) HandleReady(c *gin.Context) {
	if !h.ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
