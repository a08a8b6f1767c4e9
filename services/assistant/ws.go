// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/selene-ai/selene/services/assistant/pipeline"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from app origins; auth happens upstream.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsInbound is one client frame on the chat socket.
type wsInbound struct {
	Message     string `json:"message"`
	EnableTools *bool  `json:"enable_tools"`
}

// wsOutbound is one server frame.
type wsOutbound struct {
	Message   string `json:"message"`
	ToolUsed  string `json:"tool_used,omitempty"`
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// HandleChatWS handles GET /v1/assistant/chat/ws.
//
// Description:
//
//	Upgrades to a WebSocket and runs a read-process-write loop. One
//	connection is one session: every frame shares the session ID issued
//	(or supplied via the session_id query parameter) at upgrade time,
//	so confirmation turns work the same as over HTTP. Frames are
//	processed strictly in order; the client never sees reply N+1 before
//	reply N. Disconnect cancels the in-flight pipeline run.
func (h *Handlers) HandleChatWS(c *gin.Context) {
	logger := h.logger.With("handler", "HandleChatWS")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	userID := c.Query("user_id")
	logger = logger.With("session_id", sessionID)
	logger.Info("websocket session opened")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads run on their own goroutine so a dropped connection is
	// noticed, and the context cancelled, while a frame is still in the
	// pipeline. The deferred conn.Close unblocks the pending ReadJSON
	// when the write side exits first.
	frames := make(chan wsInbound)
	go func() {
		defer cancel()
		for {
			var in wsInbound
			if err := conn.ReadJSON(&in); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn("websocket read failed", "error", err)
				}
				return
			}
			select {
			case frames <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var in wsInbound
		select {
		case in = <-frames:
		case <-ctx.Done():
			return
		}
		if in.Message == "" {
			continue
		}
		enableTools := true
		if in.EnableTools != nil {
			enableTools = *in.EnableTools
		}

		result := h.processor.Process(ctx, pipeline.Request{
			UserID:      userID,
			SessionID:   sessionID,
			Message:     in.Message,
			EnableTools: enableTools,
		})

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(wsOutbound{
			Message:   result.Message,
			ToolUsed:  result.ToolUsed,
			Success:   result.Success,
			SessionID: sessionID,
		}); err != nil {
			logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}
