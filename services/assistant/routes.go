// Copyright (C) 2026 Selene AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assistant

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all assistant routes with the router group.
//
// Description:
//
//	Registers the /v1/assistant/* endpoints. The group should already
//	have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/assistant/chat - One chat turn
//	GET  /v1/assistant/chat/ws - WebSocket chat session
//	GET  /v1/assistant/tools - Tool discovery
//	GET  /v1/assistant/health - Health check
//	GET  /v1/assistant/ready - Readiness check
//
// Example:
//
//	handlers := assistant.NewHandlers(orchestrator, registry, nil, logger)
//
//	v1 := router.Group("/v1")
//	assistant.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	grp := rg.Group("/assistant")
	{
		grp.POST("/chat", handlers.HandleChat)
		grp.GET("/chat/ws", handlers.HandleChatWS)
		grp.GET("/tools", handlers.HandleListTools)
		grp.GET("/health", handlers.HandleHealth)
		grp.GET("/ready", handlers.HandleReady)
	}
}
