// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guide

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all guide routes with the router.
//
// Description:
//
//	Registers all /v1/guide/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/guide/ask - Resolve a free-text query
//	POST /v1/guide/command - Execute a confirmed UI action
//	GET  /v1/guide/resources - List knowledge-base resources
//	GET  /v1/guide/suggestions - Rank related resources for a query
//	GET  /v1/guide/history/:user - Read a user's conversation history
//	DELETE /v1/guide/history/:user - Clear a user's conversation history
//
// Administrative Endpoints:
//
//	POST /v1/guide/intents/reload - Reload intents from disk
//	GET  /v1/guide/intents - List loaded intents
//	GET  /v1/guide/intents/export - Export the full intent set
//
// Health Endpoints:
//
//	GET  /v1/guide/health - Health check
//	GET  /v1/guide/ready - Readiness check
//
// Example:
//
//	service, _ := guide.NewService(ctx, guide.DefaultServiceConfig())
//	handlers := guide.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	guide.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/guide")
	{
		// Query resolution
		g.POST("/ask", handlers.HandleAsk)
		g.POST("/command", handlers.HandleCommand)

		// Knowledge browsing
		g.GET("/resources", handlers.HandleResources)
		g.GET("/suggestions", handlers.HandleSuggestions)

		// Conversation history
		g.GET("/history/:user", handlers.HandleHistory)
		g.DELETE("/history/:user", handlers.HandleClearHistory)

		// Intent administration
		g.POST("/intents/reload", handlers.HandleReloadIntents)
		g.GET("/intents", handlers.HandleListIntents)
		g.GET("/intents/export", handlers.HandleExportIntents)

		// Health checks
		g.GET("/health", handlers.HandleHealth)
		g.GET("/ready", handlers.HandleReady)
	}
}
