// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sensors

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all sensor routes with the router.
//
// Endpoints:
//
//	POST /v1/sensors/readings - Ingest one controller reading
//	GET  /v1/sensors/readings/:user/latest - Newest reading for a user
//	GET  /v1/sensors/readings/:user/history - Trailing window of readings
//	GET  /v1/sensors/ws/:user - Live reading stream over websocket
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/sensors")
	{
		g.POST("/readings", handlers.HandleIngest)
		g.GET("/readings/:user/latest", handlers.HandleLatest)
		g.GET("/readings/:user/history", handlers.HandleHistory)
		g.GET("/ws/:user", handlers.HandleSubscribe)
	}
}
