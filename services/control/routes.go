// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package control

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all control routes with the router.
//
// Endpoints:
//
//	POST /v1/control/action - Dispatch a control action (toggle_pump,
//	set_threshold, set_mode, emergency_stop, reset_emergency,
//	disconnect, get_state)
//	POST /v1/control/heartbeat - Record a device status update
//	GET  /v1/control/schedules/:user - List irrigation schedules
//	POST /v1/control/schedules/:user - Plan an irrigation run
//	PUT  /v1/control/schedules/:user/:id - Modify a schedule
//	DELETE /v1/control/schedules/:user/:id - Remove a schedule
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/control")
	{
		g.POST("/action", handlers.HandleAction)
		g.POST("/heartbeat", handlers.HandleHeartbeat)

		g.GET("/schedules/:user", handlers.HandleListSchedules)
		g.POST("/schedules/:user", handlers.HandleCreateSchedule)
		g.PUT("/schedules/:user/:id", handlers.HandleUpdateSchedule)
		g.DELETE("/schedules/:user/:id", handlers.HandleDeleteSchedule)
	}
}
