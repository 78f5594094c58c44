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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers carries the HTTP handlers for the control service.
type Handlers struct {
	manager *Manager
}

// NewHandlers creates the handler set for a manager.
func NewHandlers(manager *Manager) *Handlers {
	return &Handlers{manager: manager}
}

func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleAction handles POST /v1/control/action.
//
// Description:
//
//	Dispatches on the action field: toggle_pump, set_threshold, set_mode,
//	emergency_stop, reset_emergency, disconnect, get_state. Mirrors the
//	field controller's single-endpoint protocol.
//
// Response:
//
//	200 OK: Action-specific payload
//	400 Bad Request: Missing fields or invalid action
//	403 Forbidden: Pump control outside manual mode
//
// Thread Safety: Safe for concurrent use.
func (h *Handlers) HandleAction(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAction")

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "action and user_id are required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	logger = logger.With(slog.String("action", req.Action), slog.String("user_id", req.UserID))
	ctx := c.Request.Context()

	switch req.Action {
	case "toggle_pump":
		if req.State == nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "state is required for toggle_pump",
				Code:  "INVALID_REQUEST",
			})
			return
		}
		pump, changed, err := h.manager.TogglePump(ctx, req.UserID, *req.State)
		if errors.Is(err, ErrNotManualMode) {
			logger.Warn("pump toggle rejected outside manual mode")
			c.JSON(http.StatusForbidden, ErrorResponse{
				Error: "System must be in manual mode to control pump",
				Code:  "NOT_MANUAL_MODE",
			})
			return
		}
		logger.Info("pump toggle handled", slog.Bool("changed", changed))
		c.JSON(http.StatusOK, PumpResponse{Pump: pump})

	case "set_threshold":
		if req.Threshold == nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Threshold value required",
				Code:  "INVALID_REQUEST",
			})
			return
		}
		if err := h.manager.SetThreshold(ctx, req.UserID, *req.Threshold); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "Threshold must be between 0 and 100",
				Code:  "INVALID_THRESHOLD",
			})
			return
		}
		c.JSON(http.StatusOK, ThresholdResponse{Threshold: *req.Threshold})

	case "set_mode":
		manual := false
		if req.ManualMode != nil {
			manual = *req.ManualMode
		}
		c.JSON(http.StatusOK, h.manager.SetMode(ctx, req.UserID, manual))

	case "emergency_stop":
		c.JSON(http.StatusOK, h.manager.EmergencyStop(ctx, req.UserID))

	case "reset_emergency":
		c.JSON(http.StatusOK, h.manager.ResetEmergency(ctx, req.UserID))

	case "disconnect":
		c.JSON(http.StatusOK, h.manager.Disconnect(ctx, req.UserID))

	case "get_state":
		state, err := h.manager.GetState(ctx, req.UserID)
		if err != nil {
			logger.Error("assembling state failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "failed to assemble state",
				Code:  "STATE_UNAVAILABLE",
			})
			return
		}
		c.JSON(http.StatusOK, state)

	default:
		logger.Warn("invalid control action")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid action",
			Code:  "INVALID_ACTION",
		})
	}
}

// HandleHeartbeat handles POST /v1/control/heartbeat.
func (h *Handlers) HandleHeartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "user_id is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	c.JSON(http.StatusOK, h.manager.Heartbeat(c.Request.Context(), req))
}

// HandleListSchedules handles GET /v1/control/schedules/:user.
func (h *Handlers) HandleListSchedules(c *gin.Context) {
	schedules, err := h.manager.ListSchedules(c.Request.Context(), c.Param("user"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to load schedules",
			Code:  "STORAGE_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// HandleCreateSchedule handles POST /v1/control/schedules/:user.
func (h *Handlers) HandleCreateSchedule(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateSchedule")

	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Scheduled time is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sched, err := h.manager.CreateSchedule(c.Request.Context(), c.Param("user"), req)
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	logger.Info("schedule created",
		slog.String("user_id", c.Param("user")),
		slog.String("schedule_id", sched.ID),
	)
	c.JSON(http.StatusCreated, sched)
}

// HandleUpdateSchedule handles PUT /v1/control/schedules/:user/:id.
func (h *Handlers) HandleUpdateSchedule(c *gin.Context) {
	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid schedule update",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sched, err := h.manager.UpdateSchedule(c.Request.Context(), c.Param("user"), c.Param("id"), req)
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sched)
}

// HandleDeleteSchedule handles DELETE /v1/control/schedules/:user/:id.
func (h *Handlers) HandleDeleteSchedule(c *gin.Context) {
	err := h.manager.DeleteSchedule(c.Request.Context(), c.Param("user"), c.Param("id"))
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// scheduleError maps schedule operation errors to HTTP responses.
func (h *Handlers) scheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSchedulingLocked):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "Scheduling is only available in manual mode when no emergency is active",
			Code:  "SCHEDULING_LOCKED",
		})
	case errors.Is(err, ErrPastSchedule):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Scheduled time must be in the future",
			Code:  "PAST_SCHEDULE",
		})
	case errors.Is(err, ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Duration must be between 1-120 minutes",
			Code:  "INVALID_DURATION",
		})
	case errors.Is(err, ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Schedule not found",
			Code:  "SCHEDULE_NOT_FOUND",
		})
	default:
		slog.Error("schedule operation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "schedule operation failed",
			Code:  "STORAGE_ERROR",
		})
	}
}
