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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// defaultHistoryWindow is used when a history request names no window.
const defaultHistoryWindow = 24 * time.Hour

// maxHistoryWindow caps how far back a single history query may reach.
const maxHistoryWindow = 30 * 24 * time.Hour

// Handlers carries the HTTP handlers for the sensor service.
type Handlers struct {
	service *Service
	history Historian
}

// NewHandlers creates the handler set. history may be nil when no
// time-series store is configured.
func NewHandlers(service *Service, history Historian) *Handlers {
	return &Handlers{service: service, history: history}
}

func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleIngest handles POST /v1/sensors/readings.
//
// Description:
//
//	Accepts one controller reading. Missing sensor values may arrive as
//	"NA", "null", an empty string, or JSON null and are stored as absent.
//
// Response:
//
//	201 Created: {"status": "success"}
//	400 Bad Request: Malformed body or failed validation
//
// Thread Safety: Safe for concurrent use.
func (h *Handlers) HandleIngest(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleIngest")

	var req ReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid reading payload",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	reading, err := h.service.Ingest(c.Request.Context(), req)
	if err != nil {
		logger.Warn("reading rejected", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_READING",
		})
		return
	}

	logger.Info("reading accepted",
		slog.String("user_id", reading.UserID),
		slog.Bool("moisture_present", reading.Moisture.Valid),
	)
	c.JSON(http.StatusCreated, IngestResponse{Status: "success"})
}

// HandleLatest handles GET /v1/sensors/readings/:user/latest.
//
// Response:
//
//	200 OK: Reading
//	404 Not Found: No reading received for the user yet
func (h *Handlers) HandleLatest(c *gin.Context) {
	userID := c.Param("user")
	reading, ok := h.service.Latest(userID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no readings received for user",
			Code:  "NO_READINGS",
		})
		return
	}
	c.JSON(http.StatusOK, reading)
}

// HandleHistory handles GET /v1/sensors/readings/:user/history.
//
// Description:
//
//	Serves the trailing window of readings from the time-series store.
//	The window query parameter takes a Go duration (default 24h, max
//	720h).
//
// Response:
//
//	200 OK: []Reading, oldest first
//	400 Bad Request: Unparseable or out-of-range window
//	503 Service Unavailable: No time-series store configured
func (h *Handlers) HandleHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHistory")

	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "reading history is not available without a time-series store",
			Code:  "HISTORY_UNAVAILABLE",
		})
		return
	}

	window := defaultHistoryWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryWindow {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "window must be a positive duration up to 720h",
				Code:  "INVALID_WINDOW",
			})
			return
		}
		window = parsed
	}

	userID := c.Param("user")
	readings, err := h.history.History(c.Request.Context(), userID, window)
	if err != nil {
		logger.Error("history query failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to query reading history",
			Code:  "STORAGE_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, readings)
}

// HandleSubscribe handles GET /v1/sensors/ws/:user.
//
// Description:
//
//	Upgrades to a websocket and streams an Update for every accepted
//	reading of the user until the client disconnects.
func (h *Handlers) HandleSubscribe(c *gin.Context) {
	userID := c.Param("user")
	if err := h.service.Hub().Subscribe(c.Writer, c.Request, userID); err != nil {
		// Upgrade failures have already written the handshake error.
		slog.Warn("websocket upgrade failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}
