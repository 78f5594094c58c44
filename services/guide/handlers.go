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
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agrivar/irrigation/services/guide/knowledge"
	"github.com/agrivar/irrigation/services/guide/resolver"
)

// Handlers carries the HTTP handlers for the guide service.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set for a service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleAsk handles POST /v1/guide/ask.
//
// Description:
//
//	Resolves a free-text query through the full pipeline and returns the
//	assembled answer. Per-user rate limiting applies; anonymous callers
//	share one bucket.
//
// Response:
//
//	200 OK: resolver.Response
//	400 Bad Request: Missing or oversized query
//	429 Too Many Requests: Rate limit exceeded
//
// Thread Safety: Safe for concurrent use.
func (h *Handlers) HandleAsk(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAsk")

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "query is required and must be at most 1000 characters",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if !h.service.limiter.Allow(req.UserID) {
		logger.Warn("query rate limit exceeded", slog.String("user_id", req.UserID))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "too many queries, slow down",
			Code:  "RATE_LIMITED",
		})
		return
	}

	resp := h.service.resolver.Resolve(c.Request.Context(), req.Query, req.UserID)
	logger.Info("query resolved",
		slog.Bool("matched", resp.Matched),
		slog.String("type", resp.Type),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleCommand handles POST /v1/guide/command.
//
// Description:
//
//	Executes a confirmed UI action (clear chat, save settings). Unknown
//	commands return 400.
//
// Thread Safety: Safe for concurrent use.
func (h *Handlers) HandleCommand(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCommand")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "command is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, ok := h.service.resolver.ExecuteCommand(req.Command, req.UserID)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unknown command: " + req.Command,
			Code:  "UNKNOWN_COMMAND",
		})
		return
	}

	logger.Info("command executed", slog.String("command", req.Command))
	c.JSON(http.StatusOK, resp)
}

// HandleResources handles GET /v1/guide/resources.
//
// Query Parameters:
//
//	category: Filter to one resource category (optional).
//
// Response:
//
//	200 OK: ResourcesResponse
//	400 Bad Request: Unknown category
func (h *Handlers) HandleResources(c *gin.Context) {
	base := h.service.base

	if filter := c.Query("category"); filter != "" {
		cat := knowledge.Category(filter)
		if !cat.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "unknown category: " + filter,
				Code:  "UNKNOWN_CATEGORY",
			})
			return
		}
		resources := base.ByCategory(cat)
		c.JSON(http.StatusOK, ResourcesResponse{Resources: resources, Count: len(resources)})
		return
	}

	c.JSON(http.StatusOK, ResourcesResponse{Resources: base.All(), Count: base.Len()})
}

// HandleSuggestions handles GET /v1/guide/suggestions.
//
// Query Parameters:
//
//	q: The query text to rank against (required).
//	limit: Maximum suggestions, default 5 (optional).
func (h *Handlers) HandleSuggestions(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "q parameter is required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	limit := resolver.DefaultSuggestionLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	c.JSON(http.StatusOK, SuggestionsResponse{
		Query:       q,
		Suggestions: resolver.Suggest(h.service.base, q, limit),
	})
}

// HandleHistory handles GET /v1/guide/history/:user.
func (h *Handlers) HandleHistory(c *gin.Context) {
	userID := c.Param("user")
	entries := h.service.resolver.History().Recent(userID, resolver.HistoryLimit)
	c.JSON(http.StatusOK, HistoryResponse{UserID: userID, Entries: entries})
}

// HandleClearHistory handles DELETE /v1/guide/history/:user.
func (h *Handlers) HandleClearHistory(c *gin.Context) {
	userID := c.Param("user")
	h.service.resolver.History().Clear(userID)
	c.Status(http.StatusNoContent)
}

// HandleReloadIntents handles POST /v1/guide/intents/reload.
//
// Description:
//
//	Replaces the in-memory intent set from disk. In-flight resolutions
//	keep the snapshot they started with.
func (h *Handlers) HandleReloadIntents(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleReloadIntents")

	if err := h.service.intents.Load(c.Request.Context()); err != nil {
		logger.Error("intent reload failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "intent reload failed",
			Code:  "RELOAD_FAILED",
		})
		return
	}

	count := h.service.intents.Snapshot().Len()
	logger.Info("intents reloaded", slog.Int("intents", count))
	c.JSON(http.StatusOK, ReloadResponse{Reloaded: true, Intents: count})
}

// HandleListIntents handles GET /v1/guide/intents.
func (h *Handlers) HandleListIntents(c *gin.Context) {
	snap := h.service.intents.Snapshot()

	resp := IntentListResponse{Intents: make([]IntentSummary, 0, snap.Len())}
	for _, category := range snap.Categories() {
		for _, intent := range snap.Intents(category) {
			resp.Intents = append(resp.Intents, IntentSummary{
				Category: category,
				Tag:      intent.Tag,
				Patterns: len(intent.Patterns),
			})
		}
	}
	resp.Count = len(resp.Intents)
	c.JSON(http.StatusOK, resp)
}

// HandleExportIntents handles GET /v1/guide/intents/export.
//
// Description:
//
//	Streams the full intent set as indented JSON, keyed by category.
func (h *Handlers) HandleExportIntents(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	if err := h.service.intents.Snapshot().Export(c.Writer); err != nil {
		slog.Error("intent export failed", slog.Any("error", err))
		c.Status(http.StatusInternalServerError)
	}
}

// HandleHealth handles GET /v1/guide/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleReady handles GET /v1/guide/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	if h.service.intents.Snapshot() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
