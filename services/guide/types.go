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
	"github.com/agrivar/irrigation/services/guide/knowledge"
	"github.com/agrivar/irrigation/services/guide/resolver"
)

// ErrorResponse is the uniform error payload for all guide endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AskRequest is the body of POST /v1/guide/ask.
type AskRequest struct {
	// Query is the free-text user question.
	Query string `json:"query" binding:"required,max=1000"`

	// UserID optionally ties the call to a conversation history.
	UserID string `json:"user_id" binding:"omitempty,max=128"`
}

// CommandRequest is the body of POST /v1/guide/command.
type CommandRequest struct {
	// Command is a confirmed UI action such as "confirm_clear_chat".
	Command string `json:"command" binding:"required,max=64"`

	UserID string `json:"user_id" binding:"omitempty,max=128"`
}

// ResourcesResponse lists knowledge-base resources.
type ResourcesResponse struct {
	Resources []*knowledge.Resource `json:"resources"`
	Count     int                   `json:"count"`
}

// SuggestionsResponse is the payload of GET /v1/guide/suggestions.
type SuggestionsResponse struct {
	Query       string                `json:"query"`
	Suggestions []resolver.Suggestion `json:"suggestions"`
}

// HistoryResponse is the payload of GET /v1/guide/history/:user.
type HistoryResponse struct {
	UserID  string                  `json:"user_id"`
	Entries []resolver.HistoryEntry `json:"entries"`
}

// IntentSummary describes one loaded intent for listing.
type IntentSummary struct {
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Patterns int    `json:"patterns"`
}

// IntentListResponse is the payload of GET /v1/guide/intents.
type IntentListResponse struct {
	Intents []IntentSummary `json:"intents"`
	Count   int             `json:"count"`
}

// ReloadResponse reports the result of an intent reload.
type ReloadResponse struct {
	Reloaded bool `json:"reloaded"`
	Intents  int  `json:"intents"`
}
