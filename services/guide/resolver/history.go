// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"sync"
	"time"
)

const (
	// HistoryLimit bounds the retained entries per user; the oldest entry
	// is evicted when a new one would exceed it.
	HistoryLimit = 20

	// historyResponseLimit truncates stored response text.
	historyResponseLimit = 500
)

// HistoryEntry is one recorded query/response interaction.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
}

// History is an in-memory, per-user bounded conversation log.
//
// Description:
//
//	State is process-local only; a restart drops all history. Each user
//	keeps at most HistoryLimit entries and stored responses are truncated
//	to 500 bytes.
//
// Thread Safety: Safe for concurrent use; a single mutex guards the map.
type History struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
	now     func() time.Time
}

// NewHistory creates an empty history store.
func NewHistory() *History {
	return &History{
		entries: make(map[string][]HistoryEntry),
		now:     time.Now,
	}
}

// Append records one interaction for a user, evicting the oldest entry once
// the per-user limit is exceeded. An empty userID is ignored.
func (h *History) Append(userID, query, response string) {
	if userID == "" {
		return
	}
	if len(response) > historyResponseLimit {
		response = response[:historyResponseLimit]
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries := append(h.entries[userID], HistoryEntry{
		Timestamp: h.now(),
		Query:     query,
		Response:  response,
	})
	if len(entries) > HistoryLimit {
		entries = entries[len(entries)-HistoryLimit:]
	}
	h.entries[userID] = entries
}

// Recent returns up to max of the user's newest entries, oldest first.
func (h *History) Recent(userID string, max int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.entries[userID]
	if max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

// Clear removes all history for one user.
func (h *History) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, userID)
}

// Len returns the number of entries stored for one user.
func (h *History) Len(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries[userID])
}
