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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*gin.Engine, *Manager) {
	t.Helper()
	manager := NewManager(nil, nil)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandlers(manager))
	return router, manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func TestHandleAction_TogglePump(t *testing.T) {
	router, manager := newTestRouter(t)
	manager.SetMode(context.Background(), "alice", true)

	w := doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action: "toggle_pump",
		UserID: "alice",
		State:  boolPtr(true),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp PumpResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Pump != "on" {
		t.Errorf("expected pump on, got %q", resp.Pump)
	}
}

func TestHandleAction_TogglePumpForbiddenInAuto(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action: "toggle_pump",
		UserID: "alice",
		State:  boolPtr(true),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp.Code != "NOT_MANUAL_MODE" {
		t.Errorf("expected NOT_MANUAL_MODE, got %q", errResp.Code)
	}
}

func TestHandleAction_SetThreshold(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action:    "set_threshold",
		UserID:    "alice",
		Threshold: intPtr(60),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action:    "set_threshold",
		UserID:    "alice",
		Threshold: intPtr(150),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range threshold, got %d", w.Code)
	}
}

func TestHandleAction_GetState(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action: "get_state",
		UserID: "alice",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var state StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if state.Pump != "off" || state.Threshold != DefaultThreshold {
		t.Errorf("unexpected default state: %+v", state)
	}
}

func TestHandleAction_Invalid(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action: "explode",
		UserID: "alice",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp.Code != "INVALID_ACTION" {
		t.Errorf("expected INVALID_ACTION, got %q", errResp.Code)
	}
}

func TestHandleAction_MissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	// No user_id.
	w := doJSON(t, router, http.MethodPost, "/v1/control/action", map[string]string{
		"action": "get_state",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_id, got %d", w.Code)
	}

	// toggle_pump without state.
	w = doJSON(t, router, http.MethodPost, "/v1/control/action", ActionRequest{
		Action: "toggle_pump",
		UserID: "alice",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without state, got %d", w.Code)
	}
}

func TestHandleHeartbeat(t *testing.T) {
	router, manager := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/control/heartbeat", HeartbeatRequest{
		UserID:   "alice",
		DeviceID: "esp32-7",
		Firmware: "v1.4.2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp HeartbeatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.DeviceID != "esp32-7" {
		t.Errorf("expected device ID echoed, got %q", resp.DeviceID)
	}

	state, err := manager.GetState(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if !state.Connected {
		t.Error("expected connected after heartbeat")
	}
}

func TestScheduleEndpoints(t *testing.T) {
	router, manager := newTestRouter(t)
	manager.SetMode(context.Background(), "alice", true)

	// Create.
	w := doJSON(t, router, http.MethodPost, "/v1/control/schedules/alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
		Duration:      25,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created schedule: %v", err)
	}

	// List.
	w = doJSON(t, router, http.MethodGet, "/v1/control/schedules/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var schedules []Schedule
	if err := json.Unmarshal(w.Body.Bytes(), &schedules); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", schedules)
	}

	// Update.
	w = doJSON(t, router, http.MethodPut, "/v1/control/schedules/alice/"+created.ID, UpdateScheduleRequest{
		Duration: intPtr(50),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Delete.
	w = doJSON(t, router, http.MethodDelete, "/v1/control/schedules/alice/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}

	// Delete again: gone.
	w = doJSON(t, router, http.MethodDelete, "/v1/control/schedules/alice/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestScheduleEndpoints_LockedInAutoMode(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/control/schedules/alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 outside manual mode, got %d", w.Code)
	}

	// Reading stays allowed.
	w = doJSON(t, router, http.MethodGet, "/v1/control/schedules/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
}

func TestScheduleEndpoints_PastTime(t *testing.T) {
	router, manager := newTestRouter(t)
	manager.SetMode(context.Background(), "alice", true)

	w := doJSON(t, router, http.MethodPost, "/v1/control/schedules/alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(-time.Hour),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for past time, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp.Code != "PAST_SCHEDULE" {
		t.Errorf("expected PAST_SCHEDULE, got %q", errResp.Code)
	}
}
