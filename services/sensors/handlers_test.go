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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubHistorian struct {
	readings []Reading
	err      error
	window   time.Duration
}

func (s *stubHistorian) History(_ context.Context, _ string, window time.Duration) ([]Reading, error) {
	s.window = window
	return s.readings, s.err
}

func newTestRouter(svc *Service, history Historian) *gin.Engine {
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc, history))
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleIngest(t *testing.T) {
	svc := NewService(nil, nil, nil)
	router := newTestRouter(svc, nil)

	rec := doRequest(t, router, http.MethodPost, "/v1/sensors/readings",
		`{"user_id": "alice", "moisture": 45, "temperature": "NA", "pump_status": true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}

	latest, ok := svc.Latest("alice")
	if !ok {
		t.Fatal("reading should be cached after ingest")
	}
	if latest.Temperature.Valid {
		t.Error("NA temperature should be stored as absent")
	}
}

func TestHandleIngestRejectsBadRequests(t *testing.T) {
	router := newTestRouter(NewService(nil, nil, nil), nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `pump=on`},
		{"missing user", `{"moisture": 10}`},
		{"threshold out of range", `{"user_id": "alice", "threshold": 150}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/sensors/readings", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleLatest(t *testing.T) {
	svc := NewService(nil, nil, nil)
	router := newTestRouter(svc, nil)

	rec := doRequest(t, router, http.MethodGet, "/v1/sensors/readings/alice/latest", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any reading", rec.Code)
	}

	if _, err := svc.Ingest(context.Background(), ReadingRequest{
		UserID:   "alice",
		Moisture: NewNullableInt(52),
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/sensors/readings/alice/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var reading Reading
	if err := json.Unmarshal(rec.Body.Bytes(), &reading); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reading.Moisture.Valid || reading.Moisture.Int != 52 {
		t.Errorf("moisture = %+v, want 52", reading.Moisture)
	}
}

func TestHandleHistory(t *testing.T) {
	historian := &stubHistorian{readings: []Reading{
		{UserID: "alice", Moisture: NewNullableInt(30)},
		{UserID: "alice", Moisture: NewNullableInt(35)},
	}}
	router := newTestRouter(NewService(nil, nil, nil), historian)

	rec := doRequest(t, router, http.MethodGet, "/v1/sensors/readings/alice/history?window=6h", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if historian.window != 6*time.Hour {
		t.Errorf("window = %v, want 6h", historian.window)
	}

	var readings []Reading
	if err := json.Unmarshal(rec.Body.Bytes(), &readings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(readings) != 2 {
		t.Errorf("got %d readings, want 2", len(readings))
	}
}

func TestHandleHistoryDefaultsWindow(t *testing.T) {
	historian := &stubHistorian{}
	router := newTestRouter(NewService(nil, nil, nil), historian)

	rec := doRequest(t, router, http.MethodGet, "/v1/sensors/readings/alice/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if historian.window != defaultHistoryWindow {
		t.Errorf("window = %v, want %v", historian.window, defaultHistoryWindow)
	}
}

func TestHandleHistoryRejectsBadWindows(t *testing.T) {
	router := newTestRouter(NewService(nil, nil, nil), &stubHistorian{})

	for _, window := range []string{"soon", "-1h", "0s", "2000h"} {
		rec := doRequest(t, router, http.MethodGet,
			"/v1/sensors/readings/alice/history?window="+window, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("window %q: status = %d, want 400", window, rec.Code)
		}
	}
}

func TestHandleHistoryWithoutStore(t *testing.T) {
	router := newTestRouter(NewService(nil, nil, nil), nil)

	rec := doRequest(t, router, http.MethodGet, "/v1/sensors/readings/alice/history", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "HISTORY_UNAVAILABLE" {
		t.Errorf("code = %q, want HISTORY_UNAVAILABLE", resp.Code)
	}
}

func TestWebsocketReceivesBroadcast(t *testing.T) {
	svc := NewService(nil, nil, nil)
	router := newTestRouter(svc, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/sensors/ws/alice"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The server registers the subscriber just after the handshake.
	deadline := time.Now().Add(2 * time.Second)
	for svc.Hub().Subscribers("alice") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := svc.Ingest(context.Background(), ReadingRequest{
		UserID:     "alice",
		Moisture:   NewNullableInt(47),
		PumpStatus: true,
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var update Update
	if err := json.Unmarshal(payload, &update); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !update.Moisture.Valid || update.Moisture.Int != 47 {
		t.Errorf("moisture = %+v, want 47", update.Moisture)
	}
	if !update.PumpStatus {
		t.Error("pump_status should be true")
	}
}

func TestWebsocketDisconnectDeregisters(t *testing.T) {
	svc := NewService(nil, nil, nil)
	router := newTestRouter(svc, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/sensors/ws/alice"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for svc.Hub().Subscribers("alice") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for svc.Hub().Subscribers("alice") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never deregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Broadcast to a user with no subscribers is a no-op.
	svc.Hub().Broadcast("alice", Update{Timestamp: time.Now()})
}
