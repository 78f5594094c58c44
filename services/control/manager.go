// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package control manages per-user device state: pump, mode, emergency,
// threshold, connectivity, and irrigation schedules. State is cached in
// memory and persisted to an embedded store so it survives restarts.
package control

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	badgerstore "github.com/agrivar/irrigation/services/storage/badger"
)

var controlTracer = otel.Tracer("agrivar.control")

// Storage layout, versioned to allow future format changes without collision.
const (
	stateKeyPrefix    = "control/state/v1/"
	scheduleKeyPrefix = "control/sched/v1/"
)

// ReadingSource reports when a user's controller last delivered a sensor
// reading. The sensors service implements it; state snapshots fall back to
// the current time when no reading exists.
type ReadingSource interface {
	LatestReadingTime(userID string) (time.Time, bool)
}

// Manager owns all per-user control state.
//
// Description:
//
//	The in-memory map is the source of truth while the process runs; every
//	mutation is written through to the embedded store when one is
//	configured. A nil store degrades to memory-only operation, which is
//	what tests use.
//
// Thread Safety: Safe for concurrent use; one mutex guards the state map.
type Manager struct {
	mu     sync.Mutex
	states map[string]*DeviceState

	// schedules caches schedule sets by user, then schedule ID.
	schedules map[string]map[string]Schedule

	db       *badgerstore.DB
	readings ReadingSource
	now      func() time.Time
	newID    func() string
}

// NewManager creates a manager persisting through db. Both db and readings
// may be nil.
func NewManager(db *badgerstore.DB, readings ReadingSource) *Manager {
	return &Manager{
		states:    make(map[string]*DeviceState),
		schedules: make(map[string]map[string]Schedule),
		db:        db,
		readings:  readings,
		now:       time.Now,
		newID:     newScheduleID,
	}
}

// stateLocked returns the cached state for a user, loading it from the
// store on first access. Caller holds the mutex.
func (m *Manager) stateLocked(ctx context.Context, userID string) *DeviceState {
	if st, ok := m.states[userID]; ok {
		return st
	}

	st := &DeviceState{Threshold: DefaultThreshold}
	if m.db != nil {
		err := m.db.GetJSON(ctx, stateKeyPrefix+userID, st)
		if err != nil && !errors.Is(err, badgerstore.ErrNotFound) {
			slog.Warn("loading control state failed, starting fresh",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			st = &DeviceState{Threshold: DefaultThreshold}
		}
	}
	m.states[userID] = st
	return st
}

// persistLocked writes the state through to the store. Persistence failure
// is non-fatal; the in-memory state stays authoritative and the next
// mutation retries. Caller holds the mutex.
func (m *Manager) persistLocked(ctx context.Context, userID string, st *DeviceState) {
	st.UpdatedAt = m.now()
	if m.db == nil {
		return
	}
	if err := m.db.SetJSON(ctx, stateKeyPrefix+userID, st, 0); err != nil {
		slog.Warn("persisting control state failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// TogglePump sets the pump for a user.
//
// Description:
//
//	Rejected outside manual mode. Requesting the current state is a no-op
//	that still reports success, so devices can retransmit safely.
//
// Outputs:
//
//	string - The pump state after the call, "on" or "off".
//	bool - Whether the state actually changed.
//	error - ErrNotManualMode when the system is in automatic mode.
func (m *Manager) TogglePump(ctx context.Context, userID string, on bool) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	if !st.ManualMode {
		recordAction("toggle_pump", "rejected")
		return pumpString(st.Pump), false, ErrNotManualMode
	}
	if st.Pump == on {
		recordAction("toggle_pump", "noop")
		return pumpString(st.Pump), false, nil
	}

	st.Pump = on
	m.persistLocked(ctx, userID, st)
	recordAction("toggle_pump", "ok")
	slog.Info("pump state changed",
		slog.String("user_id", userID),
		slog.String("pump", pumpString(on)),
	)
	return pumpString(on), true, nil
}

// SetThreshold records a new soil-moisture threshold, 0 to 100 inclusive.
func (m *Manager) SetThreshold(ctx context.Context, userID string, threshold int) error {
	if threshold < 0 || threshold > 100 {
		recordAction("set_threshold", "rejected")
		return ErrInvalidThreshold
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	st.Threshold = threshold
	m.persistLocked(ctx, userID, st)
	recordAction("set_threshold", "ok")
	slog.Info("threshold set",
		slog.String("user_id", userID),
		slog.Int("threshold", threshold),
	)
	return nil
}

// SetMode switches between manual and automatic mode. Switching to
// automatic forces the pump off; the controller decides on its own there.
func (m *Manager) SetMode(ctx context.Context, userID string, manual bool) ModeResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	st.ManualMode = manual
	if !manual {
		st.Pump = false
	}
	m.persistLocked(ctx, userID, st)
	recordAction("set_mode", "ok")
	slog.Info("mode changed",
		slog.String("user_id", userID),
		slog.Bool("manual_mode", manual),
	)
	return ModeResponse{ManualMode: manual, Pump: pumpString(st.Pump)}
}

// EmergencyStop activates the emergency flag and forces the pump off.
func (m *Manager) EmergencyStop(ctx context.Context, userID string) EmergencyResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	st.Emergency = true
	st.Pump = false
	m.persistLocked(ctx, userID, st)
	recordAction("emergency_stop", "ok")
	slog.Warn("emergency stop activated", slog.String("user_id", userID))
	return EmergencyResponse{Emergency: true, Pump: "off"}
}

// ResetEmergency clears the emergency flag. Resetting when no emergency is
// active is reported, not failed; devices retransmit resets.
func (m *Manager) ResetEmergency(ctx context.Context, userID string) ResetResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	if !st.Emergency {
		recordAction("reset_emergency", "noop")
		return ResetResponse{
			Status:    "no_active_emergency",
			Emergency: false,
			Pump:      pumpString(st.Pump),
		}
	}

	st.Emergency = false
	m.persistLocked(ctx, userID, st)
	recordAction("reset_emergency", "ok")
	slog.Info("emergency reset", slog.String("user_id", userID))
	return ResetResponse{
		Status:    "emergency_reset",
		Emergency: false,
		Pump:      pumpString(st.Pump),
	}
}

// Disconnect clears the device connection flag.
func (m *Manager) Disconnect(ctx context.Context, userID string) DisconnectResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	st.Connected = false
	m.persistLocked(ctx, userID, st)
	recordAction("disconnect", "ok")
	slog.Info("device disconnected", slog.String("user_id", userID))
	return DisconnectResponse{Status: "disconnected", Connected: false}
}

// Heartbeat records a periodic device status update.
func (m *Manager) Heartbeat(ctx context.Context, req HeartbeatRequest) HeartbeatResponse {
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = "default_device"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, req.UserID)
	st.Connected = true
	st.DeviceID = deviceID
	st.LastSeen = m.now()
	if req.Firmware != "" {
		st.Firmware = req.Firmware
	}
	m.persistLocked(ctx, req.UserID, st)
	recordAction("heartbeat", "ok")
	return HeartbeatResponse{Status: "success", DeviceID: deviceID}
}

// GetState assembles the full state snapshot for a user.
//
// Description:
//
//	Irrigation counts as active only in manual mode with no emergency and
//	the pump on. The snapshot carries the next active future schedule if
//	one exists and the timestamp of the latest sensor reading, falling
//	back to the current time when the user has no readings yet.
func (m *Manager) GetState(ctx context.Context, userID string) (StateResponse, error) {
	_, span := controlTracer.Start(ctx, "control.GetState")
	defer span.End()

	m.mu.Lock()
	st := m.stateLocked(ctx, userID)
	resp := StateResponse{
		Pump:       pumpString(st.Pump),
		ManualMode: st.ManualMode,
		Emergency:  st.Emergency,
		Threshold:  st.Threshold,
		Connected:  st.Connected,
	}
	if st.ManualMode && !st.Emergency {
		resp.IrrigationActive = st.Pump
	}
	if !st.LastSeen.IsZero() {
		seen := st.LastSeen
		resp.LastSeen = &seen
	}
	m.mu.Unlock()

	next, ok, err := m.NextSchedule(ctx, userID)
	if err != nil {
		return StateResponse{}, err
	}
	if ok {
		resp.Schedule = &ScheduleView{
			Year:     next.ScheduledTime.Year(),
			Date:     next.ScheduledTime.Format("2006-01-02"),
			Time:     next.ScheduledTime.Format("15:04:05"),
			Duration: next.Duration,
		}
	}

	resp.Timestamp = m.now()
	if m.readings != nil {
		if ts, ok := m.readings.LatestReadingTime(userID); ok {
			resp.Timestamp = ts
		}
	}
	return resp, nil
}
