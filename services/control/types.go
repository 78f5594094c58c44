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
	"time"
)

// DefaultThreshold is the soil-moisture threshold assumed until the user
// sets one.
const DefaultThreshold = 30

// Duration bounds for irrigation schedules, in minutes.
const (
	MinScheduleDuration     = 1
	MaxScheduleDuration     = 120
	DefaultScheduleDuration = 15
)

// Operation errors surfaced to the HTTP layer.
var (
	ErrNotManualMode    = errors.New("control: system must be in manual mode to control pump")
	ErrInvalidThreshold = errors.New("control: threshold must be between 0 and 100")
	ErrSchedulingLocked = errors.New("control: scheduling is only available in manual mode when no emergency is active")
	ErrPastSchedule     = errors.New("control: scheduled time must be in the future")
	ErrInvalidDuration  = errors.New("control: duration must be between 1 and 120 minutes")
	ErrScheduleNotFound = errors.New("control: schedule not found")
)

// DeviceState is the per-user controller state.
//
// Description:
//
//	One record per user, cached in memory and persisted to the embedded
//	store so the state survives restarts. Pump and mode flags mirror what
//	the field controller last confirmed.
type DeviceState struct {
	Pump       bool      `json:"pump"`
	ManualMode bool      `json:"manual_mode"`
	Emergency  bool      `json:"emergency"`
	Threshold  int       `json:"threshold"`
	Connected  bool      `json:"connected"`
	DeviceID   string    `json:"device_id,omitempty"`
	Firmware   string    `json:"firmware,omitempty"`
	LastSeen   time.Time `json:"last_seen,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Schedule is one planned irrigation run.
type Schedule struct {
	ID            string    `json:"id"`
	ScheduledTime time.Time `json:"scheduled_time"`

	// Duration is the run length in minutes.
	Duration int `json:"duration"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// pumpString renders the pump flag the way devices and the dashboard
// exchange it.
func pumpString(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// =============================================================================
// HTTP DTOs
// =============================================================================

// ErrorResponse is the uniform error payload for all control endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ActionRequest is the body of POST /v1/control/action.
type ActionRequest struct {
	Action string `json:"action" binding:"required"`
	UserID string `json:"user_id" binding:"required,max=128"`

	// State is the requested pump state for toggle_pump.
	State *bool `json:"state,omitempty"`

	// Threshold is the new value for set_threshold.
	Threshold *int `json:"threshold,omitempty"`

	// ManualMode is the requested mode for set_mode.
	ManualMode *bool `json:"manual_mode,omitempty"`
}

// PumpResponse reports the pump state after toggle_pump.
type PumpResponse struct {
	Pump string `json:"pump"`
}

// ThresholdResponse reports the stored threshold after set_threshold.
type ThresholdResponse struct {
	Threshold int `json:"threshold"`
}

// ModeResponse reports the state after set_mode.
type ModeResponse struct {
	ManualMode bool   `json:"manual_mode"`
	Pump       string `json:"pump"`
}

// EmergencyResponse reports the state after emergency_stop.
type EmergencyResponse struct {
	Emergency bool   `json:"emergency"`
	Pump      string `json:"pump"`
}

// ResetResponse reports the result of reset_emergency. Status is
// "emergency_reset" or "no_active_emergency".
type ResetResponse struct {
	Status    string `json:"status"`
	Emergency bool   `json:"emergency"`
	Pump      string `json:"pump"`
}

// DisconnectResponse reports the result of disconnect.
type DisconnectResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

// ScheduleView summarizes the next planned run inside a state snapshot.
type ScheduleView struct {
	Year     int    `json:"year"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int    `json:"duration"`
}

// StateResponse is the assembled snapshot returned by get_state.
type StateResponse struct {
	Pump             string        `json:"pump"`
	ManualMode       bool          `json:"manual_mode"`
	Emergency        bool          `json:"emergency"`
	Threshold        int           `json:"threshold"`
	IrrigationActive bool          `json:"irrigation_active"`
	Connected        bool          `json:"connected"`
	LastSeen         *time.Time    `json:"last_seen,omitempty"`
	Schedule         *ScheduleView `json:"schedule,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}

// HeartbeatRequest is the body of POST /v1/control/heartbeat.
type HeartbeatRequest struct {
	UserID     string `json:"user_id" binding:"required,max=128"`
	DeviceID   string `json:"device_id" binding:"omitempty,max=64"`
	SystemMode string `json:"system_mode" binding:"omitempty,oneof=auto manual"`
	Firmware   string `json:"firmware" binding:"omitempty,max=64"`
}

// HeartbeatResponse acknowledges a device heartbeat.
type HeartbeatResponse struct {
	Status   string `json:"status"`
	DeviceID string `json:"device_id"`
}

// CreateScheduleRequest is the body of POST /v1/control/schedules/:user.
type CreateScheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time" binding:"required"`
	Duration      int       `json:"duration" binding:"omitempty,min=1,max=120"`
}

// UpdateScheduleRequest is the body of PUT /v1/control/schedules/:user/:id.
// Nil fields are left unchanged.
type UpdateScheduleRequest struct {
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
	Duration      *int       `json:"duration,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
}
