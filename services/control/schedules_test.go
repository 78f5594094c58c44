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
	"context"
	"errors"
	"testing"
	"time"
)

// manualManager returns a manager with alice already in manual mode.
func manualManager(t *testing.T) *Manager {
	t.Helper()
	m := newTestManager(t)
	m.SetMode(context.Background(), "alice", true)
	return m
}

func TestCreateSchedule(t *testing.T) {
	m := manualManager(t)
	ctx := context.Background()
	future := time.Now().Add(2 * time.Hour)

	sched, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
		ScheduledTime: future,
		Duration:      30,
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if sched.ID == "" {
		t.Error("expected minted schedule ID")
	}
	if !sched.IsActive {
		t.Error("new schedules start active")
	}
	if sched.Duration != 30 {
		t.Errorf("expected duration 30, got %d", sched.Duration)
	}
}

func TestCreateSchedule_DefaultDuration(t *testing.T) {
	m := manualManager(t)

	sched, err := m.CreateSchedule(context.Background(), "alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if sched.Duration != DefaultScheduleDuration {
		t.Errorf("expected default duration %d, got %d", DefaultScheduleDuration, sched.Duration)
	}
}

func TestCreateSchedule_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("locked outside manual mode", func(t *testing.T) {
		m := newTestManager(t)
		_, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
			ScheduledTime: time.Now().Add(time.Hour),
		})
		if !errors.Is(err, ErrSchedulingLocked) {
			t.Fatalf("expected ErrSchedulingLocked, got %v", err)
		}
	})

	t.Run("locked during emergency", func(t *testing.T) {
		m := manualManager(t)
		m.EmergencyStop(ctx, "alice")
		_, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
			ScheduledTime: time.Now().Add(time.Hour),
		})
		if !errors.Is(err, ErrSchedulingLocked) {
			t.Fatalf("expected ErrSchedulingLocked, got %v", err)
		}
	})

	t.Run("past time", func(t *testing.T) {
		m := manualManager(t)
		_, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
			ScheduledTime: time.Now().Add(-time.Hour),
		})
		if !errors.Is(err, ErrPastSchedule) {
			t.Fatalf("expected ErrPastSchedule, got %v", err)
		}
	})

	t.Run("duration out of range", func(t *testing.T) {
		m := manualManager(t)
		_, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
			ScheduledTime: time.Now().Add(time.Hour),
			Duration:      121,
		})
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
	})
}

func TestListSchedules_OrderedByTime(t *testing.T) {
	m := manualManager(t)
	ctx := context.Background()
	base := time.Now()

	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		if _, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
			ScheduledTime: base.Add(offset),
		}); err != nil {
			t.Fatalf("CreateSchedule: %v", err)
		}
	}

	schedules, err := m.ListSchedules(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(schedules) != 3 {
		t.Fatalf("expected 3 schedules, got %d", len(schedules))
	}
	for i := 1; i < len(schedules); i++ {
		if schedules[i].ScheduledTime.Before(schedules[i-1].ScheduledTime) {
			t.Error("schedules not ordered by time")
		}
	}
}

func TestUpdateSchedule(t *testing.T) {
	m := manualManager(t)
	ctx := context.Background()

	sched, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	newTime := time.Now().Add(4 * time.Hour)
	newDuration := 45
	inactive := false
	updated, err := m.UpdateSchedule(ctx, "alice", sched.ID, UpdateScheduleRequest{
		ScheduledTime: &newTime,
		Duration:      &newDuration,
		IsActive:      &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if !updated.ScheduledTime.Equal(newTime) || updated.Duration != 45 || updated.IsActive {
		t.Errorf("unexpected updated schedule: %+v", updated)
	}
}

func TestUpdateSchedule_NotFound(t *testing.T) {
	m := manualManager(t)

	_, err := m.UpdateSchedule(context.Background(), "alice", "no-such-id", UpdateScheduleRequest{})
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestDeleteSchedule(t *testing.T) {
	m := manualManager(t)
	ctx := context.Background()

	sched, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	if err := m.DeleteSchedule(ctx, "alice", sched.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	schedules, err := m.ListSchedules(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(schedules) != 0 {
		t.Errorf("expected no schedules after delete, got %d", len(schedules))
	}

	if err := m.DeleteSchedule(ctx, "alice", sched.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("expected ErrScheduleNotFound on double delete, got %v", err)
	}
}

func TestNextSchedule_SkipsInactiveAndPast(t *testing.T) {
	m := manualManager(t)
	ctx := context.Background()

	near, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	far, err := m.CreateSchedule(ctx, "alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(5 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	// Deactivate the nearer schedule; the later one becomes next.
	inactive := false
	if _, err := m.UpdateSchedule(ctx, "alice", near.ID, UpdateScheduleRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}

	next, ok, err := m.NextSchedule(ctx, "alice")
	if err != nil {
		t.Fatalf("NextSchedule: %v", err)
	}
	if !ok || next.ID != far.ID {
		t.Errorf("expected %s as next schedule, got %+v ok=%v", far.ID, next, ok)
	}
}

func TestSchedulesPersistAcrossManagers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := NewManager(db, nil)
	first.SetMode(ctx, "alice", true)
	sched, err := first.CreateSchedule(ctx, "alice", CreateScheduleRequest{
		ScheduledTime: time.Now().Add(time.Hour),
		Duration:      20,
	})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	second := NewManager(db, nil)
	schedules, err := second.ListSchedules(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(schedules) != 1 || schedules[0].ID != sched.ID {
		t.Errorf("schedule did not survive restart: %+v", schedules)
	}
}
