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
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	badgerstore "github.com/agrivar/irrigation/services/storage/badger"
)

// newScheduleID mints an opaque schedule identifier.
func newScheduleID() string {
	return uuid.NewString()
}

func scheduleKey(userID, id string) string {
	return scheduleKeyPrefix + userID + "/" + id
}

// schedulingAllowed enforces the mutation guard: manual mode with no
// active emergency. Reading schedules is always allowed.
func (m *Manager) schedulingAllowed(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.stateLocked(ctx, userID)
	if !st.ManualMode || st.Emergency {
		return ErrSchedulingLocked
	}
	return nil
}

// CreateSchedule plans a future irrigation run.
//
// Outputs:
//
//	Schedule - The stored schedule with its minted ID.
//	error - ErrSchedulingLocked, ErrPastSchedule, or ErrInvalidDuration on
//	a rejected request; a storage error otherwise.
func (m *Manager) CreateSchedule(ctx context.Context, userID string, req CreateScheduleRequest) (Schedule, error) {
	if err := m.schedulingAllowed(ctx, userID); err != nil {
		recordAction("create_schedule", "rejected")
		return Schedule{}, err
	}
	if req.ScheduledTime.Before(m.now()) {
		recordAction("create_schedule", "rejected")
		return Schedule{}, ErrPastSchedule
	}

	duration := req.Duration
	if duration == 0 {
		duration = DefaultScheduleDuration
	}
	if duration < MinScheduleDuration || duration > MaxScheduleDuration {
		recordAction("create_schedule", "rejected")
		return Schedule{}, ErrInvalidDuration
	}

	sched := Schedule{
		ID:            m.newID(),
		ScheduledTime: req.ScheduledTime,
		Duration:      duration,
		IsActive:      true,
		CreatedAt:     m.now(),
	}
	if err := m.saveSchedule(ctx, userID, sched); err != nil {
		return Schedule{}, err
	}
	recordAction("create_schedule", "ok")
	return sched, nil
}

// UpdateSchedule modifies an existing schedule. Nil request fields are left
// unchanged.
func (m *Manager) UpdateSchedule(ctx context.Context, userID, id string, req UpdateScheduleRequest) (Schedule, error) {
	if err := m.schedulingAllowed(ctx, userID); err != nil {
		recordAction("update_schedule", "rejected")
		return Schedule{}, err
	}

	sched, err := m.getSchedule(ctx, userID, id)
	if err != nil {
		return Schedule{}, err
	}

	if req.ScheduledTime != nil {
		if req.ScheduledTime.Before(m.now()) {
			recordAction("update_schedule", "rejected")
			return Schedule{}, ErrPastSchedule
		}
		sched.ScheduledTime = *req.ScheduledTime
	}
	if req.Duration != nil {
		if *req.Duration < MinScheduleDuration || *req.Duration > MaxScheduleDuration {
			recordAction("update_schedule", "rejected")
			return Schedule{}, ErrInvalidDuration
		}
		sched.Duration = *req.Duration
	}
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}

	if err := m.saveSchedule(ctx, userID, sched); err != nil {
		return Schedule{}, err
	}
	recordAction("update_schedule", "ok")
	return sched, nil
}

// DeleteSchedule removes a schedule.
func (m *Manager) DeleteSchedule(ctx context.Context, userID, id string) error {
	if err := m.schedulingAllowed(ctx, userID); err != nil {
		recordAction("delete_schedule", "rejected")
		return err
	}
	if _, err := m.getSchedule(ctx, userID, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		if err := m.db.Delete(ctx, scheduleKey(userID, id)); err != nil {
			return fmt.Errorf("control: deleting schedule %s: %w", id, err)
		}
	}
	delete(m.memSchedules(userID), id)
	recordAction("delete_schedule", "ok")
	return nil
}

// ListSchedules returns all of a user's schedules ordered by time.
func (m *Manager) ListSchedules(ctx context.Context, userID string) ([]Schedule, error) {
	schedules, err := m.loadSchedules(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].ScheduledTime.Before(schedules[j].ScheduledTime)
	})
	return schedules, nil
}

// NextSchedule returns the earliest active schedule at or after now.
func (m *Manager) NextSchedule(ctx context.Context, userID string) (Schedule, bool, error) {
	schedules, err := m.ListSchedules(ctx, userID)
	if err != nil {
		return Schedule{}, false, err
	}
	now := m.now()
	for _, s := range schedules {
		if s.IsActive && !s.ScheduledTime.Before(now) {
			return s, true, nil
		}
	}
	return Schedule{}, false, nil
}

// =============================================================================
// Schedule persistence
// =============================================================================

// memSchedules returns the user's schedule cache, creating it on first use.
// Caller holds the mutex.
func (m *Manager) memSchedules(userID string) map[string]Schedule {
	if m.schedules == nil {
		m.schedules = make(map[string]map[string]Schedule)
	}
	if m.schedules[userID] == nil {
		m.schedules[userID] = make(map[string]Schedule)
	}
	return m.schedules[userID]
}

func (m *Manager) saveSchedule(ctx context.Context, userID string, sched Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		if err := m.db.SetJSON(ctx, scheduleKey(userID, sched.ID), sched, 0); err != nil {
			return fmt.Errorf("control: saving schedule %s: %w", sched.ID, err)
		}
	}
	m.memSchedules(userID)[sched.ID] = sched
	return nil
}

func (m *Manager) getSchedule(ctx context.Context, userID, id string) (Schedule, error) {
	m.mu.Lock()
	if sched, ok := m.memSchedules(userID)[id]; ok {
		m.mu.Unlock()
		return sched, nil
	}
	m.mu.Unlock()

	if m.db == nil {
		return Schedule{}, ErrScheduleNotFound
	}

	var sched Schedule
	err := m.db.GetJSON(ctx, scheduleKey(userID, id), &sched)
	if err != nil {
		if errors.Is(err, badgerstore.ErrNotFound) {
			return Schedule{}, ErrScheduleNotFound
		}
		return Schedule{}, fmt.Errorf("control: loading schedule %s: %w", id, err)
	}

	m.mu.Lock()
	m.memSchedules(userID)[id] = sched
	m.mu.Unlock()
	return sched, nil
}

func (m *Manager) loadSchedules(ctx context.Context, userID string) ([]Schedule, error) {
	if m.db != nil {
		prefix := scheduleKeyPrefix + userID + "/"
		var schedules []Schedule
		err := m.db.ListJSON(ctx, prefix, func(key string, raw []byte) error {
			var sched Schedule
			if err := json.Unmarshal(raw, &sched); err != nil {
				return fmt.Errorf("control: decoding schedule %q: %w", key, err)
			}
			schedules = append(schedules, sched)
			return nil
		})
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		cache := m.memSchedules(userID)
		for _, s := range schedules {
			cache[s.ID] = s
		}
		m.mu.Unlock()
		return schedules, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	schedules := make([]Schedule, 0, len(m.memSchedules(userID)))
	for _, s := range m.memSchedules(userID) {
		schedules = append(schedules, s)
	}
	return schedules, nil
}
