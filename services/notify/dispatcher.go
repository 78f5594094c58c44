// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrivar/irrigation/services/sensors"
)

const (
	// DefaultFrequency is the per-recipient gap between alerts when none
	// is configured.
	DefaultFrequency = time.Hour

	// defaultDispatchInterval is how often due recipients are checked.
	defaultDispatchInterval = time.Minute

	// maxConcurrentSends caps parallel gateway calls per sweep.
	maxConcurrentSends = 4
)

// Recipient is one user subscribed to SMS farm updates.
type Recipient struct {
	UserID   string
	Username string
	Phone    string
	Enabled  bool

	// Frequency is the minimum gap between alerts to this recipient.
	Frequency time.Duration
}

type recipientState struct {
	Recipient
	lastSent time.Time
}

// Dispatcher sends periodic farm updates built from each user's latest
// reading.
//
// Description:
//
//	Readings arrive through ReadingAccepted and only the newest per user
//	is kept. A background sweep sends an alert to every enabled
//	recipient whose frequency gap has elapsed. A failed send does not
//	advance the recipient's clock, so the next sweep retries.
//
// Thread Safety: Safe for concurrent use.
type Dispatcher struct {
	messenger Messenger
	interval  time.Duration

	mu         sync.Mutex
	recipients map[string]*recipientState
	latest     map[string]sensors.Reading

	now func() time.Time
}

// NewDispatcher creates a dispatcher sweeping at the default interval.
func NewDispatcher(messenger Messenger) *Dispatcher {
	return &Dispatcher{
		messenger:  messenger,
		interval:   defaultDispatchInterval,
		recipients: make(map[string]*recipientState),
		latest:     make(map[string]sensors.Reading),
		now:        time.Now,
	}
}

// ReadingAccepted records a user's newest reading. Implements the sensor
// service's Alerter.
func (d *Dispatcher) ReadingAccepted(r sensors.Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest[r.UserID] = r
}

// Upsert adds or replaces a recipient, keeping its last-sent clock.
func (d *Dispatcher) Upsert(r Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.recipients[r.UserID]
	if !ok {
		state = &recipientState{}
		d.recipients[r.UserID] = state
	}
	state.Recipient = r
}

// Remove unsubscribes a recipient.
func (d *Dispatcher) Remove(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.recipients, userID)
}

// Recipients returns the current subscriptions.
func (d *Dispatcher) Recipients() []Recipient {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Recipient, 0, len(d.recipients))
	for _, state := range d.recipients {
		out = append(out, state.Recipient)
	}
	return out
}

// Run sweeps until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Dispatch(ctx)
		}
	}
}

type pendingAlert struct {
	recipient Recipient
	reading   sensors.Reading
}

// Dispatch sends one alert to every due recipient and reports how many
// went out.
func (d *Dispatcher) Dispatch(ctx context.Context) int {
	now := d.now()

	d.mu.Lock()
	var due []pendingAlert
	for userID, state := range d.recipients {
		if !state.Enabled || state.Phone == "" {
			continue
		}
		reading, ok := d.latest[userID]
		if !ok {
			continue
		}
		frequency := state.Frequency
		if frequency <= 0 {
			frequency = DefaultFrequency
		}
		if !state.lastSent.IsZero() && now.Sub(state.lastSent) < frequency {
			continue
		}
		due = append(due, pendingAlert{recipient: state.Recipient, reading: reading})
	}
	d.mu.Unlock()

	if len(due) == 0 {
		return 0
	}

	var sent int
	var sentMu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	for _, alert := range due {
		g.Go(func() error {
			message := BuildAlertMessage(alert.recipient.Username, alert.reading, now)
			if err := d.messenger.Send(ctx, alert.recipient.Phone, message); err != nil {
				alertsTotal.WithLabelValues("failed").Inc()
				slog.Warn("sms alert failed",
					slog.String("user_id", alert.recipient.UserID),
					slog.Any("error", err),
				)
				// Send failures are per-recipient; keep the sweep going.
				return nil
			}
			alertsTotal.WithLabelValues("sent").Inc()
			d.markSent(alert.recipient.UserID, now)
			sentMu.Lock()
			sent++
			sentMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return sent
}

func (d *Dispatcher) markSent(userID string, at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.recipients[userID]; ok {
		state.lastSent = at
	}
}
