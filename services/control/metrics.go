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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "irrigation",
		Subsystem: "control",
		Name:      "actions_total",
		Help:      "Control actions processed, by action and outcome (ok, noop, rejected).",
	},
	[]string{"action", "outcome"},
)

var emergencyStopsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "irrigation",
		Subsystem: "control",
		Name:      "emergency_stops_total",
		Help:      "Emergency stop activations.",
	},
)

func recordAction(action, outcome string) {
	actionsTotal.WithLabelValues(action, outcome).Inc()
	if action == "emergency_stop" && outcome == "ok" {
		emergencyStopsTotal.Inc()
	}
}
