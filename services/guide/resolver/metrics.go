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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Query Resolution
// =============================================================================

var (
	// resolutionsTotal counts resolution calls by terminal stage.
	// Labels: stage (intent, special_command, conversational, contact,
	// emergency, resource, no_match, error)
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "irrigation",
		Subsystem: "guide",
		Name:      "resolutions_total",
		Help:      "Total query resolutions by terminal pipeline stage",
	}, []string{"stage"})

	// resolutionDuration measures end-to-end resolution latency.
	resolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "irrigation",
		Subsystem: "guide",
		Name:      "resolution_duration_seconds",
		Help:      "End-to-end query resolution latency",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// spellingCorrectionsTotal counts queries the speller rewrote.
	spellingCorrectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "irrigation",
		Subsystem: "guide",
		Name:      "spelling_corrections_total",
		Help:      "Total queries altered by spelling correction",
	})

	// intentMatchScore observes accepted intent match confidence.
	intentMatchScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "irrigation",
		Subsystem: "guide",
		Name:      "intent_match_score",
		Help:      "Confidence scores of accepted intent matches",
		Buckets:   []float64{0.6, 0.7, 0.8, 0.9, 1.0},
	})
)

// recordResolution records one finished resolution call.
func recordResolution(stage string, seconds float64) {
	resolutionsTotal.WithLabelValues(stage).Inc()
	resolutionDuration.Observe(seconds)
}
