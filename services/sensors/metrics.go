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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var readingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "irrigation",
		Subsystem: "sensors",
		Name:      "readings_total",
		Help:      "Sensor readings received, by result (accepted, rejected).",
	},
	[]string{"result"},
)

var moistureGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "irrigation",
		Subsystem: "sensors",
		Name:      "moisture_percent",
		Help:      "Most recent soil moisture reading per user, in percent.",
	},
	[]string{"user_id"},
)

var wsClientsGauge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "irrigation",
		Subsystem: "sensors",
		Name:      "websocket_clients",
		Help:      "Websocket subscribers currently connected.",
	},
)
