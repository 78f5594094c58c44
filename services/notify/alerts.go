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
	"fmt"
	"strings"
	"time"

	"github.com/agrivar/irrigation/services/sensors"
)

// onlineWindow is how recent a reading must be for the farm to count as
// online.
const onlineWindow = 5 * time.Minute

// alertZone renders alert timestamps in East African Time, where the
// farms are.
var alertZone = loadAlertZone()

func loadAlertZone() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		// Containers without tzdata fall back to a fixed UTC+3.
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}

// BuildAlertMessage renders the SMS farm update for one reading.
//
// Description:
//
//	The message leads with connection status (ONLINE when the reading is
//	under five minutes old), then the reading rendered in East African
//	Time. Missing sensor values print as N/A and leave the irrigation
//	status UNKNOWN.
func BuildAlertMessage(username string, r sensors.Reading, now time.Time) string {
	irrigation := "UNKNOWN"
	if r.Moisture.Valid {
		if r.Moisture.Int < r.Threshold {
			irrigation = "ACTIVE"
		} else {
			irrigation = "IDLE"
		}
	}

	connection := "OFFLINE"
	if now.Sub(r.Timestamp) <= onlineWindow {
		connection = "ONLINE"
	}

	pump := "OFF"
	if r.PumpStatus {
		pump = "ON"
	}
	valve := "CLOSED"
	if r.ValveStatus {
		valve = "OPEN"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello : %s!\n", username)
	fmt.Fprintf(&b, "Farm Update - %s\n", connection)
	fmt.Fprintf(&b, "Time: %s\n", r.Timestamp.In(alertZone).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Irrigation: %s\n", irrigation)
	fmt.Fprintf(&b, "Moisture: %s%%\n", renderValue(r.Moisture))
	fmt.Fprintf(&b, "Threshold: %d%%\n", r.Threshold)
	fmt.Fprintf(&b, "Temp: %s°C\n", renderValue(r.Temperature))
	fmt.Fprintf(&b, "Humidity: %s%%\n", renderValue(r.Humidity))
	fmt.Fprintf(&b, " Pump: %s \n", pump)
	fmt.Fprintf(&b, "Valve: %s \n", valve)
	return b.String()
}

func renderValue(n sensors.NullableInt) string {
	if !n.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%d", n.Int)
}
