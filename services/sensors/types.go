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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// NullableInt is an integer field that field controllers may report as
// "NA", "null", an empty string, or JSON null when the sensor fails.
//
// Description:
//
//	Unmarshals from a JSON number, a numeric string, or any of the
//	missing-value spellings. Marshals back as a number or null. The zero
//	value is "not present".
type NullableInt struct {
	Int   int
	Valid bool
}

// NewNullableInt returns a present value.
func NewNullableInt(v int) NullableInt {
	return NullableInt{Int: v, Valid: true}
}

func (n *NullableInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = NullableInt{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("sensors: invalid value %s: %w", data, err)
		}
		switch s {
		case "NA", "null", "":
			*n = NullableInt{}
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			// Unparseable sensor noise is treated as missing, matching
			// how the controllers report degraded probes.
			*n = NullableInt{}
			return nil
		}
		*n = NullableInt{Int: v, Valid: true}
		return nil
	}

	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		// Floats are truncated; anything else is missing.
		var f float64
		if ferr := json.Unmarshal(data, &f); ferr != nil {
			*n = NullableInt{}
			return nil
		}
		v = int(f)
	}
	*n = NullableInt{Int: v, Valid: true}
	return nil
}

func (n NullableInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Int)
}

// Reading is one accepted sensor report.
type Reading struct {
	UserID      string      `json:"user_id"`
	Moisture    NullableInt `json:"moisture"`
	Temperature NullableInt `json:"temperature"`
	Humidity    NullableInt `json:"humidity"`
	PumpStatus  bool        `json:"pump_status"`
	ValveStatus bool        `json:"valve_status"`
	Threshold   int         `json:"threshold"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ReadingRequest is the body of POST /v1/sensors/readings.
type ReadingRequest struct {
	UserID      string      `json:"user_id" validate:"required,max=128"`
	Moisture    NullableInt `json:"moisture"`
	Temperature NullableInt `json:"temperature"`
	Humidity    NullableInt `json:"humidity"`
	PumpStatus  bool        `json:"pump_status"`
	ValveStatus bool        `json:"valve_status"`

	// Threshold defaults to the standard 30 when absent.
	Threshold *int `json:"threshold,omitempty" validate:"omitempty,min=0,max=100"`
}

// ErrorResponse is the uniform error payload for all sensor endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// IngestResponse acknowledges an accepted reading.
type IngestResponse struct {
	Status string `json:"status"`
}

// Update is the payload pushed to websocket subscribers for each accepted
// reading.
type Update struct {
	Moisture   NullableInt `json:"moisture"`
	PumpStatus bool        `json:"pump_status"`
	Timestamp  time.Time   `json:"timestamp"`
}
