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
	"encoding/json"
	"testing"
)

func TestNullableIntUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
		value int
	}{
		{"number", `42`, true, 42},
		{"zero", `0`, true, 0},
		{"negative", `-3`, true, -3},
		{"float truncated", `21.9`, true, 21},
		{"numeric string", `"65"`, true, 65},
		{"null", `null`, false, 0},
		{"na string", `"NA"`, false, 0},
		{"null string", `"null"`, false, 0},
		{"empty string", `""`, false, 0},
		{"garbage string", `"err"`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n NullableInt
			if err := json.Unmarshal([]byte(tt.raw), &n); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if n.Valid != tt.valid {
				t.Fatalf("valid = %v, want %v for %s", n.Valid, tt.valid, tt.raw)
			}
			if n.Valid && n.Int != tt.value {
				t.Errorf("value = %d, want %d for %s", n.Int, tt.value, tt.raw)
			}
		})
	}
}

func TestNullableIntMarshal(t *testing.T) {
	got, err := json.Marshal(NewNullableInt(55))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(got) != "55" {
		t.Errorf("present value marshaled as %s, want 55", got)
	}

	got, err = json.Marshal(NullableInt{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(got) != "null" {
		t.Errorf("absent value marshaled as %s, want null", got)
	}
}

func TestReadingRequestDecoding(t *testing.T) {
	// The controller firmware sends "NA" for failed probes.
	raw := `{
		"user_id": "alice",
		"moisture": "NA",
		"temperature": 24,
		"humidity": "61",
		"pump_status": true,
		"valve_status": false
	}`
	var req ReadingRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Moisture.Valid {
		t.Error("NA moisture should decode as absent")
	}
	if !req.Temperature.Valid || req.Temperature.Int != 24 {
		t.Errorf("temperature = %+v, want 24", req.Temperature)
	}
	if !req.Humidity.Valid || req.Humidity.Int != 61 {
		t.Errorf("humidity = %+v, want 61", req.Humidity)
	}
	if !req.PumpStatus {
		t.Error("pump_status should be true")
	}
	if req.Threshold != nil {
		t.Error("absent threshold should decode as nil")
	}
}
