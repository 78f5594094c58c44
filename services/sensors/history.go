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
	"context"
	"fmt"
	"sort"
	"time"
)

// Historian serves windowed reading queries. The InfluxDB store implements
// it; deployments without a time-series store run with a nil Historian and
// the history endpoint reports unavailable.
type Historian interface {
	History(ctx context.Context, userID string, window time.Duration) ([]Reading, error)
}

// History returns the user's readings within the trailing window, oldest
// first.
//
// Description:
//
//	Runs a Flux range query over the sensor_reading measurement and folds
//	the per-field rows back into Reading values keyed by point time.
func (s *InfluxStore) History(ctx context.Context, userID string, window time.Duration) ([]Reading, error) {
	flux := fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%s)
  |> filter(fn: (r) => r._measurement == %q and r.user_id == %q)
`, s.bucket, window.String(), readingMeasurement, userID)

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("sensors: history query: %w", err)
	}
	defer result.Close()

	byTime := make(map[time.Time]*Reading)
	for result.Next() {
		record := result.Record()
		ts := record.Time()
		r, ok := byTime[ts]
		if !ok {
			r = &Reading{UserID: userID, Timestamp: ts}
			byTime[ts] = r
		}

		switch record.Field() {
		case "moisture":
			if v, ok := record.Value().(int64); ok {
				r.Moisture = NewNullableInt(int(v))
			}
		case "temperature":
			if v, ok := record.Value().(int64); ok {
				r.Temperature = NewNullableInt(int(v))
			}
		case "humidity":
			if v, ok := record.Value().(int64); ok {
				r.Humidity = NewNullableInt(int(v))
			}
		case "pump_status":
			if v, ok := record.Value().(bool); ok {
				r.PumpStatus = v
			}
		case "threshold":
			if v, ok := record.Value().(int64); ok {
				r.Threshold = int(v)
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("sensors: reading history rows: %w", err)
	}

	readings := make([]Reading, 0, len(byTime))
	for _, r := range byTime {
		readings = append(readings, *r)
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings, nil
}
