// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sensors ingests controller readings, persists them to the
// time-series store, and fans them out to live dashboard subscribers.
package sensors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var sensorsTracer = otel.Tracer("agrivar.sensors")

var validate = validator.New()

// DefaultThreshold mirrors the control service default for readings that
// arrive without one.
const DefaultThreshold = 30

// readingMeasurement is the InfluxDB measurement name.
const readingMeasurement = "sensor_reading"

// Writer persists accepted readings to the time-series store.
type Writer interface {
	WriteReading(ctx context.Context, r Reading) error
}

// Alerter is notified of every accepted reading. The notify service
// implements it; evaluation must not block ingestion.
type Alerter interface {
	ReadingAccepted(r Reading)
}

// InfluxConfig locates the time-series store.
type InfluxConfig struct {
	URL    string `validate:"required,url"`
	Token  string `validate:"required"`
	Org    string `validate:"required"`
	Bucket string `validate:"required"`
}

// Validate checks the configuration.
func (c InfluxConfig) Validate() error {
	return validate.Struct(c)
}

// influxWriter writes readings with the blocking write API. Ingestion is
// low-rate (one reading per device per interval), so batching buys nothing.
type influxWriter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
}

// NewInfluxWriter connects to InfluxDB.
//
// Outputs:
//
//	*InfluxStore - The connected store. Close must be called on shutdown.
//	error - Non-nil when the configuration is invalid.
func NewInfluxWriter(cfg InfluxConfig) (*InfluxStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxStore{
		influxWriter: influxWriter{
			client:   client,
			writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
			queryAPI: client.QueryAPI(cfg.Org),
			bucket:   cfg.Bucket,
		},
	}, nil
}

// InfluxStore persists and queries readings in InfluxDB.
//
// Thread Safety: Safe for concurrent use.
type InfluxStore struct {
	influxWriter
}

// Close releases the underlying HTTP client.
func (s *InfluxStore) Close() {
	s.client.Close()
}

// WriteReading stores one reading as a point tagged by user.
func (w influxWriter) WriteReading(ctx context.Context, r Reading) error {
	fields := map[string]any{
		"pump_status": r.PumpStatus,
		"threshold":   r.Threshold,
	}
	if r.Moisture.Valid {
		fields["moisture"] = r.Moisture.Int
	}
	if r.Temperature.Valid {
		fields["temperature"] = r.Temperature.Int
	}
	if r.Humidity.Valid {
		fields["humidity"] = r.Humidity.Int
	}

	point := write.NewPoint(
		readingMeasurement,
		map[string]string{"user_id": r.UserID},
		fields,
		r.Timestamp,
	)
	return w.writeAPI.WritePoint(ctx, point)
}

// Service accepts readings and fans them out.
//
// Description:
//
//	Each accepted reading is cached as the user's latest, written to the
//	time-series store, pushed to websocket subscribers, and handed to the
//	alerter. Store and fan-out failures are logged, not surfaced; a
//	controller cannot act on them and retransmits anyway.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	writer  Writer
	hub     *Hub
	alerter Alerter

	mu     sync.RWMutex
	latest map[string]Reading

	now func() time.Time
}

// NewService creates a sensor service. writer and alerter may be nil; a
// nil writer degrades to in-memory-latest-only operation.
func NewService(writer Writer, hub *Hub, alerter Alerter) *Service {
	if hub == nil {
		hub = NewHub()
	}
	return &Service{
		writer:  writer,
		hub:     hub,
		alerter: alerter,
		latest:  make(map[string]Reading),
		now:     time.Now,
	}
}

// Hub exposes the websocket hub for route registration.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Ingest validates and accepts one reading.
//
// Outputs:
//
//	Reading - The normalized reading with its assigned timestamp.
//	error - Non-nil only when the request fails validation.
func (s *Service) Ingest(ctx context.Context, req ReadingRequest) (Reading, error) {
	ctx, span := sensorsTracer.Start(ctx, "sensors.Ingest")
	defer span.End()

	if err := validate.Struct(req); err != nil {
		readingsTotal.WithLabelValues("rejected").Inc()
		return Reading{}, err
	}

	threshold := DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	r := Reading{
		UserID:      req.UserID,
		Moisture:    req.Moisture,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		PumpStatus:  req.PumpStatus,
		ValveStatus: req.ValveStatus,
		Threshold:   threshold,
		Timestamp:   s.now(),
	}
	span.SetAttributes(
		attribute.String("user_id", r.UserID),
		attribute.Bool("moisture_present", r.Moisture.Valid),
	)

	s.mu.Lock()
	s.latest[r.UserID] = r
	s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.WriteReading(ctx, r); err != nil {
			slog.Warn("time-series write failed",
				slog.String("user_id", r.UserID),
				slog.Any("error", err),
			)
		}
	}

	s.hub.Broadcast(r.UserID, Update{
		Moisture:   r.Moisture,
		PumpStatus: r.PumpStatus,
		Timestamp:  r.Timestamp,
	})

	if s.alerter != nil {
		s.alerter.ReadingAccepted(r)
	}

	readingsTotal.WithLabelValues("accepted").Inc()
	if r.Moisture.Valid {
		moistureGauge.WithLabelValues(r.UserID).Set(float64(r.Moisture.Int))
	}
	return r, nil
}

// Latest returns the newest accepted reading for a user.
func (s *Service) Latest(userID string) (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.latest[userID]
	return r, ok
}

// LatestReadingTime reports when the user's controller last delivered a
// reading. Implements the control service's ReadingSource.
func (s *Service) LatestReadingTime(userID string) (time.Time, bool) {
	r, ok := s.Latest(userID)
	if !ok {
		return time.Time{}, false
	}
	return r.Timestamp, true
}
