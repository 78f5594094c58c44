// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command irrigationd starts the AgriVar irrigation API server.
//
// The server combines:
//   - The guide assistant (query resolution over the help knowledge base)
//   - Device control (pump, mode, thresholds, emergency, schedules)
//   - Sensor ingestion with a live websocket feed
//   - Periodic SMS farm updates
//
// Usage:
//
//	go run ./cmd/irrigationd
//	go run ./cmd/irrigationd -port 9090 -data-dir /var/lib/agrivar
//
// With InfluxDB persistence for readings:
//
//	INFLUX_URL=http://localhost:8086 INFLUX_TOKEN=... INFLUX_ORG=agrivar \
//	INFLUX_BUCKET=readings go run ./cmd/irrigationd
//
// With live SMS delivery (defaults to test mode, which only logs):
//
//	EGOSMS_USERNAME=... EGOSMS_PASSWORD=... EGOSMS_SENDER_ID=AgriVar \
//	go run ./cmd/irrigationd -sms-live -recipients recipients.yaml
//
// Example requests:
//
//	# Ask the assistant
//	curl -X POST http://localhost:8080/v1/guide/ask \
//	  -H "Content-Type: application/json" \
//	  -d '{"query": "how do i turn on the pump", "user_id": "alice"}'
//
//	# Read device state
//	curl -X POST http://localhost:8080/v1/control/action \
//	  -H "Content-Type: application/json" \
//	  -d '{"action": "get_state", "user_id": "alice"}'
//
//	# Push a sensor reading
//	curl -X POST http://localhost:8080/v1/sensors/readings \
//	  -H "Content-Type: application/json" \
//	  -d '{"user_id": "alice", "moisture": 42, "pump_status": false}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/agrivar/irrigation/services/control"
	"github.com/agrivar/irrigation/services/guide"
	"github.com/agrivar/irrigation/services/notify"
	"github.com/agrivar/irrigation/services/sensors"
	badgerstore "github.com/agrivar/irrigation/services/storage/badger"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	dataDir := flag.String("data-dir", "", "BadgerDB directory for device state and schedules (default ~/.agrivar/data)")
	intentDir := flag.String("intent-dir", "", "Directory of intent definition files overriding the embedded set")
	watchIntents := flag.Bool("watch-intents", false, "Reload intent definitions when the intent directory changes")
	recipientsPath := flag.String("recipients", "", "YAML file of SMS alert recipients")
	smsLive := flag.Bool("sms-live", false, "Send real SMS through the EgoSMS gateway instead of logging")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Trace context flows in from W3C traceparent headers and through all
	// handlers via the otelgin middleware below.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Device state and schedules persist in BadgerDB. Graceful
	// degradation: without it the control service runs in-memory only.
	db := openStateDB(*dataDir)

	// Readings persist in InfluxDB when configured; the live feed and the
	// latest-reading cache work without it.
	var writer sensors.Writer
	var historian sensors.Historian
	influx := openInflux()
	if influx != nil {
		writer = influx
		historian = influx
	}

	dispatcher := notify.NewDispatcher(buildMessenger(*smsLive))
	if *recipientsPath != "" {
		recipients, err := notify.LoadRecipients(*recipientsPath)
		if err != nil {
			slog.Error("Failed to load SMS recipients", slog.Any("error", err))
			os.Exit(1)
		}
		for _, r := range recipients {
			dispatcher.Upsert(r)
		}
		slog.Info("SMS recipients loaded", slog.Int("count", len(recipients)))
	}
	go dispatcher.Run(ctx)

	sensorSvc := sensors.NewService(writer, nil, dispatcher)
	manager := control.NewManager(db, sensorSvc)

	guideSvc, err := guide.NewService(ctx, guide.ServiceConfig{
		IntentDir:    *intentDir,
		WatchIntents: *watchIntents,
	})
	if err != nil {
		slog.Error("Failed to start guide service", slog.Any("error", err))
		os.Exit(1)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("agrivar-irrigation"))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	guide.RegisterRoutes(v1, guide.NewHandlers(guideSvc))
	control.RegisterRoutes(v1, control.NewHandlers(manager))
	sensors.RegisterRoutes(v1, sensors.NewHandlers(sensorSvc, historian))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down irrigation server")
		cancel()
		if db != nil {
			if err := db.Close(); err != nil {
				slog.Warn("Failed to close state database", slog.Any("error", err))
			}
		}
		if influx != nil {
			influx.Close()
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting irrigation server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.Any("error", err))
		os.Exit(1)
	}
}

// openStateDB opens the BadgerDB state store, or returns nil to run
// without persistence.
func openStateDB(dir string) *badgerstore.DB {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("No home directory, device state will not persist", slog.Any("error", err))
			return nil
		}
		dir = filepath.Join(home, ".agrivar", "data")
	}

	cfg := badgerstore.DefaultConfig()
	cfg.Path = dir
	db, err := badgerstore.OpenDB(cfg)
	if err != nil {
		slog.Warn("State database unavailable, device state will not persist",
			slog.String("path", dir),
			slog.Any("error", err),
		)
		return nil
	}
	slog.Info("State database opened", slog.String("path", dir))
	return db
}

// openInflux connects to InfluxDB from environment variables, or returns
// nil when not configured.
func openInflux() *sensors.InfluxStore {
	cfg := sensors.InfluxConfig{
		URL:    os.Getenv("INFLUX_URL"),
		Token:  os.Getenv("INFLUX_TOKEN"),
		Org:    os.Getenv("INFLUX_ORG"),
		Bucket: os.Getenv("INFLUX_BUCKET"),
	}
	if cfg.URL == "" {
		slog.Info("InfluxDB not configured, reading history disabled")
		return nil
	}

	store, err := sensors.NewInfluxWriter(cfg)
	if err != nil {
		slog.Warn("InfluxDB unavailable, reading history disabled", slog.Any("error", err))
		return nil
	}
	slog.Info("InfluxDB connected", slog.String("url", cfg.URL), slog.String("bucket", cfg.Bucket))
	return store
}

// buildMessenger picks the SMS transport. Live delivery needs full gateway
// credentials; anything less falls back to logging.
func buildMessenger(live bool) notify.Messenger {
	if !live {
		return notify.LogMessenger{}
	}

	apiURL := os.Getenv("EGOSMS_API_URL")
	if apiURL == "" {
		apiURL = "https://www.egosms.co/api/v1/plain/"
	}
	sms, err := notify.NewEgoSMS(notify.EgoSMSConfig{
		APIURL:   apiURL,
		Username: os.Getenv("EGOSMS_USERNAME"),
		Password: os.Getenv("EGOSMS_PASSWORD"),
		SenderID: os.Getenv("EGOSMS_SENDER_ID"),
	})
	if err != nil {
		slog.Warn("SMS gateway not configured, falling back to log delivery", slog.Any("error", err))
		return notify.LogMessenger{}
	}
	slog.Info("SMS gateway configured")
	return sms
}

func printBanner(port int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                    AGRIVAR IRRIGATION SERVER                      ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Smart irrigation control with a built-in help assistant.         ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/guide/health               │  ║
║  │                                                             │  ║
║  │ # Ask the assistant                                         │  ║
║  │ curl -X POST http://localhost:%d/v1/guide/ask \        │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"query": "how do i set the threshold?"}'             │  ║
║  │                                                             │  ║
║  │ # Read device state                                         │  ║
║  │ curl -X POST http://localhost:%d/v1/control/action \   │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"action": "get_state", "user_id": "alice"}'          │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Guide: /ask, /command, /resources, /suggestions, /history   ║
║  ├── Control: /action, /heartbeat, /schedules/:user              ║
║  ├── Sensors: /readings, /readings/:user/latest, /ws/:user       ║
║  └── Ops: /metrics, /v1/guide/health, /v1/guide/ready            ║
║                                                                   ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, port, port, port)
}
