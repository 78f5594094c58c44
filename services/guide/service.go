// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guide exposes the irrigation help assistant over HTTP: query
// resolution, resource browsing, suggestions, conversation history, and the
// administrative intent reload surface.
package guide

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrivar/irrigation/services/guide/knowledge"
	"github.com/agrivar/irrigation/services/guide/resolver"
)

// ServiceConfig configures the guide service.
type ServiceConfig struct {
	// IntentDir optionally overrides the embedded intent definitions.
	IntentDir string

	// WatchIntents starts a filesystem watcher on IntentDir that reloads
	// intents on change. Ignored when IntentDir is empty.
	WatchIntents bool

	// RatePerSecond and RateBurst bound per-user query throughput.
	// Non-positive values fall back to the defaults.
	RatePerSecond float64
	RateBurst     int
}

// DefaultServiceConfig returns the standard guide configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RatePerSecond: defaultRatePerSecond,
		RateBurst:     defaultRateBurst,
	}
}

// Service wires the knowledge base, intent loader, and resolver together.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	cfg      ServiceConfig
	base     *knowledge.Base
	intents  *knowledge.IntentLoader
	resolver *resolver.Resolver
	limiter  *userLimiter
}

// NewService loads the knowledge base and intents and builds the resolver.
//
// Inputs:
//
//	ctx - Context for tracing during the initial load. Must not be nil.
//	cfg - Service configuration.
//
// Outputs:
//
//	*Service - The ready service. Never nil on success.
//	error - Non-nil if the knowledge base or every intent file failed to
//	load.
func NewService(ctx context.Context, cfg ServiceConfig) (*Service, error) {
	base, err := knowledge.GetBase(ctx)
	if err != nil {
		return nil, fmt.Errorf("guide.NewService: loading knowledge base: %w", err)
	}

	intents := knowledge.NewIntentLoader(cfg.IntentDir)
	if err := intents.Load(ctx); err != nil {
		return nil, fmt.Errorf("guide.NewService: loading intents: %w", err)
	}

	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}

	s := &Service{
		cfg:      cfg,
		base:     base,
		intents:  intents,
		resolver: resolver.New(base, intents),
		limiter:  newUserLimiter(cfg.RatePerSecond, cfg.RateBurst),
	}

	if cfg.IntentDir != "" && cfg.WatchIntents {
		go func() {
			if err := intents.Watch(ctx); err != nil {
				slog.Error("intent watcher stopped", slog.Any("error", err))
			}
		}()
	}

	slog.Info("guide service ready",
		slog.Int("resources", base.Len()),
		slog.Int("intents", intents.Snapshot().Len()),
	)
	return s, nil
}

// Resolver exposes the query resolver.
func (s *Service) Resolver() *resolver.Resolver {
	return s.resolver
}

// Intents exposes the intent loader for administrative operations.
func (s *Service) Intents() *knowledge.IntentLoader {
	return s.intents
}

// Base exposes the resource knowledge base.
func (s *Service) Base() *knowledge.Base {
	return s.base
}
