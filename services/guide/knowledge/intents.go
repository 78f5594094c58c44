// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Embedded Default Intent Definitions
// =============================================================================

//go:embed intents/*.json
var defaultIntentFS embed.FS

// intentFiles fixes the category set and its iteration order. Matching walks
// categories in this order, so ties between equal scores resolve to the
// earlier category.
var intentFiles = []struct {
	Category string
	File     string
}{
	{"help", "help_intents.json"},
	{"contact", "contact_intents.json"},
	{"privacy", "privacy_intents.json"},
	{"terms", "terms_intents.json"},
	{"system", "system_intents.json"},
}

// =============================================================================
// Intent Types
// =============================================================================

// Intent is one answerable question pattern group.
type Intent struct {
	// Tag uniquely names the intent within its category.
	Tag string `json:"tag"`

	// Patterns are the user phrasings this intent answers.
	Patterns []string `json:"patterns"`

	// Responses are the candidate replies; one is chosen at random.
	Responses []string `json:"responses"`

	// Suggestions are follow-up prompts shown with the reply.
	Suggestions []string `json:"suggestions,omitempty"`
}

// IntentFile is the on-disk shape of one category's intent definitions.
type IntentFile struct {
	Intents []Intent `json:"intents"`
}

// IntentSnapshot is an immutable view of every loaded intent category.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type IntentSnapshot struct {
	categories []string
	files      map[string]IntentFile
}

// Categories returns the fixed category iteration order.
func (s *IntentSnapshot) Categories() []string {
	return s.categories
}

// Intents returns the intents of one category, or nil if the category
// failed to load.
func (s *IntentSnapshot) Intents(category string) []Intent {
	return s.files[category].Intents
}

// Len returns the total intent count across all categories.
func (s *IntentSnapshot) Len() int {
	n := 0
	for _, f := range s.files {
		n += len(f.Intents)
	}
	return n
}

// Export writes the snapshot as indented JSON, keyed by category.
func (s *IntentSnapshot) Export(w io.Writer) error {
	out := make(map[string]IntentFile, len(s.files))
	for cat, f := range s.files {
		out[cat] = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("exporting intents: %w", err)
	}
	return nil
}

// =============================================================================
// IntentLoader
// =============================================================================

// IntentLoader loads per-category intent JSON files and serves an atomic
// snapshot to matchers.
//
// Description:
//
//	Each category has one JSON file. When a directory override is set,
//	files found there replace the embedded defaults; a file that is
//	missing or malformed is logged and skipped, and the embedded default
//	for that category is used instead. Reload builds a complete new
//	snapshot before swapping it in, so readers always see a consistent
//	intent set.
//
// Thread Safety: Safe for concurrent use. Load and Snapshot may be called
// from any goroutine.
type IntentLoader struct {
	// dir optionally overrides the embedded defaults.
	dir string

	mu   sync.RWMutex
	snap *IntentSnapshot
}

// NewIntentLoader creates a loader reading overrides from dir. An empty dir
// means embedded defaults only. The initial load must be performed with Load.
func NewIntentLoader(dir string) *IntentLoader {
	return &IntentLoader{dir: dir}
}

// Dir returns the override directory, or empty when running on embedded
// defaults only.
func (l *IntentLoader) Dir() string {
	return l.dir
}

// Load reads every category file and atomically replaces the snapshot.
//
// Outputs:
//
//	error - Non-nil only if no category could be loaded at all. Individual
//	file failures are logged and fall back to the embedded defaults.
func (l *IntentLoader) Load(ctx context.Context) error {
	_, span := knowledgeTracer.Start(ctx, "knowledge.IntentLoader.Load")
	defer span.End()

	snap := &IntentSnapshot{
		files: make(map[string]IntentFile, len(intentFiles)),
	}
	for _, entry := range intentFiles {
		snap.categories = append(snap.categories, entry.Category)

		file, err := l.loadCategory(entry.Category, entry.File)
		if err != nil {
			slog.Warn("skipping intent category",
				slog.String("category", entry.Category),
				slog.String("file", entry.File),
				slog.Any("error", err),
			)
			continue
		}
		snap.files[entry.Category] = file
	}

	if len(snap.files) == 0 {
		return fmt.Errorf("IntentLoader.Load: no intent categories could be loaded")
	}

	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()

	span.SetAttributes(
		attribute.Int("categories", len(snap.files)),
		attribute.Int("intents", snap.Len()),
	)
	slog.Info("intents loaded",
		slog.Int("categories", len(snap.files)),
		slog.Int("intents", snap.Len()),
		slog.String("dir", l.dir),
	)
	return nil
}

// loadCategory reads one category file, preferring the override directory
// over the embedded default.
func (l *IntentLoader) loadCategory(category, filename string) (IntentFile, error) {
	var data []byte
	var err error

	if l.dir != "" {
		path := filepath.Join(l.dir, filename)
		data, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return IntentFile{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	if data == nil {
		data, err = defaultIntentFS.ReadFile("intents/" + filename)
		if err != nil {
			return IntentFile{}, fmt.Errorf("reading embedded default: %w", err)
		}
	}
	if len(data) > MaxDefinitionFileSize {
		return IntentFile{}, fmt.Errorf("intent file exceeds maximum size (%d > %d)", len(data), MaxDefinitionFileSize)
	}

	var file IntentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return IntentFile{}, fmt.Errorf("parsing JSON: %w", err)
	}
	for i, intent := range file.Intents {
		if intent.Tag == "" {
			return IntentFile{}, fmt.Errorf("intent[%d] in category %q: tag must not be empty", i, category)
		}
		if len(intent.Patterns) == 0 {
			return IntentFile{}, fmt.Errorf("intent %q in category %q: patterns must not be empty", intent.Tag, category)
		}
		if len(intent.Responses) == 0 {
			return IntentFile{}, fmt.Errorf("intent %q in category %q: responses must not be empty", intent.Tag, category)
		}
	}
	return file, nil
}

// Snapshot returns the current intent snapshot, or nil before the first
// successful Load.
func (l *IntentLoader) Snapshot() *IntentSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}
