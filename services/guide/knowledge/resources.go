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
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

var knowledgeTracer = otel.Tracer("agrivar.guide.knowledge")

// =============================================================================
// Embedded Default Resource Definitions
// =============================================================================

//go:embed resources.yaml
var defaultResourcesYAML []byte

// MaxDefinitionFileSize caps resource and intent definition files.
const MaxDefinitionFileSize = 1 << 20

// =============================================================================
// YAML Entry Types
// =============================================================================

// baseEntry carries the fields shared by every resource definition.
type baseEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Icon        string   `yaml:"icon"`
	Importance  int      `yaml:"importance"`
	Navigation  string   `yaml:"navigation"`
}

func (e baseEntry) resource(cat Category) Resource {
	imp := e.Importance
	if imp <= 0 {
		imp = DefaultImportance
	}
	return Resource{
		Name:        e.Name,
		Category:    cat,
		Description: e.Description,
		Keywords:    e.Keywords,
		Icon:        e.Icon,
		Importance:  imp,
		Navigation:  e.Navigation,
	}
}

type routeEntry struct {
	baseEntry `yaml:",inline"`
	RouteSpec `yaml:",inline"`
}

type infoEntry struct {
	baseEntry `yaml:",inline"`
	InfoSpec  `yaml:",inline"`
}

type commandEntry struct {
	baseEntry   `yaml:",inline"`
	CommandSpec `yaml:",inline"`
}

type widgetEntry struct {
	baseEntry  `yaml:",inline"`
	WidgetSpec `yaml:",inline"`
}

type helpEntry struct {
	baseEntry `yaml:",inline"`
	HelpSpec  `yaml:",inline"`
}

type chatEntry struct {
	baseEntry `yaml:",inline"`
	ChatSpec  `yaml:",inline"`
}

type tutorialEntry struct {
	baseEntry    `yaml:",inline"`
	TutorialSpec `yaml:",inline"`
}

type troubleshootingEntry struct {
	baseEntry           `yaml:",inline"`
	TroubleshootingSpec `yaml:",inline"`
}

type contactEntry struct {
	baseEntry   `yaml:",inline"`
	ContactSpec `yaml:",inline"`
}

type emergencyEntry struct {
	baseEntry     `yaml:",inline"`
	EmergencySpec `yaml:",inline"`
}

type navigationEntry struct {
	baseEntry      `yaml:",inline"`
	NavigationSpec `yaml:",inline"`
}

// resourceFile is the top-level shape of resources.yaml. Section order here
// mirrors categoryOrder.
type resourceFile struct {
	Routes           []routeEntry           `yaml:"routes"`
	Infos            []infoEntry            `yaml:"infos"`
	Commands         []commandEntry         `yaml:"commands"`
	Widgets          []widgetEntry          `yaml:"widgets"`
	Helps            []helpEntry            `yaml:"helps"`
	Chats            []chatEntry            `yaml:"chats"`
	Tutorials        []tutorialEntry        `yaml:"tutorials"`
	Troubleshooting  []troubleshootingEntry `yaml:"troubleshooting"`
	Contacts         []contactEntry         `yaml:"contacts"`
	Emergencies      []emergencyEntry       `yaml:"emergencies"`
	NavigationGuides []navigationEntry      `yaml:"navigation_guides"`
}

// =============================================================================
// Base: loaded knowledge base
// =============================================================================

// Base is the loaded, immutable resource knowledge base.
//
// Description:
//
//	Holds every resource in deterministic category order plus lookup
//	indexes by lowercase name and by category. Names are unique across the
//	whole base, not just within a category, so exact-name resolution never
//	needs a tie-break.
//
// Thread Safety: Immutable after LoadBase; safe for concurrent use.
type Base struct {
	all        []*Resource
	byName     map[string]*Resource
	byCategory map[Category][]*Resource
	vocabulary []string
}

// All returns every resource in category declaration order. The returned
// slice is shared; callers must not mutate it.
func (b *Base) All() []*Resource {
	return b.all
}

// Len returns the number of resources in the base.
func (b *Base) Len() int {
	return len(b.all)
}

// Lookup finds a resource by name, case-insensitively.
func (b *Base) Lookup(name string) (*Resource, bool) {
	r, ok := b.byName[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// ByCategory returns the resources of one category in declaration order.
func (b *Base) ByCategory(cat Category) []*Resource {
	return b.byCategory[cat]
}

// Vocabulary returns the sorted, deduplicated lowercase words drawn from
// resource names and keywords. The spelling corrector uses this as its
// domain dictionary.
func (b *Base) Vocabulary() []string {
	return b.vocabulary
}

// =============================================================================
// Loading
// =============================================================================

// LoadBase parses and indexes a resource knowledge base from YAML bytes.
//
// Description:
//
//	Parses the YAML, assigns each entry its category and variant payload,
//	applies the default importance, and validates the single-payload
//	invariant and global name uniqueness.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes to parse.
//
// Outputs:
//
//	*Base - The indexed knowledge base. Never nil on success.
//	error - Non-nil if parsing or validation fails.
func LoadBase(ctx context.Context, data []byte) (*Base, error) {
	_, span := knowledgeTracer.Start(ctx, "knowledge.LoadBase")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadBase: empty YAML data")
	}
	if len(data) > MaxDefinitionFileSize {
		return nil, fmt.Errorf("LoadBase: YAML data exceeds maximum size (%d > %d)", len(data), MaxDefinitionFileSize)
	}

	var file resourceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("LoadBase: parsing YAML: %w", err)
	}

	var resources []Resource
	for _, e := range file.Routes {
		r := e.resource(CategoryRoute)
		spec := e.RouteSpec
		r.Route = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Infos {
		r := e.resource(CategoryInfo)
		spec := e.InfoSpec
		r.Info = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Commands {
		r := e.resource(CategoryCommand)
		spec := e.CommandSpec
		r.Command = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Widgets {
		r := e.resource(CategoryWidget)
		spec := e.WidgetSpec
		r.Widget = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Helps {
		r := e.resource(CategoryHelp)
		spec := e.HelpSpec
		r.Help = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Chats {
		r := e.resource(CategoryChat)
		spec := e.ChatSpec
		r.Chat = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Tutorials {
		r := e.resource(CategoryTutorial)
		spec := e.TutorialSpec
		r.Tutorial = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Troubleshooting {
		r := e.resource(CategoryTroubleshooting)
		spec := e.TroubleshootingSpec
		r.Troubleshooting = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Contacts {
		r := e.resource(CategoryContact)
		spec := e.ContactSpec
		r.Contact = &spec
		resources = append(resources, r)
	}
	for _, e := range file.Emergencies {
		r := e.resource(CategoryEmergency)
		spec := e.EmergencySpec
		r.Emergency = &spec
		resources = append(resources, r)
	}
	for _, e := range file.NavigationGuides {
		r := e.resource(CategoryNavigation)
		spec := e.NavigationSpec
		r.NavGuide = &spec
		resources = append(resources, r)
	}

	base := &Base{
		byName:     make(map[string]*Resource, len(resources)),
		byCategory: make(map[Category][]*Resource, len(categoryOrder)),
	}
	for i := range resources {
		r := &resources[i]
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("LoadBase: %w", err)
		}
		key := strings.ToLower(r.Name)
		if _, dup := base.byName[key]; dup {
			return nil, fmt.Errorf("LoadBase: duplicate resource name %q", r.Name)
		}
		base.byName[key] = r
		base.byCategory[r.Category] = append(base.byCategory[r.Category], r)
		base.all = append(base.all, r)
	}
	base.vocabulary = buildVocabulary(base.all)

	span.SetAttributes(
		attribute.Int("resources", len(base.all)),
		attribute.Int("vocabulary_words", len(base.vocabulary)),
	)

	slog.Info("resource knowledge base loaded",
		slog.Int("resources", len(base.all)),
		slog.Int("categories", len(base.byCategory)),
	)

	return base, nil
}

// buildVocabulary extracts the unique lowercase words of every resource name
// and keyword. Words shorter than three characters are skipped; they are too
// short for edit-distance correction to be meaningful.
func buildVocabulary(resources []*Resource) []string {
	seen := make(map[string]struct{})
	for _, r := range resources {
		for _, word := range strings.Fields(strings.ToLower(r.Name)) {
			if len(word) >= 3 {
				seen[word] = struct{}{}
			}
		}
		for _, kw := range r.Keywords {
			for _, word := range strings.Fields(strings.ToLower(kw)) {
				if len(word) >= 3 {
					seen[word] = struct{}{}
				}
			}
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// =============================================================================
// Singleton Base
// =============================================================================

var (
	baseMu      sync.RWMutex
	baseOnce    sync.Once
	cachedBase  *Base
	baseLoadErr error
)

// GetBase returns the cached resource knowledge base.
//
// Description:
//
//	Loads the embedded resource definitions on first call and caches for
//	subsequent calls. Uses sync.Once for thread-safe initialization.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*Base - The loaded knowledge base. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetBase(ctx context.Context) (*Base, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetBase: ctx must not be nil")
	}

	baseMu.RLock()
	if cachedBase != nil || baseLoadErr != nil {
		b, err := cachedBase, baseLoadErr
		baseMu.RUnlock()
		return b, err
	}
	baseMu.RUnlock()

	baseMu.Lock()
	defer baseMu.Unlock()

	if cachedBase != nil || baseLoadErr != nil {
		return cachedBase, baseLoadErr
	}

	baseOnce.Do(func() {
		cachedBase, baseLoadErr = LoadBase(ctx, defaultResourcesYAML)
	})

	return cachedBase, baseLoadErr
}

// ResetBase resets the cached knowledge base for testing.
//
// Thread Safety: Safe for concurrent use.
func ResetBase() {
	baseMu.Lock()
	defer baseMu.Unlock()
	cachedBase = nil
	baseLoadErr = nil
	baseOnce = sync.Once{}
}
