// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge holds the static resource knowledge base and the
// reloadable intent set that back the irrigation guide assistant.
//
// Resources are defined once in an embedded YAML document and never change
// at runtime. Intents are loaded from per-category JSON files and can be
// replaced wholesale by an administrative reload.
package knowledge

import "fmt"

// =============================================================================
// Categories
// =============================================================================

// Category identifies the kind of knowledge-base resource. The set is closed;
// matching iterates categories in the declaration order below, and that order
// is load-bearing for tie-breaking (first match wins).
type Category string

const (
	CategoryRoute           Category = "route"
	CategoryInfo            Category = "info"
	CategoryCommand         Category = "command"
	CategoryWidget          Category = "widget"
	CategoryHelp            Category = "help"
	CategoryChat            Category = "chat"
	CategoryTutorial        Category = "tutorial"
	CategoryTroubleshooting Category = "troubleshooting"
	CategoryContact         Category = "contact"
	CategoryEmergency       Category = "emergency"
	CategoryNavigation      Category = "navigation"
)

// categoryOrder is the canonical iteration order for all matching passes.
var categoryOrder = []Category{
	CategoryRoute,
	CategoryInfo,
	CategoryCommand,
	CategoryWidget,
	CategoryHelp,
	CategoryChat,
	CategoryTutorial,
	CategoryTroubleshooting,
	CategoryContact,
	CategoryEmergency,
	CategoryNavigation,
}

// Categories returns the fixed category iteration order. The returned slice
// is shared; callers must not mutate it.
func Categories() []Category {
	return categoryOrder
}

// Valid reports whether c is one of the closed category values.
func (c Category) Valid() bool {
	for _, known := range categoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

// =============================================================================
// Resource: closed tagged-variant type
// =============================================================================

// DefaultImportance is the mid-range rank assigned when a resource definition
// omits an explicit importance.
const DefaultImportance = 5

// Resource is an immutable knowledge-base entry.
//
// Description:
//
//	Every resource carries the shared base contract (name, description,
//	keywords, icon, importance) plus exactly one category-specific payload
//	matching its Category tag. The payload pointers for all other
//	categories are nil. Resources are constructed once at load time and
//	never mutated afterwards.
//
// Thread Safety: Immutable after load; safe for concurrent use.
type Resource struct {
	// Name is unique within the resource's category.
	Name string `json:"name"`

	// Category is the variant tag; selects which payload pointer is set.
	Category Category `json:"category"`

	// Description is the human-readable summary used for matching and display.
	Description string `json:"description"`

	// Keywords are the match vocabulary for this resource.
	Keywords []string `json:"keywords,omitempty"`

	// Icon is a display hint, opaque to matching.
	Icon string `json:"icon,omitempty"`

	// Importance ranks the resource for suggestion scoring (default 5).
	Importance int `json:"importance"`

	// Navigation tells the user how to reach the feature in the UI.
	Navigation string `json:"navigation_instructions,omitempty"`

	// Variant payloads. Exactly one is non-nil, matching Category.
	Route           *RouteSpec           `json:"route,omitempty"`
	Info            *InfoSpec            `json:"info,omitempty"`
	Command         *CommandSpec         `json:"command,omitempty"`
	Widget          *WidgetSpec          `json:"widget,omitempty"`
	Help            *HelpSpec            `json:"help,omitempty"`
	Chat            *ChatSpec            `json:"chat,omitempty"`
	Tutorial        *TutorialSpec        `json:"tutorial,omitempty"`
	Troubleshooting *TroubleshootingSpec `json:"troubleshooting,omitempty"`
	Contact         *ContactSpec         `json:"contact,omitempty"`
	Emergency       *EmergencySpec       `json:"emergency,omitempty"`
	NavGuide        *NavigationSpec      `json:"navigation,omitempty"`
}

// validate checks the single-payload invariant and base fields.
func (r *Resource) validate() error {
	if r.Name == "" {
		return fmt.Errorf("resource with empty name in category %q", r.Category)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("resource %q: unknown category %q", r.Name, r.Category)
	}
	count := 0
	for _, p := range []bool{
		r.Route != nil, r.Info != nil, r.Command != nil, r.Widget != nil,
		r.Help != nil, r.Chat != nil, r.Tutorial != nil,
		r.Troubleshooting != nil, r.Contact != nil, r.Emergency != nil,
		r.NavGuide != nil,
	} {
		if p {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("resource %q: expected exactly one variant payload, found %d", r.Name, count)
	}
	return nil
}

// =============================================================================
// Variant payloads
// =============================================================================

// RouteSpec describes a navigable application page. Route paths are resolved
// eagerly from the static route table in the YAML definition.
type RouteSpec struct {
	// Path is the URL path of the page.
	Path string `yaml:"path" json:"path"`
}

// InfoSpec is a static informational page.
type InfoSpec struct {
	Content  string            `yaml:"content" json:"content,omitempty"`
	Sections map[string]string `yaml:"sections" json:"sections,omitempty"`
}

// Parameter describes a single command parameter.
type Parameter struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
	Required    bool   `yaml:"required" json:"required"`
}

// CommandSpec describes a system control command the assistant can explain.
type CommandSpec struct {
	Parameters []Parameter `yaml:"parameters" json:"parameters,omitempty"`

	// Examples are canned phrasings shown as usage examples.
	Examples []string `yaml:"examples" json:"examples,omitempty"`

	SafetyNote    string `yaml:"safety_note" json:"safety_note,omitempty"`
	SafetyWarning string `yaml:"safety_warning" json:"safety_warning,omitempty"`

	// ConfirmationRequired marks commands the UI must confirm before running.
	ConfirmationRequired bool `yaml:"confirmation_required" json:"confirmation_required,omitempty"`
}

// WidgetSpec describes a dashboard monitoring widget.
type WidgetSpec struct {
	Unit        string            `yaml:"unit" json:"unit,omitempty"`
	NormalRange string            `yaml:"normal_range" json:"normal_range,omitempty"`
	States      map[string]string `yaml:"states" json:"states,omitempty"`
	Columns     []string          `yaml:"columns" json:"columns,omitempty"`
}

// QA is a single frequently-asked question with its answer.
type QA struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// HelpSpec is a help or documentation resource.
type HelpSpec struct {
	URL       string `yaml:"url" json:"url,omitempty"`
	Content   string `yaml:"content" json:"content,omitempty"`
	Questions []QA   `yaml:"questions" json:"questions,omitempty"`
}

// ChatAction is a clickable follow-up the UI renders under a chat reply.
type ChatAction struct {
	Text    string `yaml:"text" json:"text"`
	Action  string `yaml:"action" json:"action,omitempty"`
	Command string `yaml:"command" json:"command,omitempty"`
	Style   string `yaml:"style" json:"style,omitempty"`
}

// ChatSpec is a canned conversational reply template.
type ChatSpec struct {
	Response    string       `yaml:"response" json:"response"`
	FollowUp    string       `yaml:"follow_up" json:"follow_up,omitempty"`
	Suggestions []string     `yaml:"suggestions" json:"suggestions,omitempty"`
	Actions     []ChatAction `yaml:"actions" json:"actions,omitempty"`
}

// TutorialStep is one step of an interactive tutorial.
type TutorialStep struct {
	Title   string `yaml:"title" json:"title"`
	Content string `yaml:"content" json:"content"`
}

// TutorialSpec is a step-by-step guide.
type TutorialSpec struct {
	Title         string         `yaml:"title" json:"title"`
	Steps         []TutorialStep `yaml:"steps" json:"steps"`
	EstimatedTime string         `yaml:"estimated_time" json:"estimated_time,omitempty"`
	Difficulty    string         `yaml:"difficulty" json:"difficulty,omitempty"`
}

// TroubleshootingSpec is an ordered remediation guide for a known issue.
type TroubleshootingSpec struct {
	Title string `yaml:"title" json:"title"`

	// Symptoms help the user confirm they are looking at the right guide.
	Symptoms []string `yaml:"symptoms" json:"symptoms,omitempty"`

	// Steps are the ordered remediation actions.
	Steps []string `yaml:"steps" json:"steps"`

	// Urgent marks guides that should escalate to emergency procedures.
	Urgent bool `yaml:"urgent" json:"urgent,omitempty"`
}

// ContactMethod is a single way to reach support.
type ContactMethod struct {
	Type    string `yaml:"type" json:"type"`
	Label   string `yaml:"label" json:"label"`
	Value   string `yaml:"value" json:"value"`
	Icon    string `yaml:"icon" json:"icon,omitempty"`
	Action  string `yaml:"action" json:"action,omitempty"`
	Details string `yaml:"details" json:"details,omitempty"`
}

// SocialLink is a social-media presence entry.
type SocialLink struct {
	Platform string `yaml:"platform" json:"platform"`
	URL      string `yaml:"url" json:"url"`
	Icon     string `yaml:"icon" json:"icon,omitempty"`
	Label    string `yaml:"label" json:"label,omitempty"`
}

// ContactSpec is the support contact sheet.
type ContactSpec struct {
	Title       string          `yaml:"title" json:"title"`
	Methods     []ContactMethod `yaml:"methods" json:"methods,omitempty"`
	SocialMedia []SocialLink    `yaml:"social_media" json:"social_media,omitempty"`
}

// Procedure is one emergency procedure with ordered steps.
type Procedure struct {
	Title        string   `yaml:"title" json:"title"`
	Urgency      string   `yaml:"urgency" json:"urgency"`
	Steps        []string `yaml:"steps" json:"steps"`
	HeaderAction string   `yaml:"header_action" json:"header_action,omitempty"`
}

// EmergencySpec is the set of emergency procedures.
type EmergencySpec struct {
	Title      string      `yaml:"title" json:"title"`
	Procedures []Procedure `yaml:"procedures" json:"procedures"`
}

// NavigationSpec is a UI navigation walkthrough.
type NavigationSpec struct {
	Title string   `yaml:"title" json:"title"`
	Steps []string `yaml:"steps" json:"steps"`
}
