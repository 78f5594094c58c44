// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver turns free-text irrigation questions into structured
// answers. Resolution is a fixed pipeline over immutable knowledge-base
// data: intent match, special commands, spelling correction, conversational
// phrases, contact detection, then fuzzy resource matching with ranked
// suggestions as the fallback.
package resolver

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/agrivar/irrigation/services/guide/knowledge"
)

var resolverTracer = otel.Tracer("agrivar.guide.resolver")

// Response type discriminators.
const (
	TypeIntent           = "json_intent"
	TypeChat             = "chat"
	TypeSystem           = "system"
	TypeContact          = "contact"
	TypeEmergencyContact = "emergency_contact"
)

// Response result kinds.
const (
	ResultSuccess = "success"
	ResultChat    = "chat"
	ResultError   = "error"
)

const notFoundMessage = "I couldn't find an exact match for your query. Try being more specific or ask about:"

const internalErrorMessage = "I encountered an error processing your request. Please try again or contact support if the issue persists."

// SpellingCorrection reports how the speller rewrote a query.
type SpellingCorrection struct {
	OriginalQuery  string   `json:"original_query"`
	CorrectedQuery string   `json:"corrected_query"`
	Corrections    []string `json:"corrections"`
}

// ResourceView is the resource portion of a resolved response.
type ResourceView struct {
	Name          string             `json:"name"`
	Category      knowledge.Category `json:"category"`
	Description   string             `json:"description"`
	Icon          string             `json:"icon,omitempty"`
	Navigation    string             `json:"navigation_instructions,omitempty"`
	URL           string             `json:"url,omitempty"`
	Importance    int                `json:"importance,omitempty"`
	Examples      []string           `json:"examples,omitempty"`
	SafetyNote    string             `json:"safety_note,omitempty"`
	SafetyWarning string             `json:"safety_warning,omitempty"`
}

// ContactView is the support contact payload.
type ContactView struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Methods     []knowledge.ContactMethod `json:"methods"`
	SocialMedia []knowledge.SocialLink    `json:"social_media,omitempty"`
	Navigation  string                    `json:"navigation_instructions,omitempty"`
}

// Response is the result of one resolution call.
//
// Description:
//
//	Matched with Type distinguishes the terminal pipeline stage: an
//	intent answer, a canned chat reply, a contact payload, or a resolved
//	resource (Type is then the resource category). When Matched is false
//	the Message and Suggestions fields carry the fallback answer.
type Response struct {
	Matched      bool    `json:"matched"`
	Type         string  `json:"type,omitempty"`
	Query        string  `json:"query,omitempty"`
	Answer       string  `json:"response,omitempty"`
	Message      string  `json:"message,omitempty"`
	Intent       string  `json:"intent,omitempty"`
	Category     string  `json:"category,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	ResponseType string  `json:"response_type,omitempty"`

	Resource    *ResourceView          `json:"resource,omitempty"`
	Contact     *ContactView           `json:"contact_info,omitempty"`
	Suggestions []Suggestion           `json:"suggestions,omitempty"`
	Actions     []knowledge.ChatAction `json:"actions,omitempty"`
	FollowUp    string                 `json:"follow_up,omitempty"`

	CorrectedQuery     string              `json:"corrected_query,omitempty"`
	SpellingCorrection *SpellingCorrection `json:"spelling_correction,omitempty"`
}

// Resolver answers irrigation help queries.
//
// Description:
//
//	Holds the immutable resource base, the reloadable intent loader, the
//	speller, and the per-user conversation history. All matching state is
//	read-only; the history store is the only mutable member and carries
//	its own lock.
//
// Thread Safety: Safe for concurrent use.
type Resolver struct {
	base    *knowledge.Base
	intents *knowledge.IntentLoader
	speller *Speller
	history *History
}

// New creates a resolver over the given knowledge base and intent loader.
func New(base *knowledge.Base, intents *knowledge.IntentLoader) *Resolver {
	return &Resolver{
		base:    base,
		intents: intents,
		speller: NewSpeller(base.Vocabulary()),
		history: NewHistory(),
	}
}

// History exposes the conversation history store.
func (r *Resolver) History() *History {
	return r.history
}

// Base exposes the resource knowledge base.
func (r *Resolver) Base() *knowledge.Base {
	return r.base
}

// Resolve answers one query.
//
// Description:
//
//	Runs the dispatch pipeline and returns the first terminal answer.
//	Every call appends to the user's conversation history when userID is
//	non-empty. Any panic in the pipeline is recovered and converted to a
//	generic error response; Resolve never propagates a failure.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	query - The raw user query.
//	userID - Optional user identifier for history tracking; may be empty.
//
// Outputs:
//
//	Response - The assembled answer. Never a zero value.
func (r *Resolver) Resolve(ctx context.Context, query, userID string) (resp Response) {
	_, span := resolverTracer.Start(ctx, "resolver.Resolve",
		oteltrace.WithAttributes(attribute.Int("query_length", len(query))),
	)
	defer span.End()
	start := time.Now()

	stage := "error"
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic during query resolution",
				slog.Any("panic", rec),
				slog.String("query", query),
			)
			resp = errorResponse()
			stage = "error"
		}
		span.SetAttributes(
			attribute.String("stage", stage),
			attribute.Bool("matched", resp.Matched),
		)
		recordResolution(stage, time.Since(start).Seconds())
	}()

	resp, stage = r.dispatch(query, userID)
	return resp
}

// dispatch runs the pipeline stages in order and reports the terminal stage
// name for metrics.
func (r *Resolver) dispatch(query, userID string) (Response, string) {
	// Stage 1: structured intent match, bypasses everything else.
	if match, ok := MatchIntent(r.intents.Snapshot(), query); ok {
		resp := r.intentResponse(query, match)
		r.history.Append(userID, query, resp.Answer)
		intentMatchScore.Observe(match.Score)
		return resp, "intent"
	}

	// Stage 2: special commands on the raw query.
	if resp, ok := r.checkSpecialCommands(query); ok {
		r.history.Append(userID, query, resp.Answer)
		return resp, "special_command"
	}

	// Stage 3: spelling correction for the rest of the pipeline.
	corrected, notes := r.speller.Correct(query)
	misspelled := !strings.EqualFold(corrected, query)
	if misspelled {
		spellingCorrectionsTotal.Inc()
	}
	correction := func(resp Response) Response {
		if misspelled {
			resp.SpellingCorrection = &SpellingCorrection{
				OriginalQuery:  query,
				CorrectedQuery: corrected,
				Corrections:    notes,
			}
		}
		return resp
	}

	// Stage 4: conversational phrases.
	if resp, ok := r.checkConversationalPhrases(corrected); ok {
		r.history.Append(userID, query, resp.Answer)
		return correction(resp), "conversational"
	}

	// Stage 5: contact and emergency queries.
	if resp, stage, ok := r.checkContactKeywords(corrected); ok {
		r.history.Append(userID, query, "Provided contact information")
		return correction(resp), stage
	}

	// Stage 6: fuzzy resource resolution.
	resource, ok := MatchResource(r.base, corrected)
	if !ok {
		resp := Response{
			Matched:      false,
			Message:      notFoundMessage,
			Suggestions:  Suggest(r.base, corrected, DefaultSuggestionLimit),
			ResponseType: ResultError,
		}
		r.history.Append(userID, query, notFoundMessage)
		return correction(resp), "no_match"
	}

	// Stage 7: full resource response.
	resp := r.resourceResponse(query, corrected, misspelled, resource)
	r.history.Append(userID, query, "Found resource: "+resource.Name)
	return correction(resp), "resource"
}

// intentResponse builds the answer for an accepted intent match.
func (r *Resolver) intentResponse(query string, match IntentMatch) Response {
	suggestions := make([]Suggestion, 0, len(match.Intent.Suggestions))
	for _, s := range match.Intent.Suggestions {
		suggestions = append(suggestions, Suggestion{Name: s})
	}
	return Response{
		Matched:      true,
		Type:         TypeIntent,
		Query:        query,
		Answer:       pickResponse(match.Intent.Responses),
		Intent:       match.Intent.Tag,
		Category:     match.Category,
		Confidence:   match.Score,
		ResponseType: ResultSuccess,
		Suggestions:  suggestions,
	}
}

// resourceResponse builds the answer for a resolved resource.
func (r *Resolver) resourceResponse(query, corrected string, misspelled bool, res *knowledge.Resource) Response {
	view := &ResourceView{
		Name:        res.Name,
		Category:    res.Category,
		Description: res.Description,
		Icon:        res.Icon,
		Navigation:  res.Navigation,
	}
	switch {
	case res.Route != nil:
		view.URL = res.Route.Path
		view.Importance = res.Importance
	case res.Command != nil:
		view.Examples = res.Command.Examples
		view.SafetyNote = res.Command.SafetyNote
		view.SafetyWarning = res.Command.SafetyWarning
	}

	resp := Response{
		Matched:      true,
		Type:         string(res.Category),
		Query:        query,
		Resource:     view,
		Suggestions:  Suggest(r.base, corrected, DefaultSuggestionLimit),
		ResponseType: ResultSuccess,
	}
	if misspelled {
		resp.CorrectedQuery = corrected
	}
	return resp
}

// =============================================================================
// Special Commands and Conversational Phrases
// =============================================================================

var (
	clearChatPhrases = []string{"clear chat", "delete history", "reset conversation"}
	settingsPhrases  = []string{"settings", "preferences", "options"}
	emergencyPhrases = []string{"emergency", "urgent", "help now"}

	greetingWords = []string{"hello", "hi", "hey", "greetings", "good morning", "good afternoon"}
	thanksWords   = []string{"thank", "thanks", "appreciate", "grateful"}
	goodbyeWords  = []string{"bye", "goodbye", "see you", "farewell"}

	contactKeywords = []string{"contact", "support", "help", "call", "email", "phone", "emergency"}
	urgentKeywords  = []string{"emergency", "urgent", "critical"}
)

func containsAny(query string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(query, p) {
			return true
		}
	}
	return false
}

// checkSpecialCommands handles fixed system phrases: clearing history,
// settings, and emergency info.
func (r *Resolver) checkSpecialCommands(query string) (Response, bool) {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, clearChatPhrases):
		return r.chatResponse("clear_chat_confirmation")
	case containsAny(q, settingsPhrases):
		return r.chatResponse("settings_info")
	case containsAny(q, emergencyPhrases):
		return r.chatResponse("emergency_info")
	}
	return Response{}, false
}

// checkConversationalPhrases handles greetings, thanks, and goodbyes.
func (r *Resolver) checkConversationalPhrases(query string) (Response, bool) {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, greetingWords):
		return r.chatResponse("greeting")
	case containsAny(q, thanksWords):
		return r.chatResponse("thanks")
	case containsAny(q, goodbyeWords):
		return r.chatResponse("goodbye")
	}
	return Response{}, false
}

// checkContactKeywords handles contact and emergency-contact queries.
func (r *Resolver) checkContactKeywords(query string) (Response, string, bool) {
	q := strings.ToLower(query)
	if !containsAny(q, contactKeywords) {
		return Response{}, "", false
	}
	if containsAny(q, urgentKeywords) {
		return r.emergencyContactResponse(), "emergency", true
	}
	return r.contactResponse(), "contact", true
}

// chatResponse formats a canned chat reply from the knowledge base.
func (r *Resolver) chatResponse(name string) (Response, bool) {
	res, ok := r.base.Lookup(name)
	if !ok || res.Chat == nil {
		return Response{}, false
	}

	suggestions := make([]Suggestion, 0, len(res.Chat.Suggestions))
	for _, s := range res.Chat.Suggestions {
		suggestions = append(suggestions, Suggestion{Name: s})
	}
	return Response{
		Matched:      true,
		Type:         TypeChat,
		Answer:       res.Chat.Response,
		ResponseType: ResultChat,
		Suggestions:  suggestions,
		Actions:      res.Chat.Actions,
		FollowUp:     res.Chat.FollowUp,
	}, true
}

// contactResponse assembles the support contact sheet.
func (r *Resolver) contactResponse() Response {
	resp := Response{
		Matched:      true,
		Type:         TypeContact,
		ResponseType: ResultSuccess,
	}
	if res, ok := r.base.Lookup("contact"); ok && res.Contact != nil {
		resp.Contact = &ContactView{
			Title:       res.Contact.Title,
			Description: res.Description,
			Methods:     res.Contact.Methods,
			SocialMedia: res.Contact.SocialMedia,
			Navigation:  res.Navigation,
		}
	}
	return resp
}

// emergencyContactResponse assembles the urgent-support variant of the
// contact sheet, folding in the emergency procedures resource.
func (r *Resolver) emergencyContactResponse() Response {
	resp := Response{
		Matched:      true,
		Type:         TypeEmergencyContact,
		ResponseType: ResultSuccess,
	}
	if res, ok := r.base.Lookup("contact"); ok && res.Contact != nil {
		resp.Contact = &ContactView{
			Title:       "Emergency Support",
			Description: "Immediate assistance for critical irrigation system issues",
			Methods:     res.Contact.Methods,
			Navigation:  "Use the red emergency button in the header for immediate assistance",
		}
	}
	return resp
}

// =============================================================================
// Special Command Execution
// =============================================================================

// ExecuteCommand runs a confirmed UI action such as clearing chat history.
//
// Inputs:
//
//	command - The action identifier from a ChatAction.
//	userID - The acting user; required for history actions.
//
// Outputs:
//
//	Response - The action result.
//	bool - Whether the command is known.
func (r *Resolver) ExecuteCommand(command, userID string) (Response, bool) {
	switch command {
	case "confirm_clear_chat":
		r.history.Clear(userID)
		return Response{
			Matched:      true,
			Type:         TypeSystem,
			Answer:       "Chat history has been cleared successfully.",
			ResponseType: ResultSuccess,
		}, true
	case "save_settings":
		return Response{
			Matched:      true,
			Type:         TypeSystem,
			Answer:       "Your settings have been saved successfully.",
			ResponseType: ResultSuccess,
		}, true
	}
	return Response{}, false
}

func errorResponse() Response {
	return Response{
		Matched:      false,
		Message:      internalErrorMessage,
		Suggestions:  []Suggestion{},
		ResponseType: ResultError,
	}
}

// pickResponse chooses one reply at random.
func pickResponse(responses []string) string {
	if len(responses) == 0 {
		return "I'm here to help!"
	}
	return responses[rand.IntN(len(responses))]
}
