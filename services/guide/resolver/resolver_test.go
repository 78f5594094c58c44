// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/agrivar/irrigation/services/guide/knowledge"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	loader := knowledge.NewIntentLoader("")
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("loading intents: %v", err)
	}
	return New(loadBase(t), loader)
}

func TestResolve_CommandQuery(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "how do i turn on the pump", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Type != string(knowledge.CategoryCommand) {
		t.Errorf("expected command type, got %q", resp.Type)
	}
	if resp.Resource == nil || resp.Resource.Name != "pump" {
		t.Fatalf("expected pump resource, got %+v", resp.Resource)
	}
	if len(resp.Resource.Examples) == 0 {
		t.Error("expected command examples on pump resource")
	}
	if resp.SpellingCorrection != nil {
		t.Errorf("clean query should not report corrections: %+v", resp.SpellingCorrection)
	}
}

func TestResolve_SpellingCorrectedQuery(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "pum on", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Resource == nil || resp.Resource.Name != "pump" {
		t.Fatalf("expected pump resource, got %+v", resp.Resource)
	}
	if resp.CorrectedQuery != "pump on" {
		t.Errorf("expected corrected query %q, got %q", "pump on", resp.CorrectedQuery)
	}
	sc := resp.SpellingCorrection
	if sc == nil {
		t.Fatal("expected spelling correction details")
	}
	if sc.OriginalQuery != "pum on" || sc.CorrectedQuery != "pump on" {
		t.Errorf("unexpected correction: %+v", sc)
	}
	found := false
	for _, note := range sc.Corrections {
		if note == "'pum' → 'pump'" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected correction note 'pum' → 'pump', got %v", sc.Corrections)
	}
}

func TestResolve_Greeting(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "hello", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Type != TypeChat {
		t.Errorf("expected chat type, got %q", resp.Type)
	}
	if resp.ResponseType != ResultChat {
		t.Errorf("expected chat result, got %q", resp.ResponseType)
	}
	if !strings.Contains(resp.Answer, "irrigation assistant") {
		t.Errorf("unexpected greeting: %q", resp.Answer)
	}
	if resp.SpellingCorrection != nil {
		t.Errorf("greeting must not be spell-corrected: %+v", resp.SpellingCorrection)
	}
}

func TestResolve_NoMatchFallsBackToSuggestions(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "xyzzy nonsense", "alice")
	if resp.Matched {
		t.Fatalf("expected no match, got %+v", resp)
	}
	if resp.Message != notFoundMessage {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.ResponseType != ResultError {
		t.Errorf("expected error result, got %q", resp.ResponseType)
	}
	if len(resp.Suggestions) == 0 || len(resp.Suggestions) > DefaultSuggestionLimit {
		t.Errorf("expected 1..%d suggestions, got %d", DefaultSuggestionLimit, len(resp.Suggestions))
	}
}

func TestResolve_ExactIntent(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "how do i contact support", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Type != TypeIntent {
		t.Errorf("expected intent type, got %q", resp.Type)
	}
	if resp.Intent != "contact_support" {
		t.Errorf("expected contact_support intent, got %q", resp.Intent)
	}
	if resp.Category != "contact" {
		t.Errorf("expected contact category, got %q", resp.Category)
	}
	if resp.Confidence != 1.0 {
		t.Errorf("exact pattern should score 1.0, got %f", resp.Confidence)
	}
	if resp.Answer == "" {
		t.Error("expected a response text")
	}
	if len(resp.Suggestions) == 0 {
		t.Error("expected intent suggestions")
	}
}

func TestResolve_IntentConfidenceBounds(t *testing.T) {
	r := newTestResolver(t)

	// Containment scores below 1.0 but above the acceptance threshold.
	resp := r.Resolve(context.Background(), "tell me about your privacy policy please", "alice")
	if !resp.Matched || resp.Type != TypeIntent {
		t.Fatalf("expected intent match, got %+v", resp)
	}
	if resp.Confidence < IntentThreshold || resp.Confidence > 1.0 {
		t.Errorf("confidence out of range: %f", resp.Confidence)
	}
}

func TestResolve_ClearChatCommand(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "clear chat", "alice")
	if !resp.Matched || resp.Type != TypeChat {
		t.Fatalf("expected chat response, got %+v", resp)
	}
	found := false
	for _, a := range resp.Actions {
		if a.Action == "confirm_clear_chat" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected confirm_clear_chat action, got %+v", resp.Actions)
	}
}

func TestResolve_SettingsCommand(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "open settings", "alice")
	if !resp.Matched || resp.Type != TypeChat {
		t.Fatalf("expected chat response, got %+v", resp)
	}
	found := false
	for _, a := range resp.Actions {
		if a.Action == "save_settings" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected save_settings action, got %+v", resp.Actions)
	}
}

func TestResolve_EmergencyInfoCommand(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "this is urgent", "alice")
	if !resp.Matched || resp.Type != TypeChat {
		t.Fatalf("expected chat response, got %+v", resp)
	}
	if resp.Answer == "" {
		t.Error("expected emergency info text")
	}
}

func TestResolve_ContactQuery(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "contact the support team by phone", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Type != TypeContact {
		t.Errorf("expected contact type, got %q", resp.Type)
	}
	if resp.Contact == nil || len(resp.Contact.Methods) == 0 {
		t.Fatalf("expected contact methods, got %+v", resp.Contact)
	}
}

func TestResolve_EmergencyContactQuery(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "critical failure contact support", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Type != TypeEmergencyContact {
		t.Errorf("expected emergency contact type, got %q", resp.Type)
	}
	if resp.Contact == nil || resp.Contact.Title != "Emergency Support" {
		t.Fatalf("expected emergency contact sheet, got %+v", resp.Contact)
	}
}

func TestResolve_AppendsHistory(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	r.Resolve(ctx, "hello", "alice")
	r.Resolve(ctx, "how do i turn on the pump", "alice")
	r.Resolve(ctx, "xyzzy nonsense", "alice")

	entries := r.History().Recent("alice", 0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(entries))
	}
	if entries[1].Response != "Found resource: pump" {
		t.Errorf("unexpected resource history entry: %q", entries[1].Response)
	}
	if entries[2].Response != notFoundMessage {
		t.Errorf("unexpected no-match history entry: %q", entries[2].Response)
	}
}

func TestResolve_AnonymousQueriesKeepNoHistory(t *testing.T) {
	r := newTestResolver(t)

	r.Resolve(context.Background(), "hello", "")
	if n := r.History().Len(""); n != 0 {
		t.Errorf("expected no history for anonymous user, got %d entries", n)
	}
}

func TestExecuteCommand_ClearChat(t *testing.T) {
	r := newTestResolver(t)
	ctx := context.Background()

	r.Resolve(ctx, "hello", "alice")
	if r.History().Len("alice") == 0 {
		t.Fatal("expected history before clearing")
	}

	resp, ok := r.ExecuteCommand("confirm_clear_chat", "alice")
	if !ok {
		t.Fatal("expected confirm_clear_chat to be known")
	}
	if resp.Type != TypeSystem || !resp.Matched {
		t.Errorf("unexpected response: %+v", resp)
	}
	if r.History().Len("alice") != 0 {
		t.Error("history not cleared")
	}
}

func TestExecuteCommand_SaveSettings(t *testing.T) {
	r := newTestResolver(t)

	resp, ok := r.ExecuteCommand("save_settings", "alice")
	if !ok {
		t.Fatal("expected save_settings to be known")
	}
	if resp.Type != TypeSystem || resp.Answer == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestExecuteCommand_Unknown(t *testing.T) {
	r := newTestResolver(t)

	if _, ok := r.ExecuteCommand("launch_rockets", "alice"); ok {
		t.Error("unknown command must not be accepted")
	}
}

func TestResolve_RouteQuery(t *testing.T) {
	r := newTestResolver(t)

	resp := r.Resolve(context.Background(), "dashboard", "alice")
	if !resp.Matched {
		t.Fatalf("expected match, got %+v", resp)
	}
	if resp.Type != string(knowledge.CategoryRoute) {
		t.Errorf("expected route type, got %q", resp.Type)
	}
	if resp.Resource == nil || resp.Resource.URL == "" {
		t.Fatalf("expected route URL, got %+v", resp.Resource)
	}
}
