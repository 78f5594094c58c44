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
	"testing"

	"github.com/agrivar/irrigation/services/guide/knowledge"
)

func TestSuggest_LimitRespected(t *testing.T) {
	base := loadBase(t)

	for _, limit := range []int{1, 3, 5, 10} {
		got := Suggest(base, "water pump control", limit)
		if len(got) > limit {
			t.Errorf("limit %d: got %d suggestions", limit, len(got))
		}
	}

	// Non-positive limit falls back to the default.
	got := Suggest(base, "water pump control", 0)
	if len(got) > DefaultSuggestionLimit {
		t.Errorf("default limit: got %d suggestions", len(got))
	}
}

func TestSuggest_SortedByScore(t *testing.T) {
	base := loadBase(t)

	got := Suggest(base, "pump water irrigation", DefaultSuggestionLimit)
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("suggestions not sorted: %f before %f", got[i-1].Score, got[i].Score)
		}
	}
}

func TestSuggest_RelevantFirst(t *testing.T) {
	base := loadBase(t)

	got := Suggest(base, "pump", DefaultSuggestionLimit)
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	if got[0].Name != "pump" {
		t.Errorf("expected pump first for query 'pump', got %q", got[0].Name)
	}
}

func TestSuggest_CategoryDiversity(t *testing.T) {
	base := loadBase(t)

	got := Suggest(base, "irrigation system water", DefaultSuggestionLimit)

	counts := make(map[knowledge.Category]int)
	distinct := 0
	for _, s := range got {
		if counts[s.Category] == 0 {
			distinct++
		} else if distinct < diversityFloor {
			t.Errorf("category %q repeated before %d distinct categories were used",
				s.Category, diversityFloor)
		}
		counts[s.Category]++
	}
}

func TestSuggest_NoChatResources(t *testing.T) {
	base := loadBase(t)

	// Chat templates must never surface as suggestions, even for queries
	// aimed straight at them.
	got := Suggest(base, "greeting goodbye thanks chat", 20)
	for _, s := range got {
		if s.Category == knowledge.CategoryChat {
			t.Errorf("chat resource %q surfaced as suggestion", s.Name)
		}
	}
}

func TestSuggest_NonsenseStillSuggests(t *testing.T) {
	base := loadBase(t)

	// Importance keeps every resource above zero, so even a nonsense
	// query yields a full diversity-ranked list.
	got := Suggest(base, "xyzzy nonsense", DefaultSuggestionLimit)
	if len(got) != DefaultSuggestionLimit {
		t.Errorf("expected %d suggestions, got %d", DefaultSuggestionLimit, len(got))
	}
}

func TestSuggest_RouteCarriesURL(t *testing.T) {
	base := loadBase(t)

	got := Suggest(base, "dashboard", DefaultSuggestionLimit)
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	foundRoute := false
	for _, s := range got {
		if s.Category == knowledge.CategoryRoute {
			foundRoute = true
			if s.URL == "" {
				t.Errorf("route suggestion %q missing URL", s.Name)
			}
		}
	}
	if !foundRoute {
		t.Error("expected at least one route suggestion for 'dashboard'")
	}
}

func TestSuggest_DescriptionTruncated(t *testing.T) {
	base := loadBase(t)

	for _, s := range Suggest(base, "irrigation", 20) {
		if len(s.Description) > 103 {
			t.Errorf("description of %q not truncated: %d bytes", s.Name, len(s.Description))
		}
	}
}
