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
)

func TestSpeller_MisspellingMap(t *testing.T) {
	s := NewSpeller(nil)

	corrected, notes := s.Correct("pum on")
	if corrected != "pump on" {
		t.Errorf("expected 'pump on', got %q", corrected)
	}
	if len(notes) != 1 || notes[0] != "'pum' → 'pump'" {
		t.Errorf("expected correction note 'pum' → 'pump', got %v", notes)
	}
}

func TestSpeller_CapitalizationPreserved(t *testing.T) {
	s := NewSpeller(nil)

	corrected, _ := s.Correct("Pum status")
	if corrected != "Pump status" {
		t.Errorf("expected 'Pump status', got %q", corrected)
	}
}

func TestSpeller_EditDistance(t *testing.T) {
	s := NewSpeller(nil)

	cases := map[string]string{
		"moistur levels": "moisture levels",
		"shedule":        "schedule",
		"vallve":         "valve",
	}
	for in, want := range cases {
		got, notes := s.Correct(in)
		if got != want {
			t.Errorf("Correct(%q) = %q, want %q", in, got, want)
		}
		if len(notes) == 0 {
			t.Errorf("Correct(%q): expected correction notes", in)
		}
	}
}

func TestSpeller_KnownTermsUntouched(t *testing.T) {
	s := NewSpeller(nil)

	for _, q := range []string{
		"pump",
		"turn on the pump",
		"hello",
		"set threshold to 40",
	} {
		got, notes := s.Correct(q)
		if got != q {
			t.Errorf("Correct(%q) = %q, expected unchanged", q, got)
		}
		if notes != nil {
			t.Errorf("Correct(%q): unexpected notes %v", q, notes)
		}
	}
}

func TestSpeller_ShortTokensSkipped(t *testing.T) {
	s := NewSpeller(nil)

	got, _ := s.Correct("i am on it")
	if got != "i am on it" {
		t.Errorf("expected short tokens untouched, got %q", got)
	}
}

func TestSpeller_Idempotent(t *testing.T) {
	s := NewSpeller([]string{"dashboard", "analytics"})

	queries := []string{
		"pum on",
		"emergancy stop",
		"show me the dashbord",
		"check moistre levels",
	}
	for _, q := range queries {
		once, _ := s.Correct(q)
		twice, notes := s.Correct(once)
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", q, once, twice)
		}
		if notes != nil {
			t.Errorf("second pass of %q produced notes %v", q, notes)
		}
	}
}

func TestSpeller_EmptyQuery(t *testing.T) {
	s := NewSpeller(nil)

	got, notes := s.Correct("")
	if got != "" || notes != nil {
		t.Errorf("expected empty output, got %q %v", got, notes)
	}
	got, notes = s.Correct("   ")
	if got != "" || notes != nil {
		t.Errorf("expected empty output for whitespace, got %q %v", got, notes)
	}
}

func TestSpeller_ExtraTermsExtendVocabulary(t *testing.T) {
	s := NewSpeller([]string{"fertigation"})

	got, _ := s.Correct("fertigation")
	if got != "fertigation" {
		t.Errorf("expected extra term to be known, got %q", got)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"pump", "pump", 0},
		{"pum", "pump", 1},
		{"valv", "valve", 1},
		{"threshhold", "threshold", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
	// Symmetry.
	if levenshtein("pump", "pum") != levenshtein("pum", "pump") {
		t.Error("expected levenshtein to be symmetric")
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	pairs := [][2]string{
		{"pump", "pump"},
		{"pump", "valve"},
		{"dashboard", "dash"},
		{"", ""},
	}
	for _, p := range pairs {
		r := similarity(p[0], p[1])
		if r < 0 || r > 1 {
			t.Errorf("similarity(%q, %q) = %f out of [0,1]", p[0], p[1], r)
		}
	}
	if similarity("pump", "pump") != 1 {
		t.Error("expected identical strings to score 1")
	}
}
