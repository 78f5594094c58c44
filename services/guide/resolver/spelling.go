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
	"fmt"
	"strings"
	"unicode"
)

// maxEditDistance is the largest edit distance the speller will bridge when
// snapping an unknown token to a domain term.
const maxEditDistance = 2

// minCorrectableLen exempts one- and two-letter tokens from edit-distance
// correction. Function words like "on" or "i" sit within two edits of real
// domain terms and must pass through untouched.
const minCorrectableLen = 3

// commonMisspellings maps known bad spellings to their canonical terms.
// Checked before edit distance, so an entry here always wins.
var commonMisspellings = map[string]string{
	"pum":          "pump",
	"valv":         "valve",
	"irigation":    "irrigation",
	"moistre":      "moisture",
	"scedule":      "schedule",
	"dashbord":     "dashboard",
	"controll":     "control",
	"emergancy":    "emergency",
	"threshhold":   "threshold",
	"analitics":    "analytics",
	"manualy":      "manually",
	"automaticaly": "automatically",
	"nozle":        "nozzle",
	"sprinkeler":   "sprinkler",
	"preassure":    "pressure",
	"temprature":   "temperature",
	"humidty":      "humidity",
	"forcast":      "forecast",
}

// coreTerms is the hand-picked irrigation vocabulary that the knowledge base
// may not cover (verbs, component names, troubleshooting words).
var coreTerms = []string{
	"pump", "valve", "water", "irrigation", "system",
	"schedule", "zone", "moisture", "sensor", "dashboard",
	"control", "emergency", "stop", "settings", "analytics",
	"status", "threshold", "manual", "automatic", "help",
	"pressure", "flow", "timer", "sprinkler", "pipe",
	"nozzle", "filter", "pipeline", "drip", "spray",
	"weather", "rain", "forecast", "humidity", "temperature",
	"start", "open", "close", "activate",
	"deactivate", "set", "change", "adjust", "check",
	"view", "show", "display", "monitor", "test",
	"problem", "issue", "error", "fix", "repair",
	"broken", "leak", "clog", "blockage", "malfunction",
}

// conversationalTerms protects everyday phrasing from correction. Without
// them "hello" would snap to "help" and never reach the greeting check.
var conversationalTerms = []string{
	"hello", "hey", "greetings", "good", "morning", "afternoon",
	"thank", "thanks", "appreciate", "grateful",
	"bye", "goodbye", "see", "you", "farewell",
	"please", "what", "where", "when", "why", "how", "can", "the",
	"turn", "off", "for", "with", "about", "want", "need",
}

// Speller snaps misspelled query tokens onto the irrigation vocabulary.
//
// Description:
//
//	Correction is two-tiered. A fixed misspelling map is consulted first;
//	tokens it misses are compared against the domain vocabulary by edit
//	distance and snapped to the closest term within maxEditDistance.
//	Tokens already in the vocabulary are never touched, which also makes
//	correction idempotent.
//
// Thread Safety: Immutable after NewSpeller; safe for concurrent use.
type Speller struct {
	terms   map[string]struct{}
	ordered []string
}

// NewSpeller builds a speller over the core vocabulary plus extraTerms
// (typically the knowledge base's name/keyword words).
func NewSpeller(extraTerms []string) *Speller {
	s := &Speller{terms: make(map[string]struct{}, len(coreTerms)+len(extraTerms))}
	for _, t := range coreTerms {
		s.add(t)
	}
	for _, t := range conversationalTerms {
		s.add(t)
	}
	for _, t := range extraTerms {
		s.add(strings.ToLower(t))
	}
	return s
}

func (s *Speller) add(term string) {
	if _, ok := s.terms[term]; ok {
		return
	}
	s.terms[term] = struct{}{}
	s.ordered = append(s.ordered, term)
}

// Correct rewrites misspelled tokens and reports what changed.
//
// Inputs:
//
//	query - The raw query text.
//
// Outputs:
//
//	string - The corrected query, tokens joined by single spaces.
//	[]string - Human-readable correction notes such as "'pum' → 'pump'".
//	Nil when nothing changed.
func (s *Speller) Correct(query string) (string, []string) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return "", nil
	}

	corrected := make([]string, 0, len(words))
	var notes []string

	for _, word := range words {
		lower := strings.ToLower(word)

		if fix, ok := commonMisspellings[lower]; ok {
			if isCapitalized(word) {
				fix = capitalize(fix)
			}
			corrected = append(corrected, fix)
			notes = append(notes, fmt.Sprintf("'%s' → '%s'", word, fix))
			continue
		}

		if _, known := s.terms[lower]; !known && len([]rune(lower)) >= minCorrectableLen {
			if fix, ok := s.closest(lower); ok {
				if !isAllLower(word) {
					fix = capitalize(fix)
				}
				corrected = append(corrected, fix)
				notes = append(notes, fmt.Sprintf("'%s' → '%s'", word, fix))
				continue
			}
		}

		corrected = append(corrected, word)
	}

	return strings.Join(corrected, " "), notes
}

// closest returns the vocabulary term nearest to word, if any lies within
// maxEditDistance. Earlier vocabulary entries win ties.
func (s *Speller) closest(word string) (string, bool) {
	best := ""
	bestDist := maxEditDistance + 1
	for _, term := range s.ordered {
		if d := levenshtein(word, term); d < bestDist {
			bestDist = d
			best = term
		}
	}
	return best, best != ""
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func isCapitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

func isAllLower(word string) bool {
	return word == strings.ToLower(word)
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	r := []rune(word)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
