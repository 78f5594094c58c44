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
	"sort"
	"strings"

	"github.com/agrivar/irrigation/services/guide/knowledge"
)

// DefaultSuggestionLimit caps suggestion lists when the caller states no limit.
const DefaultSuggestionLimit = 5

// Scoring weights for suggestion ranking.
const (
	nameMatchWeight        = 3.0
	keywordMatchWeight     = 2.0
	partialMatchWeight     = 1.0
	descriptionMatchWeight = 0.5
	importanceWeight       = 0.1
)

// diversityFloor is how many distinct categories must appear before a
// category may repeat in the suggestion list.
const diversityFloor = 3

// Suggestion is one ranked related-resource entry.
type Suggestion struct {
	Name        string             `json:"name"`
	Score       float64            `json:"score"`
	Category    knowledge.Category `json:"category"`
	Icon        string             `json:"icon,omitempty"`
	Description string             `json:"description,omitempty"`
	URL         string             `json:"url,omitempty"`
}

// Suggest ranks resources related to a query.
//
// Description:
//
//	Every non-chat resource is scored: 3 per query word exactly in the
//	name, 2 per query word exactly in the keywords, 1 per partial word
//	overlap with a keyword, 0.5 per word shared with the description,
//	plus 0.1 times the resource importance. Only resources with a
//	positive score qualify. Selection walks the score-ordered list and
//	skips a candidate whose category already appears until at least three
//	distinct categories are in the list, so one category cannot dominate
//	while alternatives exist.
//
// Inputs:
//
//	base - The resource knowledge base. Must not be nil.
//	query - The query text; scoring is case-insensitive.
//	limit - Maximum results; non-positive means DefaultSuggestionLimit.
//
// Outputs:
//
//	[]Suggestion - At most limit entries, highest score first. Empty,
//	never nil, when nothing qualifies.
func Suggest(base *knowledge.Base, query string, limit int) []Suggestion {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	qWords := wordSet(strings.ToLower(query))

	type scored struct {
		suggestion Suggestion
		order      int
	}
	var ranked []scored

	for i, r := range base.All() {
		if r.Category == knowledge.CategoryChat {
			continue
		}
		score := scoreSuggestion(qWords, r)
		if score <= 0 {
			continue
		}
		s := Suggestion{
			Name:        r.Name,
			Score:       score,
			Category:    r.Category,
			Icon:        r.Icon,
			Description: truncate(r.Description, 100),
		}
		if r.Route != nil {
			s.URL = r.Route.Path
		}
		ranked = append(ranked, scored{suggestion: s, order: i})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].suggestion.Score != ranked[j].suggestion.Score {
			return ranked[i].suggestion.Score > ranked[j].suggestion.Score
		}
		return ranked[i].order < ranked[j].order
	})

	result := make([]Suggestion, 0, limit)
	used := make(map[knowledge.Category]struct{})
	for _, c := range ranked {
		if len(result) >= limit {
			break
		}
		if _, seen := used[c.suggestion.Category]; seen && len(used) < diversityFloor {
			continue
		}
		result = append(result, c.suggestion)
		used[c.suggestion.Category] = struct{}{}
	}
	return result
}

// scoreSuggestion computes the relevance score of one resource.
func scoreSuggestion(qWords map[string]struct{}, r *knowledge.Resource) float64 {
	nameWords := wordSet(strings.ToLower(r.Name))
	keywordWords := make(map[string]struct{})
	for _, kw := range r.Keywords {
		keywordWords[strings.ToLower(kw)] = struct{}{}
	}

	score := 0.0
	for w := range qWords {
		if _, ok := nameWords[w]; ok {
			score += nameMatchWeight
		}
		if _, ok := keywordWords[w]; ok {
			score += keywordMatchWeight
		}
	}
	for q := range qWords {
		for k := range keywordWords {
			if strings.Contains(k, q) || strings.Contains(q, k) {
				score += partialMatchWeight
			}
		}
	}
	for w := range wordSet(strings.ToLower(r.Description)) {
		if _, ok := qWords[w]; ok {
			score += descriptionMatchWeight
		}
	}
	score += float64(r.Importance) * importanceWeight
	return score
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
