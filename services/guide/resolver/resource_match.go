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

const (
	// fuzzyNameCutoff is the minimum similarity ratio for the final
	// closest-name pass.
	fuzzyNameCutoff = 0.5

	// fuzzyNameCandidates bounds the closest-name candidate list.
	fuzzyNameCandidates = 3

	// descriptionWordFloor is how many words a query must share with a
	// resource description to count as a match.
	descriptionWordFloor = 2
)

// MatchResource resolves a query to a knowledge-base resource.
//
// Description:
//
//	Five passes run in order; the first hit wins. (1) exact name match,
//	(2) exact keyword match, (3) keyword substring of the query,
//	(4) two or more words shared with the description, (5) closest-name
//	similarity with a 0.5 cutoff over at most three candidates. All
//	passes walk resources in category declaration order.
//
// Inputs:
//
//	base - The resource knowledge base. Must not be nil.
//	query - The query text; matching is case-insensitive.
//
// Outputs:
//
//	*knowledge.Resource - The resolved resource, or nil.
//	bool - Whether any pass matched.
func MatchResource(base *knowledge.Base, query string) (*knowledge.Resource, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, false
	}

	// Pass 1 and 2: exact name, then exact keyword.
	for _, r := range base.All() {
		if q == strings.ToLower(r.Name) {
			return r, true
		}
	}
	for _, r := range base.All() {
		for _, kw := range r.Keywords {
			if q == strings.ToLower(kw) {
				return r, true
			}
		}
	}

	// Pass 3 and 4: keyword substring, then shared description words.
	qWords := wordSet(q)
	for _, r := range base.All() {
		for _, kw := range r.Keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				return r, true
			}
		}
	}
	for _, r := range base.All() {
		shared := 0
		for w := range wordSet(strings.ToLower(r.Description)) {
			if _, ok := qWords[w]; ok {
				shared++
			}
		}
		if shared >= descriptionWordFloor {
			return r, true
		}
	}

	// Pass 5: closest name by similarity ratio.
	return closestByName(base, q)
}

// closestByName finds the resource whose name is most similar to the query.
// Candidates below the cutoff are dropped; of the surviving top three, the
// highest ratio wins and ties go to the earlier resource.
func closestByName(base *knowledge.Base, query string) (*knowledge.Resource, bool) {
	type candidate struct {
		resource *knowledge.Resource
		ratio    float64
		order    int
	}

	var candidates []candidate
	for i, r := range base.All() {
		ratio := similarity(query, strings.ToLower(r.Name))
		if ratio >= fuzzyNameCutoff {
			candidates = append(candidates, candidate{resource: r, ratio: ratio, order: i})
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			return candidates[i].ratio > candidates[j].ratio
		}
		return candidates[i].order < candidates[j].order
	})
	if len(candidates) > fuzzyNameCandidates {
		candidates = candidates[:fuzzyNameCandidates]
	}
	return candidates[0].resource, true
}

// similarity is a normalized edit-distance ratio in [0,1]; 1 means equal.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}
