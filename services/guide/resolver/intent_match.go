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
	"strings"

	"github.com/agrivar/irrigation/services/guide/knowledge"
)

// IntentThreshold is the minimum score an intent must reach to be accepted.
const IntentThreshold = 0.6

const (
	containmentScore = 0.8
	overlapWeight    = 0.6
)

// IntentMatch is the result of matching a query against the intent set.
type IntentMatch struct {
	Category string
	Intent   knowledge.Intent
	Score    float64
}

// MatchIntent finds the best-scoring intent for a query.
//
// Description:
//
//	Scores every pattern of every intent. An exact pattern match scores
//	1.0 and short-circuits the whole search. Substring containment in
//	either direction scores 0.8. Otherwise the score is the word overlap
//	|common| / max(|query|, |pattern|) scaled by 0.6. The match is
//	accepted only when the best score reaches IntentThreshold. On equal
//	scores the first intent encountered wins; snapshot category order and
//	intent file order are therefore part of the contract.
//
// Inputs:
//
//	snap - The intent snapshot. Nil is treated as no match.
//	query - The query text; matching is case-insensitive.
//
// Outputs:
//
//	IntentMatch - The best match. Zero value when ok is false.
//	bool - Whether an intent reached the threshold.
func MatchIntent(snap *knowledge.IntentSnapshot, query string) (IntentMatch, bool) {
	if snap == nil {
		return IntentMatch{}, false
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return IntentMatch{}, false
	}

	var best IntentMatch
	for _, category := range snap.Categories() {
		for _, intent := range snap.Intents(category) {
			score := scoreIntent(q, intent)
			if score == 1.0 {
				return IntentMatch{Category: category, Intent: intent, Score: 1.0}, true
			}
			if score > best.Score {
				best = IntentMatch{Category: category, Intent: intent, Score: score}
			}
		}
	}

	if best.Score < IntentThreshold {
		return IntentMatch{}, false
	}
	return best, true
}

// scoreIntent returns the best pattern score for one intent.
func scoreIntent(query string, intent knowledge.Intent) float64 {
	maxScore := 0.0
	for _, pattern := range intent.Patterns {
		p := strings.ToLower(pattern)

		if query == p {
			return 1.0
		}

		var score float64
		if strings.Contains(query, p) || strings.Contains(p, query) {
			score = containmentScore
		} else {
			score = overlapScore(query, p)
		}
		if score > maxScore {
			maxScore = score
		}
	}
	return maxScore
}

// overlapScore computes the word-overlap score between query and pattern:
// |common| / max(|query words|, |pattern words|) * 0.6.
func overlapScore(query, pattern string) float64 {
	qWords := wordSet(query)
	pWords := wordSet(pattern)
	if len(qWords) == 0 || len(pWords) == 0 {
		return 0
	}

	common := 0
	for w := range qWords {
		if _, ok := pWords[w]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}

	denom := len(qWords)
	if len(pWords) > denom {
		denom = len(pWords)
	}
	return float64(common) / float64(denom) * overlapWeight
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}
