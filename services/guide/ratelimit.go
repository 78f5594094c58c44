// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guide

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	// defaultRatePerSecond allows 12 queries per minute per user.
	defaultRatePerSecond = 0.2

	defaultRateBurst = 5

	// limiterHighWater triggers an eviction sweep of idle limiters.
	limiterHighWater = 10000
)

// userLimiter hands out one token bucket per user key.
//
// Thread Safety: Safe for concurrent use.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newUserLimiter(rps float64, burst int) *userLimiter {
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether one more request from key fits its budget. Unknown
// keys get a fresh bucket; anonymous requests share one bucket under the
// empty key.
func (u *userLimiter) Allow(key string) bool {
	u.mu.Lock()
	lim, ok := u.limiters[key]
	if !ok {
		if len(u.limiters) >= limiterHighWater {
			u.sweepLocked()
		}
		lim = rate.NewLimiter(u.rps, u.burst)
		u.limiters[key] = lim
	}
	u.mu.Unlock()
	return lim.Allow()
}

// sweepLocked drops buckets that are full, i.e. users idle long enough to
// have regained their whole burst. Caller holds the mutex.
func (u *userLimiter) sweepLocked() {
	for key, lim := range u.limiters {
		if lim.Tokens() >= float64(u.burst) {
			delete(u.limiters, key)
		}
	}
}
