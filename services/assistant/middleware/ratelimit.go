// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the assistant gateway:
// per-client rate limiting and CORS handling.
package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/policyhubhq/assistant-gateway/services/assistant/observability"
)

// =============================================================================
// Limiter
// =============================================================================

// entry is the per-key window state: requests seen in the current window
// and when the window resets.
type entry struct {
	count         int
	windowResetAt time.Time
}

// Limiter is per-client sliding-window admission control.
//
// # Description
//
// A fixed window length and a maximum request count per client key. The
// first request from a key (or the first after the stored window elapsed)
// starts a fresh window with count 1; subsequent requests increment the
// count and are admitted while it stays within the quota. The limiter
// never errors, it only denies.
//
// Window boundaries are wall-clock based and the entry is replaced rather
// than slid, so a burst at the window seam can admit close to twice the
// quota in a short span. That behavior is deliberate and pinned by tests;
// see TestLimiter_WindowSeamBurst.
//
// Entries live for the process lifetime. The key space is client IPs of
// active callers, which stays small for a single-instance deployment; a
// multi-instance deployment needs a shared counting store instead.
//
// # Thread Safety
//
// Admit is safe for concurrent use; a single mutex guards the map. Counts
// are small and windows coarse, so contention is not a concern.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	max     int

	// now is injectable for deterministic window tests.
	now func() time.Time
}

// NewLimiter creates a limiter admitting max requests per window per key.
func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Admit records a request for key and reports whether it is allowed.
func (l *Limiter) Admit(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok || now.After(e.windowResetAt) {
		l.entries[key] = &entry{count: 1, windowResetAt: now.Add(l.window)}
		return true
	}
	e.count++
	return e.count <= l.max
}

// =============================================================================
// Middleware
// =============================================================================

// RateLimit enforces the limiter before any other request work. Denied
// requests are answered 429 and never reach validation or the upstream
// call. The client key is gin's ClientIP, which honors X-Forwarded-For
// behind trusted proxies.
func RateLimit(l *Limiter) gin.HandlerFunc {
	metrics := observability.InitMetrics()
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !l.Admit(key) {
			slog.Warn("rate limit exceeded", "client", key)
			metrics.RateLimitDeniedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please retry later",
			})
			return
		}
		c.Next()
	}
}
