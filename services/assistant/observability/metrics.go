// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the assistant
// gateway: request outcomes, upstream token consumption, latency, and the
// degradation counters (rate-limit denials, extraction fallbacks).
//
// Metrics are exposed on /metrics. All operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "policyhub"

const chatSubsystem = "assistant"

// ChatMetrics holds all Prometheus metrics for the chat endpoint.
//
// # Fields
//
//   - RequestsTotal: Counter of chat requests by mode and outcome
//     (success, validation_error, upstream_error, config_error,
//     internal_error). Rate-limit denials are counted separately by
//     RateLimitDeniedTotal.
//   - TokensUsedTotal: Counter of upstream tokens consumed, by model.
//   - RequestDurationSeconds: Histogram of end-to-end request latency by mode.
//   - RateLimitDeniedTotal: Counter of requests denied by the limiter.
//   - ExtractionFallbacksTotal: Counter of upstream replies that fell back
//     to the raw-text shape.
type ChatMetrics struct {
	RequestsTotal            *prometheus.CounterVec
	TokensUsedTotal          *prometheus.CounterVec
	RequestDurationSeconds   *prometheus.HistogramVec
	RateLimitDeniedTotal     prometheus.Counter
	ExtractionFallbacksTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *ChatMetrics

var metricsOnce sync.Once

// InitMetrics initializes and registers the default metrics instance.
// Safe to call from multiple construction paths; registration happens once
// per process.
func InitMetrics() *ChatMetrics {
	metricsOnce.Do(func() {
		DefaultMetrics = &ChatMetrics{
			RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Chat requests by mode and outcome.",
			}, []string{"mode", "outcome"}),

			TokensUsedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "tokens_used_total",
				Help:      "Upstream tokens consumed, as reported by the LLM service.",
			}, []string{"model"}),

			RequestDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end chat request latency.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			}, []string{"mode"}),

			RateLimitDeniedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "rate_limit_denied_total",
				Help:      "Requests denied by the per-client rate limiter.",
			}),

			ExtractionFallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "extraction_fallbacks_total",
				Help:      "Upstream replies that could not be parsed as structured data.",
			}),
		}
	})
	return DefaultMetrics
}
