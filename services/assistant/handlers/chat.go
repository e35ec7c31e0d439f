// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/policyhubhq/assistant-gateway/services/assistant/datatypes"
	"github.com/policyhubhq/assistant-gateway/services/assistant/extract"
	"github.com/policyhubhq/assistant-gateway/services/assistant/observability"
	"github.com/policyhubhq/assistant-gateway/services/assistant/prompt"
	"github.com/policyhubhq/assistant-gateway/services/llm"
)

var chatTracer = otel.Tracer("policyhub.assistant.handlers")

// Metric outcome labels. One per terminal state of the request pipeline.
const (
	outcomeSuccess         = "success"
	outcomeValidationError = "validation_error"
	outcomeConfigError     = "config_error"
	outcomeUpstreamError   = "upstream_error"
	outcomeInternalError   = "internal_error"
)

// ChatOptions carries the process-level budgets for the chat handler.
type ChatOptions struct {
	// DefaultMaxTokens is the generation budget when the caller requests none.
	DefaultMaxTokens int

	// MaxTokensCeiling is the platform maximum; caller requests are clamped.
	MaxTokensCeiling int

	// UpstreamTimeout bounds the upstream call. Derived from the platform
	// request timeout so a slow upstream cannot hold resources indefinitely.
	UpstreamTimeout time.Duration
}

// HandleChat answers POST /v1/assistant/chat.
//
// Pipeline: validate -> assemble prompt -> upstream call -> extract ->
// respond. Rate limiting and CORS preflight run as middleware before this
// handler. llmClient may be nil when the upstream deployment settings are
// missing; the handler then reports a configuration fault without calling
// anything.
func HandleChat(llmClient llm.ChatClient, opts ChatOptions) gin.HandlerFunc {
	metrics := observability.InitMetrics()
	assembler := prompt.Assembler{
		DefaultMaxTokens: opts.DefaultMaxTokens,
		MaxTokensCeiling: opts.MaxTokensCeiling,
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("failed to parse chat request", "error", err)
			metrics.RequestsTotal.WithLabelValues("unknown", outcomeValidationError).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		span.SetAttributes(
			attribute.String("chat.request_id", req.RequestID),
			attribute.String("chat.mode", req.Mode),
		)

		if verr := req.Validate(); verr != nil {
			span.SetStatus(codes.Error, verr.Message)
			slog.Warn("chat request rejected",
				"request_id", req.RequestID,
				"field", verr.Field,
				"reason", verr.Message,
			)
			metrics.RequestsTotal.WithLabelValues(modeLabel(req.Mode), outcomeValidationError).Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
			return
		}

		if llmClient == nil {
			// Operational fault, not a user error. The generic message keeps
			// deployment details out of caller-visible responses.
			slog.Error("chat request refused: upstream LLM deployment is not configured",
				"request_id", req.RequestID)
			metrics.RequestsTotal.WithLabelValues(req.Mode, outcomeConfigError).Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "assistant service is not configured"})
			return
		}

		messages, tokenCeiling := assembler.Assemble(&req)
		span.SetAttributes(
			attribute.Int("chat.message_count", len(messages)),
			attribute.Int("chat.token_ceiling", tokenCeiling),
		)

		// The request context carries caller disconnects, so an abandoned
		// request cancels the in-flight upstream call cooperatively.
		callCtx, cancel := context.WithTimeout(ctx, opts.UpstreamTimeout)
		defer cancel()

		completion, err := llmClient.Complete(callCtx, messages, tokenCeiling)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			status, outcome := classifyUpstreamFailure(err, req.RequestID)
			metrics.RequestsTotal.WithLabelValues(req.Mode, outcome).Inc()
			c.JSON(status, gin.H{"error": upstreamFailureMessage(status)})
			return
		}

		reply := extract.Parse(completion.Content)
		if !reply.Parsed {
			metrics.ExtractionFallbacksTotal.Inc()
			slog.Debug("upstream reply was not structured, using raw text",
				"request_id", req.RequestID)
		}

		elapsed := time.Since(start)
		resp := datatypes.ChatResponse{
			Message:          reply.Message,
			Citations:        reply.Citations,
			SuggestedActions: reply.SuggestedActions,
			Metadata: datatypes.ResponseMetadata{
				Model:            completion.Model,
				TokensUsed:       completion.TotalTokens,
				ProcessingTimeMs: elapsed.Milliseconds(),
				RequestID:        req.RequestID,
			},
		}

		metrics.RequestsTotal.WithLabelValues(req.Mode, outcomeSuccess).Inc()
		metrics.TokensUsedTotal.WithLabelValues(completion.Model).Add(float64(completion.TotalTokens))
		metrics.RequestDurationSeconds.WithLabelValues(req.Mode).Observe(elapsed.Seconds())

		slog.Info("chat request completed",
			"request_id", req.RequestID,
			"mode", req.Mode,
			"message_count", len(messages),
			"token_ceiling", tokenCeiling,
			"tokens_used", completion.TotalTokens,
			"parsed", reply.Parsed,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		c.JSON(http.StatusOK, resp)
	}
}

// classifyUpstreamFailure maps an upstream call error to an HTTP status and
// metric outcome, logging the detailed cause. Upstream error bodies are
// logged only, never echoed to the caller.
func classifyUpstreamFailure(err error, requestID string) (int, string) {
	var upstreamErr *llm.UpstreamError
	switch {
	case errors.As(err, &upstreamErr):
		slog.Error("upstream chat completion failed",
			"request_id", requestID,
			"status", upstreamErr.StatusCode,
			"body", upstreamErr.Body,
		)
		return http.StatusBadGateway, outcomeUpstreamError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		slog.Error("upstream chat completion timed out or was canceled",
			"request_id", requestID,
			"error", err,
		)
		return http.StatusBadGateway, outcomeUpstreamError
	default:
		slog.Error("chat request failed unexpectedly",
			"request_id", requestID,
			"error", err,
		)
		return http.StatusInternalServerError, outcomeInternalError
	}
}

// upstreamFailureMessage returns the deliberately non-specific caller
// message for a failed upstream call.
func upstreamFailureMessage(status int) string {
	if status == http.StatusBadGateway {
		return "the assistant service is temporarily unavailable"
	}
	return "internal server error"
}

// modeLabel keeps metric label cardinality bounded when the mode failed
// validation.
func modeLabel(mode string) string {
	switch mode {
	case datatypes.ModePolicyQA, datatypes.ModeAuthorAssist, datatypes.ModeGeneralHelp:
		return mode
	default:
		return "unknown"
	}
}
