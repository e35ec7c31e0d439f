// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the assistant gateway.
//
// This file contains the request and response types for the chat completion
// endpoint (POST /v1/assistant/chat), together with the caller-facing limits
// enforced on every inbound request.
package datatypes

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageLength is the maximum length of a caller message in characters.
	// Per SEC-003: Unbounded message input mitigation. Applied both at
	// validation time and again after sanitization.
	MaxMessageLength = 2000

	// MaxHistoryMessages is the maximum number of conversation history entries
	// accepted per request. Per SEC-004: Unbounded message history mitigation.
	// When more are supplied the prompt assembler keeps only the newest window.
	MaxHistoryMessages = 20

	// MaxPolicyContext is the maximum number of retrieved policy summaries
	// accepted per request.
	MaxPolicyContext = 10
)

// Chat modes. The set is closed; each mode selects a bespoke system prompt
// and response contract.
const (
	ModePolicyQA     = "policy-qa"
	ModeAuthorAssist = "author-assist"
	ModeGeneralHelp  = "general-help"
)

// User roles accepted on a request. The gateway trusts the label for
// prompt gating only; it performs no authorization with it.
const (
	RoleUser    = "User"
	RoleAuthor  = "Author"
	RoleManager = "Manager"
	RoleAdmin   = "Admin"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
}

// =============================================================================
// Validation Errors
// =============================================================================

// ValidationError describes a single rejected request field.
//
// # Description
//
// Returned by ChatRequest.Validate. The Message is safe to echo to the
// caller: it names the offending field and the violated limit, never the
// submitted content.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// =============================================================================
// Chat Request Types
// =============================================================================

// HistoryMessage is a single prior turn supplied by the caller.
// Role is "user" or "assistant"; Content is sanitized before it reaches
// the prompt assembler.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PolicyContextItem is a single retrieved policy summary.
//
// # Description
//
// Supplied by the external retrieval collaborator. The gateway trusts its
// shape but not its content: items are rendered into a system message for
// grounding, never executed or echoed verbatim into caller-visible errors.
//
// # Fields
//
//   - ID: Policy document identifier used for citations.
//   - Title: Human-readable policy title.
//   - Category: Policy category (e.g. "Security", "HR").
//   - ComplianceRisk: Risk label assigned by the compliance pipeline.
//   - Status: Document lifecycle status (e.g. "Published").
//   - EffectiveDate: ISO date the policy takes effect.
//   - Summary: Free-text summary of the policy.
//   - KeyPoints: Ordered list of key points extracted from the document.
type PolicyContextItem struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Category       string   `json:"category"`
	ComplianceRisk string   `json:"complianceRisk"`
	Status         string   `json:"status"`
	EffectiveDate  string   `json:"effectiveDate"`
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"keyPoints"`
}

// PolicyContext wraps the retrieved policy summaries for a request.
type PolicyContext struct {
	Policies []PolicyContextItem `json:"policies" validate:"max=10"`
}

// ChatRequest represents the body of POST /v1/assistant/chat.
//
// # Description
//
// ChatRequest carries the user's message plus optional conversation history
// and retrieved policy context. Every field is validated before use; the
// struct is treated as immutable once Validate has returned nil.
//
// Struct field order matches the validation order: message presence and
// length, mode, userRole, history length, policy context count.
//
// # Fields
//
//   - Message: Required. The user's current message, at most
//     MaxMessageLength characters.
//   - Mode: Required. One of "policy-qa", "author-assist", "general-help".
//   - UserRole: Required. One of "User", "Author", "Manager", "Admin".
//   - ConversationHistory: Optional. Prior turns, oldest first, at most
//     MaxHistoryMessages entries. Only the newest window is folded into
//     the prompt.
//   - PolicyContext: Optional. Retrieved policy summaries, at most
//     MaxPolicyContext items.
//   - MaxTokens: Optional. Requested generation budget. Clamped to the
//     platform ceiling; the caller can lower but never raise it.
//   - RequestID: Optional. UUID for audit correlation. Generated
//     server-side by EnsureDefaults when absent.
//   - Timestamp: Optional. Unix milliseconds (UTC) the request was created.
//     Generated server-side when absent.
type ChatRequest struct {
	Message             string           `json:"message" validate:"required,max=2000"`
	Mode                string           `json:"mode" validate:"required,oneof=policy-qa author-assist general-help"`
	UserRole            string           `json:"userRole" validate:"required,oneof=User Author Manager Admin"`
	ConversationHistory []HistoryMessage `json:"conversationHistory" validate:"max=20"`
	PolicyContext       *PolicyContext   `json:"policyContext,omitempty"`
	MaxTokens           int              `json:"maxTokens,omitempty" validate:"gte=0"`
	RequestID           string           `json:"requestId,omitempty" validate:"omitempty,uuid4"`
	Timestamp           int64            `json:"timestamp,omitempty" validate:"gte=0"`
}

// Validate validates the ChatRequest fields.
//
// # Description
//
// Runs the go-playground/validator checks declared on the struct tags and
// translates the first failure into a caller-safe ValidationError. Checks
// short-circuit on the first failing field in declaration order; no partial
// validation result is ever acted upon.
//
// # Outputs
//
//   - *ValidationError: Non-nil if validation failed, naming the offending
//     field and the violated limit. Nil for a well-formed request.
func (r *ChatRequest) Validate() *ValidationError {
	if err := chatValidate.Struct(r); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return translateFieldError(errs[0])
		}
		return &ValidationError{Field: "request", Message: "invalid request"}
	}
	return nil
}

// translateFieldError maps a validator field error to a human-readable
// message naming the field and the limit.
func translateFieldError(fe validator.FieldError) *ValidationError {
	switch fe.StructField() {
	case "Message":
		if fe.Tag() == "required" {
			return &ValidationError{Field: "message", Message: "message is required and must be a non-empty string"}
		}
		return &ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("message exceeds the maximum length of %d characters", MaxMessageLength),
		}
	case "Mode":
		return &ValidationError{
			Field:   "mode",
			Message: "mode must be one of: policy-qa, author-assist, general-help",
		}
	case "UserRole":
		return &ValidationError{
			Field:   "userRole",
			Message: "userRole must be one of: User, Author, Manager, Admin",
		}
	case "ConversationHistory":
		return &ValidationError{
			Field:   "conversationHistory",
			Message: fmt.Sprintf("conversationHistory exceeds the maximum of %d messages", MaxHistoryMessages),
		}
	case "Policies":
		return &ValidationError{
			Field:   "policyContext",
			Message: fmt.Sprintf("policyContext exceeds the maximum of %d policies", MaxPolicyContext),
		}
	case "MaxTokens":
		return &ValidationError{Field: "maxTokens", Message: "maxTokens must be a non-negative integer"}
	case "RequestID":
		return &ValidationError{Field: "requestId", Message: "requestId must be a valid UUID"}
	case "Timestamp":
		return &ValidationError{Field: "timestamp", Message: "timestamp must be a non-negative integer"}
	default:
		return &ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("field %q failed validation", fe.Field()),
		}
	}
}

// EnsureDefaults populates audit identifiers for optional fields.
//
// # Description
//
// Generates RequestID and Timestamp if not provided by the client, so every
// request has stable identifiers for tracing and log correlation.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// ContextPolicies returns the retrieved policy summaries, or nil when the
// caller supplied no policy context at all.
func (r *ChatRequest) ContextPolicies() []PolicyContextItem {
	if r.PolicyContext == nil {
		return nil
	}
	return r.PolicyContext.Policies
}

// =============================================================================
// Chat Response Types
// =============================================================================

// Citation points at a policy document referenced by the answer.
type Citation struct {
	PolicyID string `json:"policyId"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
}

// SuggestedAction is a follow-up the UI can offer the user.
// Type is "navigate" or "search".
type SuggestedAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ResponseMetadata carries operational details attached to every
// successful response.
//
// # Fields
//
//   - Model: Upstream model or deployment identifier.
//   - TokensUsed: Total tokens reported by the upstream service (0 when
//     the upstream omits usage).
//   - ProcessingTimeMs: Wall-clock time from request receipt to response
//     construction.
//   - RequestID: Echo of the request identifier for correlation.
type ResponseMetadata struct {
	Model            string `json:"model"`
	TokensUsed       int    `json:"tokensUsed"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	RequestID        string `json:"requestId,omitempty"`
}

// ChatResponse is the canonical response shape for the chat endpoint.
//
// # Description
//
// Always well-formed: Citations and SuggestedActions are non-nil (possibly
// empty) sequences even when the upstream reply could not be parsed as
// structured data, in which case Message carries the raw reply text.
type ChatResponse struct {
	Message          string            `json:"message"`
	Citations        []Citation        `json:"citations"`
	SuggestedActions []SuggestedAction `json:"suggestedActions"`
	Metadata         ResponseMetadata  `json:"metadata"`
}
