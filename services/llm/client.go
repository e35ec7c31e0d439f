package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message roles for assembled prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Fixed sampling parameters. Not caller-configurable: determinism and cost
// control are platform decisions, not request options.
const (
	SamplingTemperature float32 = 0.3
	SamplingTopP        float32 = 0.95
)

// Message is a single prompt message in the order it is sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the canonical result of a chat-completion call.
type Completion struct {
	Content     string
	Model       string
	TotalTokens int
}

// ErrNotConfigured is returned when the upstream endpoint or credential is
// missing. Detected at client construction, before any network call.
var ErrNotConfigured = errors.New("llm backend is not configured")

// UpstreamError is a non-2xx reply from the chat-completion service.
// The Body is for operator logs only and must never be echoed to callers.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream chat completion failed with status %d", e.StatusCode)
}

// ChatClient defines the standard interface for any chat-completion backend.
//
// Complete issues a single synchronous request with the assembled messages
// and the token ceiling. No retries are performed at this layer; a non-2xx
// upstream status surfaces as *UpstreamError.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, maxTokens int) (*Completion, error)
}
