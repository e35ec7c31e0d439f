// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompt

import (
	"fmt"
	"strings"

	"github.com/policyhubhq/assistant-gateway/services/assistant/datatypes"
	"github.com/policyhubhq/assistant-gateway/services/llm"
)

// noMatchingPolicies is the context message emitted when retrieval produced
// nothing. An explicit instruction, so the model reports the absence instead
// of fabricating policies or citations.
const noMatchingPolicies = `No matching policies were found for this question.
Tell the user that no relevant policies were found. Do not invent policy content, and return an empty citations array.`

// Assembler folds a validated chat request into the ordered message
// sequence sent upstream and computes the token ceiling for the call.
//
// # Description
//
// Message order is load-bearing: the mode's base instructions come first,
// then the serialized policy context as a second system message, then the
// sanitized history window, then the sanitized current message. Later
// messages are weighted more heavily by the upstream model, so instructions
// must precede data.
//
// # Fields
//
//   - DefaultMaxTokens: Budget used when the caller requests none.
//   - MaxTokensCeiling: Platform ceiling; caller requests are clamped to it.
type Assembler struct {
	DefaultMaxTokens int
	MaxTokensCeiling int
}

// Assemble builds the prompt for a validated request.
//
// # Inputs
//
//   - req: A ChatRequest that already passed Validate. History and the
//     current message are sanitized here; system-authored content is not.
//
// # Outputs
//
//   - []llm.Message: Ordered prompt, first element always a system message.
//   - int: Token ceiling, min(requested or default, MaxTokensCeiling).
func (a Assembler) Assemble(req *datatypes.ChatRequest) ([]llm.Message, int) {
	messages := make([]llm.Message, 0, len(req.ConversationHistory)+3)

	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: systemPromptFor(req.Mode, req.UserRole),
	})

	// General help never sees policy content; all other modes always get a
	// context system message, even an empty one, so the model knows whether
	// retrieval found anything.
	if req.Mode != datatypes.ModeGeneralHelp {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: serializePolicyContext(req.ContextPolicies()),
		})
	}

	for _, h := range historyWindow(req.ConversationHistory) {
		messages = append(messages, llm.Message{
			Role:    sanitizeRole(h.Role),
			Content: Sanitize(h.Content),
		})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: Sanitize(req.Message),
	})

	return messages, a.tokenCeiling(req.MaxTokens)
}

// tokenCeiling clamps the requested budget to the platform ceiling. The
// caller can lower the budget but never exceed the ceiling.
func (a Assembler) tokenCeiling(requested int) int {
	ceiling := a.MaxTokensCeiling
	effective := a.DefaultMaxTokens
	if requested > 0 {
		effective = requested
	}
	if effective > ceiling {
		effective = ceiling
	}
	return effective
}

// historyWindow returns the newest MaxHistoryMessages entries, preserving
// their original relative order (oldest of the window first).
func historyWindow(history []datatypes.HistoryMessage) []datatypes.HistoryMessage {
	if len(history) <= datatypes.MaxHistoryMessages {
		return history
	}
	return history[len(history)-datatypes.MaxHistoryMessages:]
}

// serializePolicyContext renders retrieved policy summaries into a system
// message: numbered sections with identity, classification, summary, and
// key points. An empty or absent set yields the explicit no-match
// instruction instead.
func serializePolicyContext(policies []datatypes.PolicyContextItem) string {
	if len(policies) == 0 {
		return noMatchingPolicies
	}

	var b strings.Builder
	b.WriteString("Relevant policy documents:\n")
	for i, p := range policies {
		fmt.Fprintf(&b, "\n[%d] %s (ID: %s)\n", i+1, p.Title, p.ID)
		fmt.Fprintf(&b, "Category: %s | Compliance risk: %s | Status: %s | Effective: %s\n",
			p.Category, p.ComplianceRisk, p.Status, p.EffectiveDate)
		fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
		if len(p.KeyPoints) > 0 {
			b.WriteString("Key points:\n")
			for _, kp := range p.KeyPoints {
				fmt.Fprintf(&b, "- %s\n", kp)
			}
		}
	}
	return b.String()
}
