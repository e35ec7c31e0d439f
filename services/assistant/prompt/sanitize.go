// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompt builds bounded, injection-resistant prompts for the
// upstream chat-completion service: free-text sanitization, mode-specific
// system prompts, policy-context serialization, and history windowing.
package prompt

import (
	"regexp"
	"strings"

	"github.com/policyhubhq/assistant-gateway/services/assistant/datatypes"
)

var (
	// scriptBlockRe removes <script>...</script> blocks including content,
	// case-insensitively, across newlines.
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)

	// htmlTagRe strips any remaining HTML-like tag.
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)

	// injectionRe matches the fixed vocabulary of prompt-injection trigger
	// phrases. Optional surrounding brackets are consumed so that already
	// neutralized text is left unchanged, keeping the pass idempotent.
	injectionRe = regexp.MustCompile(`(?i)\[?(ignore previous|new instructions|assistant|disregard|system)\]?`)
)

// Sanitize neutralizes free text supplied by the caller before it is folded
// into the prompt. Three ordered, individually idempotent transformations:
//
//  1. remove <script> blocks including their content
//  2. strip all remaining HTML-like tags
//  3. bracket-neutralize prompt-injection trigger phrases, preserving the
//     user's wording for auditability instead of deleting it
//
// The result is truncated to datatypes.MaxMessageLength. Sanitize is applied
// to every history entry and to the current message, never to system-authored
// content.
func Sanitize(text string) string {
	out := scriptBlockRe.ReplaceAllString(text, "")
	out = htmlTagRe.ReplaceAllString(out, "")
	out = injectionRe.ReplaceAllString(out, "[${1}]")
	return truncateRunes(out, datatypes.MaxMessageLength)
}

// truncateRunes caps s at max runes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// sanitizeRole maps a caller-supplied history role onto a safe prompt role.
// Anything that is not exactly "assistant" becomes a user turn so a caller
// cannot smuggle in a system-authored message through history.
func sanitizeRole(role string) string {
	if strings.EqualFold(role, "assistant") {
		return "assistant"
	}
	return "user"
}
