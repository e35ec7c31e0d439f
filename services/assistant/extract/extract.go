// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract converts free-form upstream replies into the canonical
// structured response shape.
//
// The upstream model is instructed to answer with a JSON object but its
// output format is not contractually guaranteed: replies arrive as plain
// prose, fenced JSON, or JSON embedded mid-sentence. Parse is a total
// function over all of them; it only ever returns the canonical shape or
// the raw-text fallback, never an error.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/policyhubhq/assistant-gateway/services/assistant/datatypes"
)

// Reply is the tagged result of extraction. Parsed reports whether the
// upstream reply was decoded as structured data; callers branch on it
// instead of assuming structure.
type Reply struct {
	Message          string
	Citations        []datatypes.Citation
	SuggestedActions []datatypes.SuggestedAction
	Parsed           bool
}

// fencedBlockRe captures the interior of the first fenced code block,
// optionally tagged as json.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// looseReply mirrors the canonical shape with deferred decoding of the
// sequence fields, so a malformed citations array degrades to empty
// instead of failing the whole parse.
type looseReply struct {
	Message          string          `json:"message"`
	Citations        json.RawMessage `json:"citations"`
	SuggestedActions json.RawMessage `json:"suggestedActions"`
}

// Parse extracts the canonical {message, citations, suggestedActions}
// shape from raw upstream text.
//
// Selection order: the interior of the first fenced code block, then the
// first balanced-looking {...} span of the raw text. If neither yields a
// structured reply with a message, the whole raw text becomes the message
// and both sequences are empty. Citations and suggested actions are always
// non-nil.
func Parse(raw string) Reply {
	if span, ok := candidateSpan(raw); ok {
		if reply, ok := parseStructured(span); ok {
			return reply
		}
	}
	return fallback(raw)
}

// candidateSpan selects the text span most likely to hold structured data.
func candidateSpan(raw string) (string, bool) {
	if m := fencedBlockRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], true
	}
	return "", false
}

// parseStructured decodes a candidate span into the canonical shape.
// A decode failure or a missing message field rejects the span.
func parseStructured(span string) (Reply, bool) {
	var loose looseReply
	if err := json.Unmarshal([]byte(span), &loose); err != nil {
		return Reply{}, false
	}
	if loose.Message == "" {
		return Reply{}, false
	}
	return Reply{
		Message:          loose.Message,
		Citations:        coerceCitations(loose.Citations),
		SuggestedActions: coerceActions(loose.SuggestedActions),
		Parsed:           true,
	}, true
}

// coerceCitations decodes the citations field, mapping absent, null, or
// non-sequence values to an empty sequence. Type errors stop here; they
// never propagate past the extractor.
func coerceCitations(raw json.RawMessage) []datatypes.Citation {
	var citations []datatypes.Citation
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &citations); err != nil {
			citations = nil
		}
	}
	if citations == nil {
		citations = []datatypes.Citation{}
	}
	return citations
}

// coerceActions decodes the suggestedActions field with the same
// degrade-to-empty rule as coerceCitations.
func coerceActions(raw json.RawMessage) []datatypes.SuggestedAction {
	var actions []datatypes.SuggestedAction
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &actions); err != nil {
			actions = nil
		}
	}
	if actions == nil {
		actions = []datatypes.SuggestedAction{}
	}
	return actions
}

// fallback is the degraded-but-always-valid shape for unparseable replies.
func fallback(raw string) Reply {
	return Reply{
		Message:          raw,
		Citations:        []datatypes.Citation{},
		SuggestedActions: []datatypes.SuggestedAction{},
		Parsed:           false,
	}
}
