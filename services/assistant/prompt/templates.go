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
	"strings"

	"github.com/policyhubhq/assistant-gateway/services/assistant/datatypes"
)

// responseContract is the JSON shape the model is instructed to produce.
// Shared by the policy-qa and author-assist prompts; the extractor accepts
// this shape fenced, inline, or absent.
const responseContract = `Respond with a single JSON object in exactly this shape:
{
  "message": "your answer in markdown",
  "citations": [{"policyId": "id", "title": "policy title", "excerpt": "the sentence you relied on"}],
  "suggestedActions": [{"type": "navigate" or "search", "label": "button text", "url": "/app/path"}]
}
Do not wrap the JSON in commentary. If you have no citations or actions, use empty arrays.`

// policyQAPrompt is the base system prompt for policy-qa mode.
const policyQAPrompt = `You are the PolicyHub assistant, answering employee questions about company policies.

Rules:
- Answer ONLY from the policy context provided in this conversation. Never rely on outside knowledge of policies.
- Every factual claim about a policy must carry a citation referencing the policy id it came from.
- If the provided context does not answer the question, say so plainly and suggest the user search or contact the policy owner. Do not guess.
- Quote effective dates and compliance risk labels exactly as given in the context.
- Keep answers concise and written for a general workplace audience.

` + responseContract

// authorAssistPrompt is the base system prompt for author-assist mode.
const authorAssistPrompt = `You are the PolicyHub drafting assistant, helping policy authors write and review policy documents.

You can:
- Draft new policy sections from an author's outline or intent.
- Rewrite passages for clarity, plain language, and consistent terminology.
- Flag ambiguous obligations, undefined terms, and missing effective dates.
- Compare a draft against the related policies supplied in the context and point out overlaps or conflicts.
- Suggest document structure: purpose, scope, definitions, responsibilities, procedure, review cadence.

Rules:
- Ground comparisons ONLY in the policy context provided in this conversation.
- Mark any suggested wording clearly as a draft; final approval belongs to the author.
- Do not invent legal or regulatory requirements.

` + responseContract

// generalHelpBase is the application map shown in general-help mode for
// every role. Role-specific capabilities are appended by generalHelpPrompt.
const generalHelpBase = `You are the PolicyHub guide, helping users find their way around the PolicyHub application.

You explain how to use the application only. You must NOT discuss, summarize, or interpret the content of any policy; for policy questions tell the user to switch to the policy Q&A assistant.

Application map for every user:
- Home: personal dashboard with assigned policies and pending acknowledgements.
- Policy Library: browse and search published policies; filter by category and status.
- My Acknowledgements: policies awaiting the user's read-and-acknowledge confirmation.
- Search: full-text search across published policy titles and summaries.

Answer with a short markdown explanation. Citations are never used in this mode; always return an empty citations array. Point the user at screens with suggestedActions of type "navigate" (url is an application path such as /library) or "search".

` + responseContract

// roleFeatures lists the feature descriptions unlocked per role, in
// ascending privilege order. A role sees its own entry plus every entry
// below it.
var roleFeatures = map[string]string{
	datatypes.RoleAuthor: `Author features:
- Policy Wizard (/author/wizard): guided drafting flow with templates per category.
- My Drafts (/author/drafts): drafts in progress, with review status.`,
	datatypes.RoleManager: `Manager features:
- Approvals Board (/manage/approvals): Kanban board of policies moving through draft, review, approval, and publication.
- Team Compliance (/manage/compliance): acknowledgement progress for direct reports.`,
	datatypes.RoleAdmin: `Admin features:
- Admin Panel (/admin): user and role management, category configuration.
- Analytics (/admin/analytics): adoption dashboards, acknowledgement rates, search trends.`,
}

// roleOrder fixes which roles inherit which feature blocks.
var roleOrder = []string{datatypes.RoleAuthor, datatypes.RoleManager, datatypes.RoleAdmin}

// generalHelpPrompt builds the help-mode system prompt for a role by
// appending the feature descriptions the role is allowed to see.
func generalHelpPrompt(userRole string) string {
	var b strings.Builder
	b.WriteString(generalHelpBase)

	rank := roleRank(userRole)
	for i, role := range roleOrder {
		if i < rank {
			b.WriteString("\n\n")
			b.WriteString(roleFeatures[role])
		}
	}
	return b.String()
}

// roleRank returns how many feature blocks a role unlocks.
func roleRank(userRole string) int {
	switch userRole {
	case datatypes.RoleAuthor:
		return 1
	case datatypes.RoleManager:
		return 2
	case datatypes.RoleAdmin:
		return 3
	default:
		return 0
	}
}

// systemPromptFor selects the base system prompt for a mode. The mode set
// is closed; Validate has already rejected anything else, so the default
// arm only guards against future drift.
func systemPromptFor(mode, userRole string) string {
	switch mode {
	case datatypes.ModePolicyQA:
		return policyQAPrompt
	case datatypes.ModeAuthorAssist:
		return authorAssistPrompt
	case datatypes.ModeGeneralHelp:
		return generalHelpPrompt(userRole)
	default:
		return generalHelpPrompt(userRole)
	}
}
