// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package prompts

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/llms"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
)

const systemRole = "You are a shopping concierge helping a user find the right product. " +
	"You only ever answer with JSON conforming to the requested schema."

func renderConversation(turns []session.Turn) string {
	if len(turns) == 0 {
		return "(no prior conversation)"
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	return b.String()
}

func renderSlots(slots []catalog.Slot) string {
	var b strings.Builder
	for _, s := range slots {
		fmt.Fprintf(&b, "- %s (%s, %s priority)", s.Key, s.ValueType, s.Priority)
		if len(s.AllowedValues) > 0 {
			fmt.Fprintf(&b, " allowed: %s", strings.Join(s.AllowedValues, ", "))
		}
		if s.PriceContext != nil && s.PriceContext.Hint != "" {
			fmt.Fprintf(&b, " (%s)", s.PriceContext.Hint)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderFilters(filters catalog.Filters) string {
	if len(filters) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, k := range filters.Keys() {
		fmt.Fprintf(&b, "%s=%s ", k, filters[k].String())
	}
	return strings.TrimSpace(b.String())
}

// DetectDomain builds the domain detection call.
func DetectDomain(message string, tail []session.Turn, active catalog.Domain, domains []catalog.Domain) llms.CompletionRequest {
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = d.String()
	}

	prompt := fmt.Sprintf(`Which product domain is the user talking about?

Supported domains: %s. Answer "unknown" if unclear.
Currently active domain: %s

Conversation so far:
%s
Latest user message: %q

Report your confidence between 0 and 1.`,
		strings.Join(names, ", "), orNone(string(active)), renderConversation(tail), message)

	return llms.CompletionRequest{
		System:     systemRole,
		Prompt:     prompt,
		SchemaName: "domain_detection",
		Schema:     DomainDetectionSchema,
	}
}

// ExtractSlots builds the slot extraction call.
func ExtractSlots(message string, domain catalog.Domain, slots []catalog.Slot, current catalog.Filters) llms.CompletionRequest {
	prompt := fmt.Sprintf(`Extract the user's preferences for %s from their message.

Slots:
%s
Already known filters: %s

Latest user message: %q

Rules:
- Only report slots the message actually mentions; omit everything else.
- Categorical values MUST be one of the allowed values; if the message
  does not map cleanly onto one, omit the slot.
- Prices: report the ceiling as a plain number, following the slot's
  price interpretation hint.
- Put general likes/dislikes that are not slot values into soft_preferences.
- Set impatience if the user wants results now ("just show me", "whatever").
- Set asks_for_recommendations if the user explicitly asks to see options.`,
		domain, renderSlots(slots), renderFilters(current), message)

	return llms.CompletionRequest{
		System:     systemRole,
		Prompt:     prompt,
		SchemaName: "slot_extraction",
		Schema:     SlotExtractionSchema,
	}
}

// GenerateQuestion builds the follow-up question call.
func GenerateQuestion(domain catalog.Domain, slot *catalog.Slot, filters catalog.Filters, tail []session.Turn) llms.CompletionRequest {
	prompt := fmt.Sprintf(`Write the next interview question for a %s shopper.

Target slot: %s
Allowed values: %s
Known filters: %s

Conversation so far:
%s

Rules:
- One short friendly question about the target slot only.
- End with an open-ended invitation, e.g. "...or feel free to share anything else you care about."
- Provide 2-4 quick replies drawn from the allowed values where applicable.
- Echo the target slot key in slot_key.`,
		domain, slot.Key, orNone(strings.Join(slot.AllowedValues, ", ")),
		renderFilters(filters), renderConversation(tail))

	return llms.CompletionRequest{
		System:     systemRole,
		Prompt:     prompt,
		SchemaName: "question_generation",
		Schema:     QuestionSchema,
	}
}

// ExplainResults builds the recommendation explanation call.
func ExplainResults(domain catalog.Domain, top []search.ProductSummary, filters catalog.Filters, soft catalog.SoftPreferences) llms.CompletionRequest {
	var b strings.Builder
	for i, p := range top {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s, $%.2f, rating %.1f)\n", p.Name, p.Brand, float64(p.Price)/100, p.Rating)
	}

	prompt := fmt.Sprintf(`Summarize these %s recommendations for the user.

Top candidates:
%s
User filters: %s
Soft preferences: liked=%s disliked=%s notes=%q

Write 2-4 sentences. Name one standout product and explain the theme of
the grouped rows. No markdown, no lists.`,
		domain, b.String(), renderFilters(filters),
		orNone(strings.Join(soft.Liked, ", ")), orNone(strings.Join(soft.Disliked, ", ")), soft.Notes)

	return llms.CompletionRequest{
		System:     systemRole,
		Prompt:     prompt,
		SchemaName: "explanation",
		Schema:     ExplanationSchema,
	}
}

// ClassifyRefinement builds the post-recommendation refinement call.
func ClassifyRefinement(message string, domain catalog.Domain, filters catalog.Filters, results []search.ProductSummary, domains []catalog.Domain) llms.CompletionRequest {
	var fp strings.Builder
	for i, p := range results {
		if i >= 9 {
			break
		}
		fmt.Fprintf(&fp, "- id=%s %s (%s, $%.2f)\n", p.ID, p.Name, p.Brand, float64(p.Price)/100)
	}

	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = d.String()
	}

	prompt := fmt.Sprintf(`The user has just seen %s recommendations and replied. Classify the reply.

Current filters: %s
Shown products:
%s
Other domains: %s

User reply: %q

Intents:
- filter_change: adjusts constraints ("cheaper", "only Dell", "under $1500").
  Fill filter_delta with new values and remove_filters with keys to drop.
- domain_switch: pivots to another supported domain; set domain.
- new_search: fresh open query in the same domain.
- research: wants more detail on specific products; set target_product_ids.
- compare: wants products compared; set target_product_ids.
- cart: favorite/unfavorite/add/remove/checkout; set cart_action and
  target_product_ids.
- chat: small talk or a clarification; put a short helpful answer in reply.`,
		domain, renderFilters(filters), fp.String(), strings.Join(names, ", "), message)

	return llms.CompletionRequest{
		System:     systemRole,
		Prompt:     prompt,
		SchemaName: "refinement",
		Schema:     RefinementSchema,
	}
}

// ValidateInput builds the optional validator fallback call.
func ValidateInput(message string) llms.CompletionRequest {
	prompt := fmt.Sprintf(`Is this a meaningful shopping request or question? Message: %q

If it is close to a product word but misspelled, put the corrected text in
suggested_correction.`, message)

	return llms.CompletionRequest{
		System:     systemRole,
		Prompt:     prompt,
		SchemaName: "validation",
		Schema:     ValidationSchema,
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
