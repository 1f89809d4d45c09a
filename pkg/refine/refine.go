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

// Package refine handles messages arriving while recommendations are on
// screen. A classifier maps the reply onto an intent (adjust filters,
// switch domain, start over, research, compare, cart, small talk) and the
// handler executes it, re-searching when the filter set changed.
package refine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/concierge/pkg/cart"
	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/llms"
	"github.com/kadirpekel/concierge/pkg/pipeline"
	"github.com/kadirpekel/concierge/pkg/prompts"
	"github.com/kadirpekel/concierge/pkg/research"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
)

// Intent names mirror the classifier's output enum.
const (
	IntentFilterChange = "filter_change"
	IntentDomainSwitch = "domain_switch"
	IntentNewSearch    = "new_search"
	IntentResearch     = "research"
	IntentCompare      = "compare"
	IntentCart         = "cart"
	IntentChat         = "chat"
)

// Handler executes refinement intents against the session.
type Handler struct {
	llm      llms.StructuredCompletion
	pipeline *pipeline.Pipeline
	research research.Service
}

// NewHandler creates a refinement handler.
func NewHandler(llm llms.StructuredCompletion, p *pipeline.Pipeline, r research.Service) *Handler {
	return &Handler{llm: llm, pipeline: p, research: r}
}

// Handle classifies and executes one recommendations-stage message.
func (h *Handler) Handle(ctx context.Context, state *session.State, message string) (*pipeline.Outcome, error) {
	out := &pipeline.Outcome{}

	ref := h.classify(ctx, state, message, out)

	switch ref.Intent {
	case IntentFilterChange:
		return out, h.applyFilterChange(ctx, state, ref, out)

	case IntentDomainSwitch:
		domain := catalog.ParseDomain(ref.Domain)
		if !domain.Known() || !h.pipeline.Registry().Has(domain) {
			out.Message = "Which of our product areas should we switch to?"
			return out, nil
		}
		state.SwitchDomain(domain)
		// Restart the interview in the new domain using the same message.
		return h.pipeline.Interview(ctx, state, message)

	case IntentNewSearch:
		state.ClearFilters()
		return h.pipeline.Interview(ctx, state, message)

	case IntentResearch:
		return out, h.describe(ctx, state, ref.TargetProductIDs, out)

	case IntentCompare:
		return out, h.compare(ctx, state, ref.TargetProductIDs, out)

	case IntentCart:
		action, err := cart.ParseAction(ref.CartAction)
		if err != nil {
			out.Message = "Did you want to save that product, add it to your cart, or check out?"
			return out, nil
		}
		msg, err := cart.Apply(state, action, ref.TargetProductIDs)
		if err != nil {
			return out, err
		}
		out.Message = msg
		return out, nil

	default: // chat
		if strings.TrimSpace(ref.Reply) != "" {
			out.Message = ref.Reply
		} else {
			out.Message = "Happy to help. You can refine the results, ask about a product, or start a new search."
		}
		return out, nil
	}
}

// classify runs the refinement classifier with a keyword fallback.
func (h *Handler) classify(ctx context.Context, state *session.State, message string, out *pipeline.Outcome) *prompts.Refinement {
	var ref *prompts.Refinement

	err := timed(out, "classify_refinement", func() error {
		resp, err := llms.Call[prompts.Refinement](ctx, h.llm,
			prompts.ClassifyRefinement(message, state.ActiveDomain, state.Filters,
				state.LastResults, h.pipeline.Registry().Domains()))
		if err != nil {
			return err
		}
		ref = resp
		return nil
	})
	if err != nil {
		slog.Warn("Refinement classification degraded to keyword matching", "error", err)
		ref = fallbackClassify(message, state)
	}
	return ref
}

// applyFilterChange folds the delta into the session filters and re-runs
// the search.
func (h *Handler) applyFilterChange(ctx context.Context, state *session.State, ref *prompts.Refinement, out *pipeline.Outcome) error {
	registry := h.pipeline.Registry()
	changed := false

	for _, key := range ref.RemoveFilters {
		if _, ok := state.Filters[key]; ok {
			delete(state.Filters, key)
			changed = true
		}
	}
	for _, f := range ref.FilterDelta {
		slot, ok := registry.Slot(state.ActiveDomain, f.Key)
		if !ok {
			continue
		}
		if value, ok := slot.ParseValue(f.Value); ok {
			state.Filters[slot.Key] = value
			changed = true
		}
	}

	if !changed {
		out.Message = "I couldn't map that onto your filters. Could you say it differently, " +
			"for example \"under $1500\" or \"only Dell\"?"
		return nil
	}
	return h.pipeline.Recommend(ctx, state, out)
}

func (h *Handler) describe(ctx context.Context, state *session.State, ids []string, out *pipeline.Outcome) error {
	products := resolve(state, ids)
	if len(products) == 0 {
		out.Message = "Which product would you like to hear more about?"
		return nil
	}
	text, err := h.research.Describe(ctx, products)
	if err != nil {
		return err
	}
	out.Message = text
	return nil
}

func (h *Handler) compare(ctx context.Context, state *session.State, ids []string, out *pipeline.Outcome) error {
	products := resolve(state, ids)
	if len(products) < 2 {
		out.Message = "Pick two or more products from the results and I'll compare them."
		return nil
	}
	text, err := h.research.Compare(ctx, products)
	if err != nil {
		return err
	}
	out.Message = text
	return nil
}

func resolve(state *session.State, ids []string) []search.ProductSummary {
	var out []search.ProductSummary
	for _, id := range ids {
		if p, ok := state.FindResult(id); ok {
			out = append(out, *p)
		}
	}
	return out
}

// fallbackClassify keyword-matches the reply when the classifier model is
// unavailable. It only recognizes the unambiguous phrasings; everything
// else lands on chat.
func fallbackClassify(message string, state *session.State) *prompts.Refinement {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "start over") || strings.Contains(lower, "new search") ||
		strings.Contains(lower, "something else entirely"):
		return &prompts.Refinement{Intent: IntentNewSearch}

	case strings.Contains(lower, "compare"):
		return &prompts.Refinement{Intent: IntentCompare}

	case strings.Contains(lower, "tell me more") || strings.Contains(lower, "more detail") ||
		strings.Contains(lower, "more about"):
		return &prompts.Refinement{Intent: IntentResearch}

	case strings.Contains(lower, "checkout") || strings.Contains(lower, "check out"):
		return &prompts.Refinement{Intent: IntentCart, CartAction: string(cart.ActionCheckout)}

	case strings.Contains(lower, "cheaper"):
		if budget := cheaperBudget(state); budget != "" {
			return &prompts.Refinement{
				Intent:      IntentFilterChange,
				FilterDelta: []prompts.ExtractedFilter{{Key: "budget", Value: budget}},
			}
		}
		return &prompts.Refinement{Intent: IntentFilterChange}

	default:
		for _, word := range strings.Fields(lower) {
			word = strings.Trim(word, ".,!?;:")
			if d := catalog.ParseDomain(word); d.Known() && d != state.ActiveDomain {
				return &prompts.Refinement{Intent: IntentDomainSwitch, Domain: d.String()}
			}
		}
		return &prompts.Refinement{Intent: IntentChat}
	}
}

// cheaperBudget drops the current price ceiling by 20%. Returns the new
// ceiling as an explicit dollar string so ParseValue does not re-scale it.
func cheaperBudget(state *session.State) string {
	v, ok := state.Filters["budget"]
	if !ok || v.Kind != catalog.ValuePriceRange || v.Int <= 0 {
		return ""
	}
	return fmt.Sprintf("$%.2f", float64(v.Int)*0.8/100)
}

func timed(out *pipeline.Outcome, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	out.Timings = append(out.Timings, pipeline.StageTiming{
		Name:   name,
		Millis: time.Since(start).Milliseconds(),
		OK:     err == nil,
	})
	return err
}
