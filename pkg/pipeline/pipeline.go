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

// Package pipeline runs the interview flow for a turn: detect the domain,
// extract slot values, then either ask the next follow-up question or run
// the search and present diversified recommendations. Every LLM stage has
// a deterministic fallback, so a model outage degrades the experience but
// never breaks the conversation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/diversify"
	"github.com/kadirpekel/concierge/pkg/llms"
	"github.com/kadirpekel/concierge/pkg/prompts"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
)

// conversationTail bounds how many turns are replayed into prompts.
const conversationTail = 12

// domainConfidenceFloor is the minimum detection confidence required to
// set or switch the active domain. Below it the detection is treated as
// unknown.
const domainConfidenceFloor = 0.6

// StageTiming records one pipeline stage for the turn trace. OK is false
// when the LLM call failed and the deterministic fallback was used.
type StageTiming struct {
	Name   string `json:"name"`
	Millis int64  `json:"ms"`
	OK     bool   `json:"ok"`
}

// Outcome is the pipeline's contribution to a turn response.
type Outcome struct {
	Message      string
	QuickReplies []string
	Rows         []diversify.Row
	SearchTrace  *search.Trace
	Timings      []StageTiming
}

// Pipeline wires the LLM provider, domain registry, search dispatcher and
// diversifier together.
type Pipeline struct {
	llm         llms.StructuredCompletion
	registry    *catalog.Registry
	dispatcher  *search.Dispatcher
	diversifier *diversify.Diversifier
}

// New creates a pipeline.
func New(llm llms.StructuredCompletion, registry *catalog.Registry, dispatcher *search.Dispatcher, diversifier *diversify.Diversifier) *Pipeline {
	return &Pipeline{
		llm:         llm,
		registry:    registry,
		dispatcher:  dispatcher,
		diversifier: diversifier,
	}
}

// Registry exposes the domain registry for collaborators.
func (p *Pipeline) Registry() *catalog.Registry { return p.registry }

// Interview processes one interview-stage user message. It mutates the
// session: filters accumulate, questions get recorded, and a search moves
// the session to the recommendations stage.
func (p *Pipeline) Interview(ctx context.Context, state *session.State, message string) (*Outcome, error) {
	out := &Outcome{}

	p.detectDomain(ctx, state, message, out)
	if !state.ActiveDomain.Known() {
		out.Message = p.domainSelectionMessage()
		out.QuickReplies = p.domainQuickReplies()
		return out, nil
	}

	extraction := p.extractSlots(ctx, state, message, out)

	if p.shouldSearch(state, extraction) {
		return out, p.Recommend(ctx, state, out)
	}

	slot := p.nextSlot(state)
	if slot == nil {
		// Nothing left to ask; search regardless of the question budget.
		return out, p.Recommend(ctx, state, out)
	}
	p.askQuestion(ctx, state, slot, out)
	return out, nil
}

// detectDomain resolves which product vertical the message is about and
// switches the session when the detection is confident. Falls back to
// keyword matching when the model is unavailable.
func (p *Pipeline) detectDomain(ctx context.Context, state *session.State, message string, out *Outcome) {
	detected := catalog.DomainUnknown
	confidence := 0.0

	err := p.timed("detect_domain", out, func() error {
		resp, err := llms.Call[prompts.DomainDetection](ctx, p.llm,
			prompts.DetectDomain(message, state.ConversationTail(conversationTail), state.ActiveDomain, p.registry.Domains()))
		if err != nil {
			return err
		}
		detected = catalog.ParseDomain(resp.Domain)
		confidence = resp.Confidence
		return nil
	})
	if err != nil {
		slog.Warn("Domain detection degraded to keyword matching", "error", err)
		detected = fallbackDomain(message)
		confidence = 1.0
	}

	if !detected.Known() || !p.registry.Has(detected) {
		return
	}
	if confidence < domainConfidenceFloor {
		return
	}
	if detected != state.ActiveDomain {
		state.SwitchDomain(detected)
	}
}

// extractSlots pulls slot values and soft preferences out of the message
// and folds them into the session. Falls back to price-pattern extraction.
func (p *Pipeline) extractSlots(ctx context.Context, state *session.State, message string, out *Outcome) *prompts.SlotExtraction {
	slots := p.registry.Slots(state.ActiveDomain)
	var extraction *prompts.SlotExtraction

	err := p.timed("extract_slots", out, func() error {
		resp, err := llms.Call[prompts.SlotExtraction](ctx, p.llm,
			prompts.ExtractSlots(message, state.ActiveDomain, slots, state.Filters))
		if err != nil {
			return err
		}
		extraction = resp
		return nil
	})
	if err != nil {
		slog.Warn("Slot extraction degraded to price matching", "error", err)
		extraction = fallbackExtraction(message, slots)
	}

	for _, f := range extraction.Filters {
		slot, ok := p.registry.Slot(state.ActiveDomain, f.Key)
		if !ok {
			continue
		}
		if value, ok := slot.ParseValue(f.Value); ok {
			state.Filters[slot.Key] = value
		}
	}
	state.Soft.Merge(catalog.SoftPreferences{
		Liked:    extraction.Soft.Liked,
		Disliked: extraction.Soft.Disliked,
		Notes:    extraction.Soft.Notes,
	})
	return extraction
}

// shouldSearch decides between asking another question and searching now:
// the user is impatient or asked outright, the question budget is spent, or
// every required-for-search slot already holds a value.
func (p *Pipeline) shouldSearch(state *session.State, extraction *prompts.SlotExtraction) bool {
	if extraction.Impatience || extraction.AsksForRecommendations {
		return true
	}
	if state.QuestionCount >= state.KLimit {
		return true
	}
	return p.requiredFilled(state)
}

// requiredFilled reports whether the domain's required-for-search slots are
// all filled. A domain with no required slots never satisfies this; it
// relies on the other triggers.
func (p *Pipeline) requiredFilled(state *session.State) bool {
	required := false
	for _, slot := range p.registry.Slots(state.ActiveDomain) {
		if !slot.RequiredForSearch {
			continue
		}
		required = true
		if _, filled := state.Filters[slot.Key]; !filled {
			return false
		}
	}
	return required
}

// nextSlot picks the highest-priority slot that is neither filled nor
// already asked. Registry order is priority-sorted.
func (p *Pipeline) nextSlot(state *session.State) *catalog.Slot {
	for _, slot := range p.registry.Slots(state.ActiveDomain) {
		if _, filled := state.Filters[slot.Key]; filled {
			continue
		}
		if state.Asked(slot.Key) {
			continue
		}
		s := slot
		return &s
	}
	return nil
}

// askQuestion emits the next follow-up question, falling back to the
// slot's canned prompt when generation fails.
func (p *Pipeline) askQuestion(ctx context.Context, state *session.State, slot *catalog.Slot, out *Outcome) {
	err := p.timed("generate_question", out, func() error {
		resp, err := llms.Call[prompts.GeneratedQuestion](ctx, p.llm,
			prompts.GenerateQuestion(state.ActiveDomain, slot, state.Filters, state.ConversationTail(conversationTail)))
		if err != nil {
			return err
		}
		out.Message = resp.Question
		out.QuickReplies = resp.QuickReplies
		return nil
	})
	if err != nil || strings.TrimSpace(out.Message) == "" {
		if err != nil {
			slog.Warn("Question generation degraded to canned prompt", "slot", slot.Key, "error", err)
		}
		out.Message = slot.ExamplePrompt
		out.QuickReplies = slot.ExampleReplies
	}
	state.RecordQuestion(slot.Key)
}

// Recommend runs the search, diversifies the candidates and writes the
// explanation. The session moves to the recommendations stage; shown
// candidates become the session's last results in row order.
func (p *Pipeline) Recommend(ctx context.Context, state *session.State, out *Outcome) error {
	var result *search.Result
	err := p.timed("search", out, func() error {
		res, trace, err := p.dispatcher.Dispatch(ctx, search.Query{
			Domain:  state.ActiveDomain,
			Filters: state.Filters,
			Soft:    state.Soft,
		})
		out.SearchTrace = trace
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return err
	}

	if len(result.Candidates) == 0 {
		out.Message = fmt.Sprintf("I couldn't find any %s matching everything you asked for. "+
			"Want to loosen one of your filters, or start a fresh search?", state.ActiveDomain)
		out.QuickReplies = []string{"Loosen filters", "New search"}
		return nil
	}

	_ = p.timed("diversify", out, func() error {
		out.Rows = p.diversifier.Bucket(result.Candidates)
		return nil
	})

	state.LastResults = flattenRows(out.Rows)
	state.Stage = session.StageRecommendations

	errExplain := p.timed("explain", out, func() error {
		resp, err := llms.Call[prompts.Explanation](ctx, p.llm,
			prompts.ExplainResults(state.ActiveDomain, state.LastResults, state.Filters, state.Soft))
		if err != nil {
			return err
		}
		out.Message = resp.Message
		return nil
	})
	if errExplain != nil || strings.TrimSpace(out.Message) == "" {
		if errExplain != nil {
			slog.Warn("Explanation degraded to template", "error", errExplain)
		}
		out.Message = fallbackExplanation(state.ActiveDomain, out.Rows, state.Filters)
	}
	return nil
}

func (p *Pipeline) domainSelectionMessage() string {
	names := make([]string, 0)
	for _, d := range p.registry.Domains() {
		names = append(names, d.String())
	}
	return fmt.Sprintf("I can help you shop for %s. What are you looking for today?",
		strings.Join(names, ", "))
}

func (p *Pipeline) domainQuickReplies() []string {
	replies := make([]string, 0)
	for _, d := range p.registry.Domains() {
		name := d.String()
		if name != "" {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
		replies = append(replies, name)
	}
	return replies
}

// timed runs a stage and appends its timing. The stage error is returned
// so callers can fall back; OK=false marks degraded stages in the trace.
func (p *Pipeline) timed(name string, out *Outcome, fn func() error) error {
	start := time.Now()
	err := fn()
	out.Timings = append(out.Timings, StageTiming{
		Name:   name,
		Millis: time.Since(start).Milliseconds(),
		OK:     err == nil,
	})
	return err
}

func flattenRows(rows []diversify.Row) []search.ProductSummary {
	var out []search.ProductSummary
	for _, row := range rows {
		out = append(out, row.Items...)
	}
	return out
}
