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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/diversify"
	"github.com/kadirpekel/concierge/pkg/llms"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
)

// scriptedLLM answers each structured call from a per-schema script.
// Schemas without a script entry fail, exercising the fallbacks.
type scriptedLLM struct {
	responses map[string]string
	calls     []string
}

func (s *scriptedLLM) Complete(_ context.Context, req llms.CompletionRequest) (json.RawMessage, error) {
	s.calls = append(s.calls, req.SchemaName)
	resp, ok := s.responses[req.SchemaName]
	if !ok {
		return nil, errors.New("no scripted response")
	}
	return json.RawMessage(resp), nil
}

func (s *scriptedLLM) ModelName() string { return "scripted" }
func (s *scriptedLLM) Close() error      { return nil }

func testBackend() *search.MemoryBackend {
	items := make([]search.ProductSummary, 0, 12)
	useCases := []string{"gaming", "work", "creative"}
	for i := 0; i < 12; i++ {
		items = append(items, search.ProductSummary{
			ID:        fmt.Sprintf("l%d", i),
			Name:      fmt.Sprintf("Laptop %d", i),
			Brand:     "Dell",
			Price:     int64(50000 + i*10000),
			Currency:  "USD",
			Available: true,
			Rating:    4.0,
			Attributes: map[string]string{
				"use_case": useCases[i%3],
			},
		})
	}
	return search.NewMemoryBackend(catalog.DomainLaptops, items)
}

func testPipeline(llm llms.StructuredCompletion) *Pipeline {
	registry := catalog.Default()
	dispatcher := search.NewDispatcher(registry, search.WithMinResults(9))
	dispatcher.Bind(catalog.DomainLaptops, testBackend())
	return New(llm, registry, dispatcher, diversify.New(3, 3))
}

func TestInterview_UnknownDomainAsksForOne(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"unknown","confidence":0.2}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	out, err := p.Interview(context.Background(), state, "I need help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.ActiveDomain.Known() {
		t.Errorf("domain = %v, want unknown", state.ActiveDomain)
	}
	if !strings.Contains(out.Message, "What are you looking for") {
		t.Errorf("message = %q", out.Message)
	}
	if len(out.QuickReplies) == 0 {
		t.Error("expected domain quick replies")
	}
}

func TestInterview_AsksNextUnfilledSlot(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection":    `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":     `{"filters":[{"key":"budget","value":"1500"}],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"question_generation": `{"question":"What will you mainly use it for?","quick_replies":["Gaming","Work"],"slot_key":"use_case"}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	out, err := p.Interview(context.Background(), state, "a laptop under $1500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.ActiveDomain != catalog.DomainLaptops {
		t.Errorf("domain = %v", state.ActiveDomain)
	}
	v, ok := state.Filters["budget"]
	if !ok || v.Int != 150000 {
		t.Errorf("budget filter = %+v ok=%v, want 150000 cents", v, ok)
	}
	// Budget is filled, so the next HIGH slot (use_case) gets asked.
	if out.Message != "What will you mainly use it for?" {
		t.Errorf("message = %q", out.Message)
	}
	if state.QuestionCount != 1 || !state.Asked("use_case") {
		t.Errorf("question bookkeeping: count=%d asked=%v", state.QuestionCount, state.QuestionsAsked)
	}
	if state.Stage != session.StageInterview {
		t.Errorf("stage = %v, want INTERVIEW", state.Stage)
	}
}

func TestInterview_LowConfidenceKeepsDomainUnknown(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"books","confidence":0.2}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	out, err := p.Interview(context.Background(), state, "maybe something to read, not sure")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A guess below the confidence floor must not set the domain.
	if state.ActiveDomain.Known() {
		t.Errorf("domain = %v, want unknown after 0.2-confidence detection", state.ActiveDomain)
	}
	if !strings.Contains(out.Message, "What are you looking for") {
		t.Errorf("message = %q, want the domain selection prompt", out.Message)
	}
}

func TestInterview_RequiredSlotsFilledTriggersSearch(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":  `{"filters":[{"key":"budget","value":"1500"},{"key":"use_case","value":"gaming"}],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"explanation":      `{"message":"Gaming picks under $1500."}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	out, err := p.Interview(context.Background(), state, "a gaming laptop under $1500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Budget and use_case are the domain's required slots; with both
	// filled the question budget is left unspent and the search runs.
	if state.Stage != session.StageRecommendations {
		t.Errorf("stage = %v, want RECOMMENDATIONS with required slots filled", state.Stage)
	}
	if state.QuestionCount != 0 {
		t.Errorf("question count = %d, want 0", state.QuestionCount)
	}
	if len(out.Rows) == 0 {
		t.Error("expected recommendation rows")
	}
}

func TestInterview_ImpatienceTriggersSearch(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":  `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":true,"asks_for_recommendations":false}`,
		"explanation":      `{"message":"Here are some laptops across a few styles."}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	out, err := p.Interview(context.Background(), state, "just show me laptops")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Stage != session.StageRecommendations {
		t.Errorf("stage = %v, want RECOMMENDATIONS", state.Stage)
	}
	if len(out.Rows) == 0 {
		t.Fatal("expected recommendation rows")
	}
	if len(state.LastResults) == 0 {
		t.Error("shown candidates must become last results")
	}
	if out.Message != "Here are some laptops across a few styles." {
		t.Errorf("message = %q", out.Message)
	}
}

func TestInterview_ZeroKLimitBypassesQuestions(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":  `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"explanation":      `{"message":"Straight to results."}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 0)

	_, err := p.Interview(context.Background(), state, "laptops")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Stage != session.StageRecommendations {
		t.Errorf("stage = %v, want RECOMMENDATIONS with k=0", state.Stage)
	}
	if state.QuestionCount != 0 {
		t.Errorf("question count = %d, want 0", state.QuestionCount)
	}
}

func TestInterview_QuestionGenerationFallsBack(t *testing.T) {
	// No scripted question generation: the canned slot prompt must serve.
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":  `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	out, err := p.Interview(context.Background(), state, "I want a laptop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// First slot for laptops is budget.
	if !strings.Contains(out.Message, "budget") {
		t.Errorf("fallback message = %q", out.Message)
	}
	if len(out.QuickReplies) == 0 {
		t.Error("expected canned quick replies")
	}
}

func TestInterview_RejectsOutOfSetCategorical(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection":    `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":     `{"filters":[{"key":"use_case","value":"underwater basket weaving"}],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"question_generation": `{"question":"q","quick_replies":[],"slot_key":"budget"}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)

	if _, err := p.Interview(context.Background(), state, "something odd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := state.Filters["use_case"]; ok {
		t.Error("out-of-set categorical value must not become a filter")
	}
}

func TestInterview_DomainSwitchNeedsConfidence(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection":    `{"domain":"books","confidence":0.4}`,
		"slot_extraction":     `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"question_generation": `{"question":"q","quick_replies":[],"slot_key":"budget"}`,
	}}
	p := testPipeline(llm)
	state := session.New("s1", 3)
	state.ActiveDomain = catalog.DomainLaptops
	state.Filters["budget"] = catalog.PriceValue(100000)

	if _, err := p.Interview(context.Background(), state, "hmm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Low-confidence detection must not blow away the active domain.
	if state.ActiveDomain != catalog.DomainLaptops {
		t.Errorf("domain = %v, want laptops retained", state.ActiveDomain)
	}
	if _, ok := state.Filters["budget"]; !ok {
		t.Error("filters lost on low-confidence detection")
	}
}

func TestRecommend_NoResults(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{}}
	registry := catalog.Default()
	dispatcher := search.NewDispatcher(registry)
	dispatcher.Bind(catalog.DomainLaptops, search.NewMemoryBackend(catalog.DomainLaptops, nil))
	p := New(llm, registry, dispatcher, diversify.New(3, 3))

	state := session.New("s1", 3)
	state.ActiveDomain = catalog.DomainLaptops

	out := &Outcome{}
	if err := p.Recommend(context.Background(), state, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Rows) != 0 {
		t.Error("expected no rows")
	}
	if !strings.Contains(out.Message, "couldn't find") {
		t.Errorf("message = %q", out.Message)
	}
	if state.Stage != session.StageInterview {
		t.Errorf("stage = %v, empty result must not advance the stage", state.Stage)
	}
}

func TestFallbackDomain(t *testing.T) {
	tests := []struct {
		message string
		want    catalog.Domain
	}{
		{"I want a laptop", catalog.DomainLaptops},
		{"I'd like an suv", catalog.DomainVehicles},
		{"a good novel please", catalog.DomainBooks},
		{"a gaming pc", catalog.DomainLaptops},
		{"hello there", catalog.DomainUnknown},
	}
	for _, tt := range tests {
		if got := fallbackDomain(tt.message); got != tt.want {
			t.Errorf("fallbackDomain(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestFallbackExtraction(t *testing.T) {
	slots := catalog.Default().Slots(catalog.DomainLaptops)

	out := fallbackExtraction("something under $1500 please", slots)
	if len(out.Filters) != 1 || out.Filters[0].Key != "budget" || out.Filters[0].Value != "1500" {
		t.Errorf("filters = %+v", out.Filters)
	}

	// k-suffix budgets expand.
	out = fallbackExtraction("budget of 2k", slots)
	if len(out.Filters) != 1 || out.Filters[0].Value != "2000" {
		t.Errorf("filters = %+v", out.Filters)
	}

	// Bare numbers without budget phrasing stay out.
	out = fallbackExtraction("a 16 inch screen", slots)
	if len(out.Filters) != 0 {
		t.Errorf("filters = %+v, want none", out.Filters)
	}
}

func TestFallbackExplanation(t *testing.T) {
	rows := []diversify.Row{{Label: "Budget-Friendly"}, {Label: "Premium"}}
	filters := catalog.Filters{"budget": catalog.PriceValue(150000)}

	msg := fallbackExplanation(catalog.DomainLaptops, rows, filters)
	for _, want := range []string{"laptops", "budget $1500.00", "Budget-Friendly", "Premium"} {
		if !strings.Contains(msg, want) {
			t.Errorf("explanation missing %q: %s", want, msg)
		}
	}
}
