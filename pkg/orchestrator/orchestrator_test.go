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

package orchestrator

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
	"github.com/kadirpekel/concierge/pkg/pipeline"
	"github.com/kadirpekel/concierge/pkg/refine"
	"github.com/kadirpekel/concierge/pkg/research"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
	"github.com/kadirpekel/concierge/pkg/validate"
)

type scriptedLLM struct {
	responses map[string]string
}

func (s *scriptedLLM) Complete(_ context.Context, req llms.CompletionRequest) (json.RawMessage, error) {
	resp, ok := s.responses[req.SchemaName]
	if !ok {
		return nil, errors.New("no scripted response")
	}
	return json.RawMessage(resp), nil
}

func (s *scriptedLLM) ModelName() string { return "scripted" }
func (s *scriptedLLM) Close() error      { return nil }

func laptops(n int) []search.ProductSummary {
	items := make([]search.ProductSummary, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, search.ProductSummary{
			ID:        fmt.Sprintf("l%d", i),
			Name:      fmt.Sprintf("Laptop %d", i),
			Brand:     "Dell",
			Price:     int64(60000 + i*15000),
			Currency:  "USD",
			Available: true,
			Rating:    4.0,
			Attributes: map[string]string{
				"use_case": []string{"gaming", "work", "creative"}[i%3],
			},
		})
	}
	return items
}

func testOrchestrator(llm llms.StructuredCompletion, opts ...Option) *Orchestrator {
	registry := catalog.Default()
	dispatcher := search.NewDispatcher(registry, search.WithMinResults(3))
	dispatcher.Bind(catalog.DomainLaptops, search.NewMemoryBackend(catalog.DomainLaptops, laptops(9)))

	pipe := pipeline.New(llm, registry, dispatcher, diversify.New(3, 3))
	refiner := refine.NewHandler(llm, pipe, research.NewStatic())
	sessions := session.NewManager(session.WithDefaultKLimit(3))

	return New(sessions, pipe, refiner, validate.New(), llm, opts...)
}

func TestHandleTurn_EmptyMessage(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{})

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "   "})
	if result.Error == nil || result.Error.Code != CodeValidation {
		t.Fatalf("error = %+v, want VALIDATION_ERROR", result.Error)
	}
}

func TestHandleTurn_Greeting(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{})

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hello"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if !strings.Contains(result.Message, "What are you looking for") {
		t.Errorf("message = %q", result.Message)
	}
	if result.Stage != session.StageInterview {
		t.Errorf("stage = %v", result.Stage)
	}
}

func TestHandleTurn_InvalidInput(t *testing.T) {
	// No scripted validation response: the model escalation fails and the
	// scripted clarification serves.
	o := testOrchestrator(&scriptedLLM{})

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "zxqwrtk"})
	if result.Error != nil {
		t.Fatalf("validation rejects politely, not with an error: %+v", result.Error)
	}
	if !strings.Contains(result.Message, "didn't quite catch") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestHandleTurn_InterviewQuestion(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection":    `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":     `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"question_generation": `{"question":"What's your budget?","quick_replies":["Under $800"],"slot_key":"budget"}`,
	}}
	o := testOrchestrator(llm)

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "I need a laptop"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Message != "What's your budget?" {
		t.Errorf("message = %q", result.Message)
	}
	if result.Domain != "laptops" {
		t.Errorf("domain = %q", result.Domain)
	}
	if result.Trace == nil || result.Trace.RequestID == "" {
		t.Error("expected a trace with a request id")
	}
}

func TestHandleTurn_PerTurnKZeroBypassesInterview(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":  `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"explanation":      `{"message":"Straight to the picks."}`,
	}}
	o := testOrchestrator(llm)

	zero := 0
	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "I need a laptop", K: &zero})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Stage != session.StageRecommendations {
		t.Errorf("stage = %v, want RECOMMENDATIONS with k=0", result.Stage)
	}
	if len(result.Rows) == 0 {
		t.Error("expected rows without any interview question")
	}
	state, ok := o.Sessions().Peek("s1")
	if !ok {
		t.Fatal("session not retained")
	}
	if state.KLimit != 0 {
		t.Errorf("k limit = %d, want the per-turn override to stick", state.KLimit)
	}
}

func TestHandleTurn_FullFlowToRecommendations(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":  `{"filters":[{"key":"budget","value":"2000"}],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":true,"asks_for_recommendations":false}`,
		"explanation":      `{"message":"Here's what I found."}`,
	}}
	o := testOrchestrator(llm)

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "a laptop under $2000, just show me"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Stage != session.StageRecommendations {
		t.Errorf("stage = %v, want RECOMMENDATIONS", result.Stage)
	}
	if len(result.Rows) == 0 {
		t.Fatal("expected rows")
	}
	if result.Filters["budget"] != "$2000.00" {
		t.Errorf("filters = %v", result.Filters)
	}
	if result.Trace.BackendProvenance == "" {
		t.Error("expected backend provenance in the trace")
	}
}

func TestHandleTurn_BackendUnavailable(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection": `{"domain":"books","confidence":0.95}`,
		"slot_extraction":  `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":true,"asks_for_recommendations":false}`,
	}}
	// Books has no bound backend.
	o := testOrchestrator(llm)

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "a mystery book, surprise me"})
	if result.Error == nil || result.Error.Code != CodeBackendUnavailable {
		t.Fatalf("error = %+v, want BACKEND_UNAVAILABLE", result.Error)
	}
	if result.Message == "" {
		t.Error("failures still need a user-facing message")
	}
}

func TestHandleTurn_ActionsWithoutMessage(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{})

	// Seed a session with results so the favorite resolves.
	state := o.Sessions().Load(context.Background(), "s1")
	state.LastResults = laptops(3)

	result := o.HandleTurn(context.Background(), TurnRequest{
		SessionID: "s1",
		Actions:   []UserAction{{Type: "favorite", ProductID: "l1"}},
	})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if len(result.Favorites) != 1 || result.Favorites[0] != "l1" {
		t.Errorf("favorites = %v", result.Favorites)
	}
	if !strings.Contains(result.Message, "Laptop 1") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestHandleTurn_SetIntentActions(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{})

	result := o.HandleTurn(context.Background(), TurnRequest{
		SessionID: "s1",
		Message:   "hi",
		Actions: []UserAction{
			{Type: "set_session_intent", Intent: "Decide today"},
			{Type: "set_step_intent", Intent: "Compare"},
		},
	})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	state, ok := o.Sessions().Peek("s1")
	if !ok {
		t.Fatal("session not retained")
	}
	if state.SessionIntent != session.IntentDecide {
		t.Errorf("session intent = %q", state.SessionIntent)
	}
	if state.StepIntent != session.StepCompare {
		t.Errorf("step intent = %q", state.StepIntent)
	}
}

func TestHandleTurn_CheckoutConfirm(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{})

	state := o.Sessions().Load(context.Background(), "s1")
	state.ActiveDomain = catalog.DomainLaptops
	state.Stage = session.StageCheckout
	state.LastResults = laptops(3)
	state.Cart["l0"] = 1

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "confirm the order"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if !strings.Contains(result.Message, "Order placed") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestHandleTurn_CheckoutBack(t *testing.T) {
	o := testOrchestrator(&scriptedLLM{})

	state := o.Sessions().Load(context.Background(), "s1")
	state.ActiveDomain = catalog.DomainLaptops
	state.Stage = session.StageCheckout
	state.LastResults = laptops(3)

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "go back to the results"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Stage != session.StageRecommendations {
		t.Errorf("stage = %v, want RECOMMENDATIONS", result.Stage)
	}
}

func TestHandleTurn_CheckoutBackWithoutResults(t *testing.T) {
	// Favoriting keeps products across a domain switch, but the switch
	// drops last results; "back" must not land on an empty grid.
	o := testOrchestrator(&scriptedLLM{})

	state := o.Sessions().Load(context.Background(), "s1")
	state.ActiveDomain = catalog.DomainLaptops
	state.Stage = session.StageCheckout
	state.Favorites["l1"] = true
	state.LastResults = nil

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "go back"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Stage != session.StageInterview {
		t.Errorf("stage = %v, want INTERVIEW when no results remain", result.Stage)
	}
	if !strings.Contains(result.Message, "search") {
		t.Errorf("message = %q, want a re-search prompt", result.Message)
	}
}

func TestHandleTurn_ValidationEscalatesToModel(t *testing.T) {
	// The cheap checks reject "buks 4 me", the scripted model accepts and
	// corrects it, and the turn proceeds into the interview.
	llm := &scriptedLLM{responses: map[string]string{
		"validation":          `{"valid":true,"intent":"browse","suggested_correction":"books for me"}`,
		"domain_detection":    `{"domain":"books","confidence":0.9}`,
		"slot_extraction":     `{"filters":[],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"question_generation": `{"question":"What genre?","quick_replies":[],"slot_key":"genre"}`,
	}}
	o := testOrchestrator(llm)

	result := o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "zzrq qzk"})
	if result.Error != nil {
		t.Fatalf("unexpected error: %+v", result.Error)
	}
	if result.Domain != "books" {
		t.Errorf("domain = %q, want books via corrected text", result.Domain)
	}
}

func TestHandleTurn_PersistsAcrossTurns(t *testing.T) {
	llm := &scriptedLLM{responses: map[string]string{
		"domain_detection":    `{"domain":"laptops","confidence":0.95}`,
		"slot_extraction":     `{"filters":[{"key":"budget","value":"1500"}],"soft_preferences":{"liked":[],"disliked":[],"notes":""},"impatience":false,"asks_for_recommendations":false}`,
		"question_generation": `{"question":"Use case?","quick_replies":[],"slot_key":"use_case"}`,
	}}
	o := testOrchestrator(llm)

	o.HandleTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "laptop under $1500"})
	state, ok := o.Sessions().Peek("s1")
	if !ok {
		t.Fatal("session not retained")
	}
	if _, ok := state.Filters["budget"]; !ok {
		t.Error("budget filter not persisted")
	}
	if len(state.Conversation) < 2 {
		t.Errorf("conversation = %d turns, want user+assistant", len(state.Conversation))
	}
}
