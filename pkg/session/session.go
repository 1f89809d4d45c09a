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

// Package session holds per-conversation state. Sessions live in memory
// for the process lifetime; every mutation is mirrored write-through to an
// optional external store, which also hydrates returning sessions after a
// restart.
package session

import (
	"errors"
	"sort"
	"time"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/search"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("session not found")

// Stage is the session's high-level phase.
type Stage string

const (
	StageInterview       Stage = "INTERVIEW"
	StageRecommendations Stage = "RECOMMENDATIONS"
	StageCheckout        Stage = "CHECKOUT"
)

// SessionIntent captures why the user is here at all.
type SessionIntent string

const (
	IntentExplore  SessionIntent = "Explore"
	IntentDecide   SessionIntent = "Decide today"
	IntentPurchase SessionIntent = "Execute purchase"
)

// StepIntent captures what the user wants from the current step.
type StepIntent string

const (
	StepResearch  StepIntent = "Research"
	StepCompare   StepIntent = "Compare"
	StepNegotiate StepIntent = "Negotiate"
	StepSchedule  StepIntent = "Schedule"
	StepReturn    StepIntent = "Return"
)

// Turn is one conversation entry, role "user" or "assistant".
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// State is the per-session mutable record. It is not safe for concurrent
// use; the orchestrator serializes turns per session via Manager.Acquire.
type State struct {
	ID           string                  `json:"id"`
	Stage        Stage                   `json:"stage"`
	ActiveDomain catalog.Domain          `json:"active_domain,omitempty"`
	Filters      catalog.Filters         `json:"filters,omitempty"`
	Soft         catalog.SoftPreferences `json:"soft_preferences,omitempty"`

	// QuestionsAsked lists slot keys in asked order; each slot is asked at
	// most once per session unless the domain changes.
	QuestionsAsked []string `json:"questions_asked,omitempty"`
	// QuestionCount counts interview questions emitted via follow-ups.
	QuestionCount int `json:"question_count"`
	// KLimit caps interview questions; 0 bypasses the interview.
	KLimit int `json:"k_limit"`

	Conversation []Turn                  `json:"conversation,omitempty"`
	LastResults  []search.ProductSummary `json:"last_results,omitempty"`
	Favorites    map[string]bool         `json:"favorites,omitempty"`
	// Cart maps product id to quantity.
	Cart map[string]int `json:"cart,omitempty"`

	SessionIntent SessionIntent `json:"session_intent,omitempty"`
	StepIntent    StepIntent    `json:"step_intent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a fresh interview-stage session.
func New(id string, kLimit int) *State {
	now := time.Now().UTC()
	return &State{
		ID:        id,
		Stage:     StageInterview,
		Filters:   make(catalog.Filters),
		Favorites: make(map[string]bool),
		Cart:      make(map[string]int),
		KLimit:    kLimit,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SwitchDomain sets the active domain and clears everything the previous
// domain accumulated: filters, interview progress and last results.
func (s *State) SwitchDomain(d catalog.Domain) {
	s.ActiveDomain = d
	s.Filters = make(catalog.Filters)
	s.QuestionsAsked = nil
	s.QuestionCount = 0
	s.LastResults = nil
	s.Stage = StageInterview
}

// ClearFilters resets filters and interview progress but keeps the domain.
// Used for "new search" refinements.
func (s *State) ClearFilters() {
	s.Filters = make(catalog.Filters)
	s.QuestionsAsked = nil
	s.QuestionCount = 0
	s.LastResults = nil
	s.Stage = StageInterview
}

// Asked reports whether the slot has already been asked this session.
func (s *State) Asked(slotKey string) bool {
	for _, k := range s.QuestionsAsked {
		if k == slotKey {
			return true
		}
	}
	return false
}

// RecordQuestion marks a slot as asked via a follow-up question.
func (s *State) RecordQuestion(slotKey string) {
	s.QuestionsAsked = append(s.QuestionsAsked, slotKey)
	s.QuestionCount++
}

// AppendTurn adds a conversation entry, dropping the oldest entries beyond
// cap. Older entries are dropped, not summarized.
func (s *State) AppendTurn(role, text string, cap int) {
	s.Conversation = append(s.Conversation, Turn{Role: role, Text: text})
	if cap > 0 && len(s.Conversation) > cap {
		s.Conversation = s.Conversation[len(s.Conversation)-cap:]
	}
}

// ConversationTail returns up to n most recent turns.
func (s *State) ConversationTail(n int) []Turn {
	if n <= 0 || len(s.Conversation) <= n {
		return s.Conversation
	}
	return s.Conversation[len(s.Conversation)-n:]
}

// FavoriteIDs returns the favorite product ids in stable order.
func (s *State) FavoriteIDs() []string {
	ids := make([]string, 0, len(s.Favorites))
	for id, ok := range s.Favorites {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CartIDs returns the cart product ids in stable order.
func (s *State) CartIDs() []string {
	ids := make([]string, 0, len(s.Cart))
	for id, qty := range s.Cart {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// FindResult looks up a product id in the last shown candidates.
func (s *State) FindResult(id string) (*search.ProductSummary, bool) {
	for i := range s.LastResults {
		if s.LastResults[i].ID == id {
			return &s.LastResults[i], true
		}
	}
	return nil, false
}
