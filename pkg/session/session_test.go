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

package session

import (
	"testing"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/search"
)

func TestNew(t *testing.T) {
	s := New("s1", 3)

	if s.Stage != StageInterview {
		t.Errorf("stage = %v, want INTERVIEW", s.Stage)
	}
	if s.KLimit != 3 {
		t.Errorf("k limit = %d, want 3", s.KLimit)
	}
	if s.Filters == nil || s.Favorites == nil || s.Cart == nil {
		t.Error("expected maps to be initialized")
	}
}

func TestSwitchDomain_ClearsAccumulatedState(t *testing.T) {
	s := New("s1", 3)
	s.ActiveDomain = catalog.DomainLaptops
	s.Filters["budget"] = catalog.PriceValue(100000)
	s.RecordQuestion("budget")
	s.LastResults = []search.ProductSummary{{ID: "l1"}}
	s.Stage = StageRecommendations
	s.Favorites["l1"] = true

	s.SwitchDomain(catalog.DomainBooks)

	if s.ActiveDomain != catalog.DomainBooks {
		t.Errorf("domain = %v, want books", s.ActiveDomain)
	}
	if len(s.Filters) != 0 {
		t.Errorf("filters survived the switch: %v", s.Filters.Keys())
	}
	if s.QuestionCount != 0 || len(s.QuestionsAsked) != 0 {
		t.Error("interview progress survived the switch")
	}
	if s.LastResults != nil {
		t.Error("last results survived the switch")
	}
	if s.Stage != StageInterview {
		t.Errorf("stage = %v, want INTERVIEW", s.Stage)
	}
	// Favorites persist across domains.
	if !s.Favorites["l1"] {
		t.Error("favorites must survive a domain switch")
	}
}

func TestClearFilters_KeepsDomain(t *testing.T) {
	s := New("s1", 3)
	s.ActiveDomain = catalog.DomainVehicles
	s.Filters["budget"] = catalog.PriceValue(2_000_000)
	s.Stage = StageRecommendations

	s.ClearFilters()

	if s.ActiveDomain != catalog.DomainVehicles {
		t.Errorf("domain = %v, want vehicles", s.ActiveDomain)
	}
	if len(s.Filters) != 0 {
		t.Error("filters survived the clear")
	}
	if s.Stage != StageInterview {
		t.Errorf("stage = %v, want INTERVIEW", s.Stage)
	}
}

func TestAskedAndRecordQuestion(t *testing.T) {
	s := New("s1", 3)

	if s.Asked("budget") {
		t.Error("budget should not be asked yet")
	}
	s.RecordQuestion("budget")
	if !s.Asked("budget") {
		t.Error("budget should be recorded as asked")
	}
	if s.QuestionCount != 1 {
		t.Errorf("question count = %d, want 1", s.QuestionCount)
	}
}

func TestAppendTurn_Cap(t *testing.T) {
	s := New("s1", 3)
	for i := 0; i < 15; i++ {
		s.AppendTurn("user", "message", 10)
	}
	if len(s.Conversation) != 10 {
		t.Errorf("conversation length = %d, want 10", len(s.Conversation))
	}

	// The newest entries survive.
	s.AppendTurn("assistant", "latest", 10)
	last := s.Conversation[len(s.Conversation)-1]
	if last.Role != "assistant" || last.Text != "latest" {
		t.Errorf("last turn = %+v", last)
	}
}

func TestConversationTail(t *testing.T) {
	s := New("s1", 3)
	for i := 0; i < 5; i++ {
		s.AppendTurn("user", "m", 0)
	}
	if got := len(s.ConversationTail(3)); got != 3 {
		t.Errorf("tail length = %d, want 3", got)
	}
	if got := len(s.ConversationTail(10)); got != 5 {
		t.Errorf("tail length = %d, want 5", got)
	}
}

func TestStableIDs(t *testing.T) {
	s := New("s1", 3)
	s.Favorites["b"] = true
	s.Favorites["a"] = true
	s.Cart["z"] = 1
	s.Cart["y"] = 2
	s.Cart["gone"] = 0

	fav := s.FavoriteIDs()
	if len(fav) != 2 || fav[0] != "a" || fav[1] != "b" {
		t.Errorf("favorite ids = %v, want [a b]", fav)
	}
	ids := s.CartIDs()
	if len(ids) != 2 || ids[0] != "y" || ids[1] != "z" {
		t.Errorf("cart ids = %v, want [y z]", ids)
	}
}

func TestFindResult(t *testing.T) {
	s := New("s1", 3)
	s.LastResults = []search.ProductSummary{{ID: "p1", Name: "First"}, {ID: "p2"}}

	p, ok := s.FindResult("p1")
	if !ok || p.Name != "First" {
		t.Errorf("FindResult(p1) = %+v ok=%v", p, ok)
	}
	if _, ok := s.FindResult("missing"); ok {
		t.Error("expected miss for unknown id")
	}
}
