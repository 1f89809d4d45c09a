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

package cart

import (
	"strings"
	"testing"

	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
)

func sessionWithResults() *session.State {
	s := session.New("s1", 3)
	s.LastResults = []search.ProductSummary{
		{ID: "p1", Name: "ThinkPad X1", Price: 150000},
		{ID: "p2", Name: "MacBook Air", Price: 120000},
		{ID: "p3", Name: "Aspire 5", Price: 60000},
	}
	return s
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"favorite", "Add", " checkout ", "REMOVE", "unfavorite"} {
		if _, err := ParseAction(valid); err != nil {
			t.Errorf("ParseAction(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseAction("purchase"); err == nil {
		t.Error("expected unknown action to fail")
	}
}

func TestApply_Favorite(t *testing.T) {
	s := sessionWithResults()

	msg, err := Apply(s, ActionFavorite, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Favorites["p1"] || !s.Favorites["p2"] {
		t.Errorf("favorites = %v", s.FavoriteIDs())
	}
	if !strings.Contains(msg, "ThinkPad X1") {
		t.Errorf("message does not name the product: %q", msg)
	}

	if _, err := Apply(s, ActionUnfavorite, []string{"p1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Favorites["p1"] {
		t.Error("p1 still favorited after unfavorite")
	}
}

func TestApply_CartAddRemove(t *testing.T) {
	s := sessionWithResults()

	if _, err := Apply(s, ActionAdd, []string{"p3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Apply(s, ActionAdd, []string{"p3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Cart["p3"] != 2 {
		t.Errorf("quantity = %d, want 2", s.Cart["p3"])
	}

	if _, err := Apply(s, ActionRemove, []string{"p3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Cart["p3"]; ok {
		t.Error("remove must drop the whole line, not decrement")
	}
}

func TestApply_RemoveAfterResultsScrolledAway(t *testing.T) {
	s := sessionWithResults()
	if _, err := Apply(s, ActionAdd, []string{"p1"}); err != nil {
		t.Fatal(err)
	}

	// New search replaced the results; the cart entry must stay removable.
	s.LastResults = nil
	msg, err := Apply(s, ActionRemove, []string{"p1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Cart["p1"]; ok {
		t.Error("p1 still in cart")
	}
	if strings.Contains(msg, "couldn't find") {
		t.Errorf("removal reported a miss: %q", msg)
	}
}

func TestApply_UnknownIDs(t *testing.T) {
	s := sessionWithResults()

	msg, err := Apply(s, ActionAdd, []string{"nope"})
	if err != nil {
		t.Fatalf("unknown ids must not be fatal: %v", err)
	}
	if len(s.Cart) != 0 {
		t.Error("unknown product landed in the cart")
	}
	if !strings.Contains(msg, "couldn't find") {
		t.Errorf("message = %q", msg)
	}
}

func TestApply_CheckoutRequiresItems(t *testing.T) {
	s := sessionWithResults()

	msg, err := Apply(s, ActionCheckout, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stage == session.StageCheckout {
		t.Error("empty cart must not reach checkout")
	}
	if !strings.Contains(strings.ToLower(msg), "empty") {
		t.Errorf("message = %q", msg)
	}

	if _, err := Apply(s, ActionAdd, []string{"p2"}); err != nil {
		t.Fatal(err)
	}
	if _, err := Apply(s, ActionCheckout, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stage != session.StageCheckout {
		t.Errorf("stage = %v, want CHECKOUT", s.Stage)
	}
}

func TestTotal(t *testing.T) {
	s := sessionWithResults()
	s.Cart["p1"] = 1
	s.Cart["p3"] = 2
	s.Cart["vanished"] = 1

	// 150000 + 2*60000; unresolvable ids contribute nothing.
	if got := Total(s); got != 270000 {
		t.Errorf("total = %d, want 270000", got)
	}
}

func TestHumanList(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{nil, ""},
		{[]string{"A"}, "A"},
		{[]string{"A", "B"}, "A and B"},
		{[]string{"A", "B", "C"}, "A, B and C"},
	}
	for _, tt := range tests {
		if got := humanList(tt.items); got != tt.want {
			t.Errorf("humanList(%v) = %q, want %q", tt.items, got, tt.want)
		}
	}
}
