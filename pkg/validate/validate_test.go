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

package validate

import "testing"

func TestCheck_Verdicts(t *testing.T) {
	v := New()

	tests := []struct {
		message string
		want    Verdict
	}{
		{"I need a laptop for work", Valid},
		{"under $500", Valid},
		{"$1500", Valid},
		{"less than 20k", Valid},
		{"hi", Greeting},
		{"Hello!", Greeting},
		{"good morning", Greeting},
		{"a", Invalid},
		{"12345", Invalid},
		{"???!!!", Invalid},
		{"xkcdqwrtz", Invalid},
		{"aeiouaeiou", Invalid},
	}
	for _, tt := range tests {
		got := v.Check(tt.message)
		if got.Verdict != tt.want {
			t.Errorf("Check(%q).Verdict = %v, want %v", tt.message, got.Verdict, tt.want)
		}
	}
}

func TestCheck_PriceIntent(t *testing.T) {
	v := New()

	res := v.Check("under $800")
	if res.Verdict != Valid {
		t.Fatalf("price message rejected: %v", res.Verdict)
	}
	if res.Intent != "price" {
		t.Errorf("Intent = %q, want price", res.Intent)
	}
}

func TestCheck_FuzzyCorrection(t *testing.T) {
	v := New()

	tests := []struct {
		message string
		want    string
	}{
		{"I want some boks", "I want some books"},
		{"looking for a laptpo", "looking for a laptop"},
		{"show me vehcles", "show me vehicles"},
		// Exact words stay untouched.
		{"I want some books", "I want some books"},
	}
	for _, tt := range tests {
		res := v.Check(tt.message)
		if res.Verdict != Valid {
			t.Errorf("Check(%q) verdict = %v, want Valid", tt.message, res.Verdict)
			continue
		}
		if res.Corrected != tt.want {
			t.Errorf("Check(%q).Corrected = %q, want %q", tt.message, res.Corrected, tt.want)
		}
	}
}

func TestMatchKeyword_Tolerance(t *testing.T) {
	// Short words never correct: "bk" must not become "book".
	if got, ok := matchKeyword("bk"); ok {
		t.Errorf("matchKeyword(bk) = %q, want no match", got)
	}
	// Distant words stay unmatched even within edit tolerance when
	// similarity falls under the floor.
	if got, ok := matchKeyword("xyzzy"); ok {
		t.Errorf("matchKeyword(xyzzy) = %q, want no match", got)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"book", "book", 0},
		{"boks", "books", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWithGreetings(t *testing.T) {
	v := New().WithGreetings([]string{"ahoy"})

	if got := v.Check("ahoy"); got.Verdict != Greeting {
		t.Errorf("custom greeting verdict = %v, want Greeting", got.Verdict)
	}
	if got := v.Check("hi there friend"); got.Verdict != Valid {
		t.Errorf("non-greeting verdict = %v, want Valid", got.Verdict)
	}
}
