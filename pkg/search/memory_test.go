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

package search

import (
	"context"
	"testing"

	"github.com/kadirpekel/concierge/pkg/catalog"
)

func laptop(id, brand string, price int64, rating float64, attrs map[string]string) ProductSummary {
	return ProductSummary{
		ID:         id,
		Name:       "Laptop " + id,
		Brand:      brand,
		Price:      price,
		Currency:   "USD",
		Available:  true,
		Rating:     rating,
		Attributes: attrs,
	}
}

func TestMatches(t *testing.T) {
	p := laptop("l1", "Dell", 120000, 4.5, map[string]string{
		"use_case": "work",
		"ram_gb":   "16",
	})

	tests := []struct {
		name    string
		filters catalog.Filters
		want    bool
	}{
		{"no filters", catalog.Filters{}, true},
		{"price under ceiling", catalog.Filters{"budget": catalog.PriceValue(150000)}, true},
		{"price over ceiling", catalog.Filters{"budget": catalog.PriceValue(100000)}, false},
		{"brand case-insensitive", catalog.Filters{"brand": catalog.TextValue(catalog.ValueCategorical, "dell")}, true},
		{"brand mismatch", catalog.Filters{"brand": catalog.TextValue(catalog.ValueCategorical, "Apple")}, false},
		{"attribute match", catalog.Filters{"use_case": catalog.TextValue(catalog.ValueCategorical, "Work")}, true},
		{"attribute mismatch", catalog.Filters{"use_case": catalog.TextValue(catalog.ValueCategorical, "gaming")}, false},
		{"integer minimum met", catalog.Filters{"ram_gb": catalog.IntValue(16)}, true},
		{"integer minimum not met", catalog.Filters{"ram_gb": catalog.IntValue(32)}, false},
		{"integer attribute missing", catalog.Filters{"storage_gb": catalog.IntValue(512)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(&p, tt.filters); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankCandidates(t *testing.T) {
	candidates := []ProductSummary{
		laptop("cheap", "Acer", 50000, 4.0, nil),
		laptop("rated", "Dell", 90000, 4.8, nil),
		laptop("liked", "Razer", 150000, 3.9, map[string]string{"use_case": "gaming"}),
	}

	// Soft preferences outrank rating and price, but never exclude.
	RankCandidates(candidates, catalog.SoftPreferences{Liked: []string{"gaming"}})
	if candidates[0].ID != "liked" {
		t.Errorf("first candidate = %s, want liked", candidates[0].ID)
	}
	if len(candidates) != 3 {
		t.Errorf("ranking dropped candidates: %d", len(candidates))
	}

	// Without preferences, rating wins, then price.
	RankCandidates(candidates, catalog.SoftPreferences{})
	if candidates[0].ID != "rated" {
		t.Errorf("first candidate = %s, want rated", candidates[0].ID)
	}
}

func TestMemoryBackend_Search(t *testing.T) {
	backend := NewMemoryBackend(catalog.DomainLaptops, []ProductSummary{
		laptop("l1", "Dell", 80000, 4.2, map[string]string{"use_case": "work"}),
		laptop("l2", "Apple", 200000, 4.8, map[string]string{"use_case": "creative"}),
		laptop("l3", "Dell", 120000, 4.5, map[string]string{"use_case": "work"}),
	})

	result, err := backend.Search(context.Background(), Query{
		Domain: catalog.DomainLaptops,
		Filters: catalog.Filters{
			"budget": catalog.PriceValue(150000),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates under budget, got %d", len(result.Candidates))
	}
	if result.Provenance != "memory:laptops" {
		t.Errorf("provenance = %q", result.Provenance)
	}
	// Ranked by rating.
	if result.Candidates[0].ID != "l3" {
		t.Errorf("first candidate = %s, want l3", result.Candidates[0].ID)
	}

	// Limit trims after ranking.
	result, err = backend.Search(context.Background(), Query{Domain: catalog.DomainLaptops, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Errorf("expected limit to trim to 1, got %d", len(result.Candidates))
	}
}
