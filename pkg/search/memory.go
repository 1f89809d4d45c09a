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
	"sort"
	"strconv"
	"strings"

	"github.com/kadirpekel/concierge/pkg/catalog"
)

// MemoryBackend serves a fixed product list. It backs domains with no
// external store configured and doubles as the test backend.
type MemoryBackend struct {
	domain catalog.Domain
	items  []ProductSummary
}

// NewMemoryBackend creates a backend over a static product list.
func NewMemoryBackend(domain catalog.Domain, items []ProductSummary) *MemoryBackend {
	return &MemoryBackend{domain: domain, items: items}
}

func (b *MemoryBackend) Search(_ context.Context, q Query) (*Result, error) {
	var candidates []ProductSummary
	for _, p := range b.items {
		if Matches(&p, q.Filters) {
			candidates = append(candidates, p)
		}
	}

	RankCandidates(candidates, q.Soft)

	if q.Limit > 0 && len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	return &Result{Candidates: candidates, Provenance: "memory:" + b.domain.String()}, nil
}

func (b *MemoryBackend) Healthy(context.Context) error { return nil }

// Matches applies the hard filters to one product. Price values are
// ceilings, integers are minimums, text values match the product's brand
// or attribute for the slot key.
func Matches(p *ProductSummary, filters catalog.Filters) bool {
	for key, v := range filters {
		switch v.Kind {
		case catalog.ValuePriceRange:
			if p.Price > v.Int {
				return false
			}
		case catalog.ValueInteger:
			attr, ok := p.Attributes[key]
			if !ok {
				return false
			}
			n, err := strconv.ParseInt(attr, 10, 64)
			if err != nil || n < v.Int {
				return false
			}
		default:
			if key == "brand" {
				if !strings.EqualFold(p.Brand, v.Text) {
					return false
				}
				continue
			}
			if !strings.EqualFold(p.Attributes[key], v.Text) {
				return false
			}
		}
	}
	return true
}

// RankCandidates orders candidates by soft-preference affinity, then
// rating, then price. Soft preferences bias ranking; they never exclude.
func RankCandidates(candidates []ProductSummary, soft catalog.SoftPreferences) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := softScore(&candidates[i], soft), softScore(&candidates[j], soft)
		if si != sj {
			return si > sj
		}
		if candidates[i].Rating != candidates[j].Rating {
			return candidates[i].Rating > candidates[j].Rating
		}
		return candidates[i].Price < candidates[j].Price
	})
}

func softScore(p *ProductSummary, soft catalog.SoftPreferences) int {
	if soft.Empty() {
		return 0
	}
	haystack := strings.ToLower(p.Name + " " + p.Brand + " " + p.Description)
	for _, a := range p.Attributes {
		haystack += " " + strings.ToLower(a)
	}

	score := 0
	for _, like := range soft.Liked {
		if like != "" && strings.Contains(haystack, strings.ToLower(like)) {
			score++
		}
	}
	for _, dislike := range soft.Disliked {
		if dislike != "" && strings.Contains(haystack, strings.ToLower(dislike)) {
			score--
		}
	}
	return score
}
