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

// Package diversify shapes a ranked candidate list into labeled rows along
// the categorical axis with the highest Shannon entropy, defaulting to
// price buckets when no axis spreads the candidates well.
package diversify

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kadirpekel/concierge/pkg/search"
)

// DimensionPrice is the fallback axis, always available.
const DimensionPrice = "price_bucket"

// Row is one labeled horizontal group of recommendations.
type Row struct {
	Label     string                  `json:"label"`
	Dimension string                  `json:"dimension"`
	Value     string                  `json:"value"`
	Items     []search.ProductSummary `json:"items"`
}

// Diversifier groups candidates into Rows x PerRow.
type Diversifier struct {
	Rows   int
	PerRow int
	// EntropyFloor is the minimum entropy (in bits) an axis must exceed to
	// beat the price fallback.
	EntropyFloor float64
}

// New creates a diversifier with the given grid shape.
func New(rows, perRow int) *Diversifier {
	if rows < 1 {
		rows = 3
	}
	if perRow < 1 {
		perRow = 3
	}
	return &Diversifier{Rows: rows, PerRow: perRow, EntropyFloor: 0.5}
}

// Bucket groups candidates into at most Rows labeled rows. Candidates
// keep their backend ranking inside each row; no candidate appears twice.
func (d *Diversifier) Bucket(candidates []search.ProductSummary) []Row {
	if len(candidates) == 0 {
		return nil
	}

	axes := d.collectAxes(candidates)

	best := DimensionPrice
	bestEntropy := axes[DimensionPrice].entropy()
	for name, axis := range axes {
		if name == DimensionPrice {
			continue
		}
		e := axis.entropy()
		if e > bestEntropy && e > d.EntropyFloor {
			best = name
			bestEntropy = e
		}
	}

	return d.assemble(candidates, best, axes[best])
}

// axisValues maps candidate index -> axis value, plus per-value counts.
type axisValues struct {
	byIndex []string
	counts  map[string]int
	total   int
}

func (a *axisValues) entropy() float64 {
	if a == nil || a.total == 0 {
		return 0
	}
	var h float64
	for _, n := range a.counts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(a.total)
		h -= p * math.Log2(p)
	}
	return h
}

// contribution is the -p*log2(p) share of one value; rows are ordered by it.
func (a *axisValues) contribution(value string) float64 {
	n := a.counts[value]
	if n == 0 || a.total == 0 {
		return 0
	}
	p := float64(n) / float64(a.total)
	return -p * math.Log2(p)
}

func (d *Diversifier) collectAxes(candidates []search.ProductSummary) map[string]*axisValues {
	axes := make(map[string]*axisValues)

	add := func(name string, idx int, value string) {
		axis, ok := axes[name]
		if !ok {
			axis = &axisValues{
				byIndex: make([]string, len(candidates)),
				counts:  make(map[string]int),
			}
			axes[name] = axis
		}
		axis.byIndex[idx] = value
		if value != "" {
			axis.counts[value]++
			axis.total++
		}
	}

	buckets := priceBuckets(candidates, d.Rows)
	for i, p := range candidates {
		add(DimensionPrice, i, buckets.valueFor(p.Price))
		if p.Brand != "" {
			add("brand", i, p.Brand)
		}
		for k, v := range p.Attributes {
			if v != "" {
				add(k, i, v)
			}
		}
	}
	return axes
}

func (d *Diversifier) assemble(candidates []search.ProductSummary, dimension string, axis *axisValues) []Row {
	// Pick the top R values by entropy contribution, ties broken by count
	// then lexicographically for determinism.
	values := make([]string, 0, len(axis.counts))
	for v := range axis.counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		ci, cj := axis.contribution(values[i]), axis.contribution(values[j])
		if ci != cj {
			return ci > cj
		}
		if axis.counts[values[i]] != axis.counts[values[j]] {
			return axis.counts[values[i]] > axis.counts[values[j]]
		}
		return values[i] < values[j]
	})
	if len(values) > d.Rows {
		values = values[:d.Rows]
	}

	used := make([]bool, len(candidates))
	rows := make([]Row, 0, len(values))

	for _, value := range values {
		row := Row{
			Label:     rowLabel(dimension, value),
			Dimension: dimension,
			Value:     value,
		}
		for i := range candidates {
			if len(row.Items) >= d.PerRow {
				break
			}
			if used[i] || axis.byIndex[i] != value {
				continue
			}
			row.Items = append(row.Items, candidates[i])
			used[i] = true
		}
		if len(row.Items) > 0 {
			rows = append(rows, row)
		}
	}

	// Fill short rows with unmatched top-ranked remainders, preserving
	// the backend ranking.
	for r := range rows {
		for i := range candidates {
			if len(rows[r].Items) >= d.PerRow {
				break
			}
			if used[i] {
				continue
			}
			rows[r].Items = append(rows[r].Items, candidates[i])
			used[i] = true
		}
	}

	return rows
}

// priceBucketSet holds quantile boundaries over the candidate price set.
type priceBucketSet struct {
	bounds []int64 // ascending upper bounds, last is +inf sentinel
	labels []string
}

func priceBuckets(candidates []search.ProductSummary, n int) *priceBucketSet {
	prices := make([]int64, 0, len(candidates))
	for _, p := range candidates {
		prices = append(prices, p.Price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	if n < 2 || len(prices) == 0 {
		return &priceBucketSet{bounds: []int64{math.MaxInt64}, labels: []string{"All prices"}}
	}

	set := &priceBucketSet{}
	for i := 1; i < n; i++ {
		idx := i * len(prices) / n
		if idx >= len(prices) {
			idx = len(prices) - 1
		}
		set.bounds = append(set.bounds, prices[idx])
	}
	set.bounds = append(set.bounds, math.MaxInt64)

	tierNames := []string{"Budget-Friendly", "Mid-Range", "Premium"}
	var lower int64
	for i, bound := range set.bounds {
		name := "Tier"
		if i < len(tierNames) {
			name = tierNames[i]
		}
		upper := bound
		if upper == math.MaxInt64 {
			set.labels = append(set.labels, fmt.Sprintf("%s (over %s)", name, dollars(lower)))
		} else {
			set.labels = append(set.labels, fmt.Sprintf("%s (%s–%s)", name, dollars(lower), dollars(upper)))
		}
		lower = bound
	}
	return set
}

func (s *priceBucketSet) valueFor(price int64) string {
	for i, bound := range s.bounds {
		if price < bound || bound == math.MaxInt64 {
			return s.labels[i]
		}
	}
	return s.labels[len(s.labels)-1]
}

func dollars(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func rowLabel(dimension, value string) string {
	if dimension == DimensionPrice {
		return value
	}
	switch dimension {
	case "use_case":
		return titleCase(value) + " Focus"
	case "genre":
		return titleCase(value)
	case "body_style":
		return titleCase(value) + "s"
	case "brand":
		return value
	default:
		return titleCase(value)
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
