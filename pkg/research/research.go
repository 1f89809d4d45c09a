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

// Package research answers "tell me more" and "compare these" requests
// about products the user has already been shown.
package research

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kadirpekel/concierge/pkg/search"
)

// Service produces product detail and comparison text.
type Service interface {
	// Describe expands on one or more products.
	Describe(ctx context.Context, products []search.ProductSummary) (string, error)
	// Compare contrasts two or more products.
	Compare(ctx context.Context, products []search.ProductSummary) (string, error)
}

// StaticService composes answers from the catalog data already attached to
// each product. No external calls.
type StaticService struct{}

// NewStatic creates a catalog-data-only research service.
func NewStatic() *StaticService {
	return &StaticService{}
}

func (s *StaticService) Describe(_ context.Context, products []search.ProductSummary) (string, error) {
	if len(products) == 0 {
		return "", fmt.Errorf("no products to describe")
	}
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s by %s, %s", p.Name, orUnknown(p.Brand), dollars(p.Price))
		if p.Rating > 0 {
			fmt.Fprintf(&b, ", rated %.1f", p.Rating)
			if p.ReviewsCount > 0 {
				fmt.Fprintf(&b, " across %d reviews", p.ReviewsCount)
			}
		}
		b.WriteString(".")
		if p.Description != "" {
			b.WriteString(" " + p.Description)
		}
		if attrs := renderAttributes(p.Attributes); attrs != "" {
			b.WriteString(" Key specs: " + attrs + ".")
		}
		if !p.Available {
			b.WriteString(" Currently out of stock.")
		}
	}
	return b.String(), nil
}

func (s *StaticService) Compare(_ context.Context, products []search.ProductSummary) (string, error) {
	if len(products) < 2 {
		return "", fmt.Errorf("need at least two products to compare, got %d", len(products))
	}

	var b strings.Builder
	cheapest := products[0]
	best := products[0]
	for _, p := range products[1:] {
		if p.Price < cheapest.Price {
			cheapest = p
		}
		if p.Rating > best.Rating {
			best = p
		}
	}

	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	fmt.Fprintf(&b, "Comparing %s.\n\n", strings.Join(names, " vs "))

	for _, p := range products {
		fmt.Fprintf(&b, "- %s (%s): %s", p.Name, orUnknown(p.Brand), dollars(p.Price))
		if p.Rating > 0 {
			fmt.Fprintf(&b, ", rated %.1f", p.Rating)
		}
		if attrs := renderAttributes(p.Attributes); attrs != "" {
			b.WriteString("; " + attrs)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%s is the most affordable at %s.", cheapest.Name, dollars(cheapest.Price))
	if best.Rating > 0 && best.ID != cheapest.ID {
		fmt.Fprintf(&b, " %s has the strongest rating at %.1f.", best.Name, best.Rating)
	}
	return b.String(), nil
}

func renderAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", strings.ReplaceAll(k, "_", " "), attrs[k]))
	}
	return strings.Join(parts, ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown brand"
	}
	return s
}

func dollars(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
