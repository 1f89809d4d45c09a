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
	"fmt"
	"regexp"
	"strings"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/diversify"
	"github.com/kadirpekel/concierge/pkg/prompts"
)

var budgetPattern = regexp.MustCompile(`(?i)(?:under|below|less than|up to|around|about|max)?\s*\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k|thousand)?`)

// fallbackDomain keyword-matches the message against the supported
// verticals. Used when the detection model is unavailable.
func fallbackDomain(message string) catalog.Domain {
	for _, word := range strings.Fields(strings.ToLower(message)) {
		word = strings.Trim(word, ".,!?;:")
		if d := catalog.ParseDomain(word); d.Known() {
			return d
		}
		switch word {
		case "novel", "novels", "read", "reading", "paperback":
			return catalog.DomainBooks
		case "suv", "sedan", "truck", "drive", "driving":
			return catalog.DomainVehicles
		case "notebook", "ultrabook", "gaming", "pc":
			return catalog.DomainLaptops
		}
	}
	return catalog.DomainUnknown
}

// fallbackExtraction pulls only an explicit budget out of the message.
// Everything subtler waits for the model to come back.
func fallbackExtraction(message string, slots []catalog.Slot) *prompts.SlotExtraction {
	out := &prompts.SlotExtraction{}

	var priceSlot *catalog.Slot
	for i := range slots {
		if slots[i].ValueType == catalog.ValuePriceRange {
			priceSlot = &slots[i]
			break
		}
	}
	if priceSlot == nil {
		return out
	}

	lower := strings.ToLower(message)
	if !strings.ContainsAny(message, "$0123456789") {
		return out
	}
	// Require budget-ish phrasing so bare numbers ("16 inch") don't become
	// a price ceiling.
	budgety := strings.Contains(message, "$") ||
		strings.Contains(lower, "under") || strings.Contains(lower, "below") ||
		strings.Contains(lower, "budget") || strings.Contains(lower, "less than") ||
		strings.Contains(lower, "up to") || strings.Contains(lower, "max")
	if !budgety {
		return out
	}

	m := budgetPattern.FindStringSubmatch(message)
	if m == nil {
		return out
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	if m[2] != "" {
		raw += "000"
	}
	out.Filters = append(out.Filters, prompts.ExtractedFilter{Key: priceSlot.Key, Value: raw})
	return out
}

// fallbackExplanation renders a deterministic recommendation summary.
func fallbackExplanation(domain catalog.Domain, rows []diversify.Row, filters catalog.Filters) string {
	labels := make([]string, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Label)
	}
	msg := fmt.Sprintf("Here are some %s picks for you", domain)
	if len(filters) > 0 {
		msg += fmt.Sprintf(" matching %s", strings.Join(filterPhrases(filters), ", "))
	}
	msg += "."
	if len(labels) > 0 {
		msg += fmt.Sprintf(" I've grouped them into %s.", strings.Join(labels, ", "))
	}
	return msg
}

func filterPhrases(filters catalog.Filters) []string {
	out := make([]string, 0, len(filters))
	for _, k := range filters.Keys() {
		out = append(out, fmt.Sprintf("%s %s", strings.ReplaceAll(k, "_", " "), filters[k].String()))
	}
	return out
}
