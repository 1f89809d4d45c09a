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

// Package catalog defines the domain registry: the static description of
// supported product domains and their preference slots. Adding a domain
// means adding a registry entry plus a search backend binding.
package catalog

import (
	"math"
	"strconv"
	"strings"
)

// Domain identifies a product vertical with its own slot schema and
// search backend.
type Domain string

const (
	DomainVehicles Domain = "vehicles"
	DomainLaptops  Domain = "laptops"
	DomainBooks    Domain = "books"
	DomainUnknown  Domain = "unknown"
)

// ParseDomain normalizes a free-form domain string. Unrecognized values
// map to DomainUnknown.
func ParseDomain(s string) Domain {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vehicles", "vehicle", "cars", "car":
		return DomainVehicles
	case "laptops", "laptop", "computers", "computer":
		return DomainLaptops
	case "books", "book":
		return DomainBooks
	default:
		return DomainUnknown
	}
}

func (d Domain) String() string { return string(d) }

// Known reports whether the domain is a concrete product vertical.
func (d Domain) Known() bool {
	return d != DomainUnknown && d != ""
}

// Priority orders slots for the interview. HIGH slots are asked first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ValueType describes the shape of a slot value.
type ValueType string

const (
	ValueCategorical ValueType = "categorical"
	ValuePriceRange  ValueType = "price_range"
	ValueFreeText    ValueType = "free_text"
	ValueInteger     ValueType = "integer"
)

// PriceContext tells the extractor how to interpret bare numbers for a
// price slot. Books interpret "20" as $20; vehicles interpret "20" as $20k.
type PriceContext struct {
	Currency string
	// Scale multiplies a bare numeric budget into smallest-unit cents.
	// Books: 100 (dollars to cents). Vehicles: 100_000 (thousands to cents).
	Scale int64
	// Hint is embedded in extraction prompts.
	Hint string
}

// Slot is a semantic preference dimension on a domain.
type Slot struct {
	Key       string
	Priority  Priority
	ValueType ValueType

	// AllowedValues is the closed set for categorical slots. The extractor
	// must snap free text to one of these or leave the slot empty.
	AllowedValues []string

	// ExamplePrompt and ExampleReplies are the deterministic fallback when
	// LLM question generation is unavailable.
	ExamplePrompt  string
	ExampleReplies []string

	// RequiredForSearch keeps the interview going until this slot is
	// filled or the user signals impatience.
	RequiredForSearch bool

	// Price interpretation for price_range slots.
	PriceContext *PriceContext
}

// Allows reports whether v is a member of the slot's allowed values.
// Matching is case-insensitive; non-categorical slots allow anything.
func (s *Slot) Allows(v string) bool {
	if s.ValueType != ValueCategorical {
		return true
	}
	for _, a := range s.AllowedValues {
		if strings.EqualFold(a, v) {
			return true
		}
	}
	return false
}

// Canonical returns the allowed value matching v with the registry's
// casing, or "" if v does not snap to the closed set.
func (s *Slot) Canonical(v string) string {
	if s.ValueType != ValueCategorical {
		return v
	}
	for _, a := range s.AllowedValues {
		if strings.EqualFold(a, v) {
			return a
		}
	}
	return ""
}

// ParseValue converts an extracted string into a typed filter value,
// enforcing the snap-to-allowed-values rule for categorical slots. The
// second return is false when the value does not fit the slot.
func (s *Slot) ParseValue(raw string) (Value, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Value{}, false
	}

	switch s.ValueType {
	case ValueCategorical:
		canonical := s.Canonical(raw)
		if canonical == "" {
			return Value{}, false
		}
		return TextValue(ValueCategorical, canonical), true

	case ValuePriceRange:
		cents, ok := parsePrice(raw, s.PriceContext)
		if !ok {
			return Value{}, false
		}
		return PriceValue(cents), true

	case ValueInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, false
		}
		return IntValue(n), true

	default:
		return TextValue(ValueFreeText, raw), true
	}
}

// parsePrice converts a budget string into smallest-unit cents using the
// slot's price context. Bare numbers scale per domain: "20" is $20 for
// books but $20k for vehicles.
func parsePrice(raw string, pc *PriceContext) (int64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	if strings.HasSuffix(s, "k") {
		multiplier = 1000
		s = strings.TrimSuffix(s, "k")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	f *= multiplier

	scale := int64(100)
	if pc != nil && pc.Scale > 0 {
		scale = pc.Scale
	}
	// An explicit dollar amount overrides the domain's bare-number scale:
	// "$25000" for a vehicle is dollars, not thousands.
	if multiplier > 1 || strings.HasPrefix(strings.TrimSpace(raw), "$") || f >= 1000 {
		scale = 100
	}
	return int64(math.Round(f * float64(scale))), true
}
