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

package catalog

import (
	"fmt"
	"sort"
)

// Registry is the read-only table of domains and their slots.
// It is safe for concurrent use: entries are never mutated after New.
type Registry struct {
	domains map[Domain][]Slot
	order   []Domain
}

// New builds a registry from domain specs. Slot keys must be unique
// within a domain.
func New(specs map[Domain][]Slot) (*Registry, error) {
	r := &Registry{domains: make(map[Domain][]Slot, len(specs))}
	for domain, slots := range specs {
		seen := make(map[string]bool, len(slots))
		for _, s := range slots {
			if s.Key == "" {
				return nil, fmt.Errorf("domain %s: slot key cannot be empty", domain)
			}
			if seen[s.Key] {
				return nil, fmt.Errorf("domain %s: duplicate slot key %q", domain, s.Key)
			}
			seen[s.Key] = true
			if s.ValueType == ValueCategorical && len(s.AllowedValues) == 0 {
				return nil, fmt.Errorf("domain %s: categorical slot %q has no allowed values", domain, s.Key)
			}
		}
		r.domains[domain] = slots
		r.order = append(r.order, domain)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })
	return r, nil
}

// Domains returns the registered domains in stable order.
func (r *Registry) Domains() []Domain {
	out := make([]Domain, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether the domain is registered.
func (r *Registry) Has(d Domain) bool {
	_, ok := r.domains[d]
	return ok
}

// Slots returns the domain's slots ordered by priority tier (HIGH first),
// preserving registry order within a tier. The interview asks slots in
// exactly this order.
func (r *Registry) Slots(d Domain) []Slot {
	slots, ok := r.domains[d]
	if !ok {
		return nil
	}
	out := make([]Slot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Slot looks up a single slot by key.
func (r *Registry) Slot(d Domain, key string) (*Slot, bool) {
	for _, s := range r.domains[d] {
		if s.Key == key {
			slot := s
			return &slot, true
		}
	}
	return nil, false
}

// Default returns the built-in registry: vehicles, laptops and books.
func Default() *Registry {
	r, err := New(builtinDomains())
	if err != nil {
		// builtinDomains is static; a failure here is a programmer error.
		panic(err)
	}
	return r
}

func builtinDomains() map[Domain][]Slot {
	dollars := &PriceContext{Currency: "USD", Scale: 100, Hint: "bare numbers are US dollars"}
	thousands := &PriceContext{Currency: "USD", Scale: 100_000, Hint: "bare numbers under 1000 are thousands of US dollars"}

	return map[Domain][]Slot{
		DomainLaptops: {
			{
				Key:               "budget",
				Priority:          PriorityHigh,
				ValueType:         ValuePriceRange,
				ExamplePrompt:     "What's your budget for the laptop? Feel free to share anything else you care about.",
				ExampleReplies:    []string{"Under $800", "$800–$1,500", "Over $1,500"},
				RequiredForSearch: true,
				PriceContext:      dollars,
			},
			{
				Key:               "use_case",
				Priority:          PriorityHigh,
				ValueType:         ValueCategorical,
				AllowedValues:     []string{"gaming", "work", "creative", "student", "everyday"},
				ExamplePrompt:     "What will you mainly use the laptop for? Or feel free to share anything else you care about.",
				ExampleReplies:    []string{"Gaming", "Work", "Creative", "Everyday"},
				RequiredForSearch: true,
			},
			{
				Key:            "brand",
				Priority:       PriorityMedium,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"Apple", "Dell", "Lenovo", "HP", "ASUS", "Acer", "MSI", "Razer"},
				ExamplePrompt:  "Any brand preference? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Apple", "Dell", "Lenovo", "No preference"},
			},
			{
				Key:            "screen_size",
				Priority:       PriorityMedium,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"13\"", "14\"", "15\"", "16\"", "17\""},
				ExamplePrompt:  "What screen size do you prefer? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"13\"", "15\"", "17\""},
			},
			{
				Key:            "gpu_vendor",
				Priority:       PriorityLow,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"NVIDIA", "AMD", "Intel", "Apple"},
				ExamplePrompt:  "Do you need a dedicated GPU vendor? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"NVIDIA", "AMD", "Doesn't matter"},
			},
			{
				Key:            "ram_gb",
				Priority:       PriorityLow,
				ValueType:      ValueInteger,
				ExamplePrompt:  "How much memory do you need? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"8 GB", "16 GB", "32 GB"},
			},
		},
		DomainBooks: {
			{
				Key:               "genre",
				Priority:          PriorityHigh,
				ValueType:         ValueCategorical,
				AllowedValues:     []string{"mystery", "sci-fi", "fantasy", "romance", "thriller", "biography", "history", "self-help"},
				ExamplePrompt:     "What genre are you in the mood for? Or feel free to share anything else you care about.",
				ExampleReplies:    []string{"Mystery", "Sci-fi", "Biography"},
				RequiredForSearch: true,
			},
			{
				Key:            "budget",
				Priority:       PriorityHigh,
				ValueType:      ValuePriceRange,
				ExamplePrompt:  "How much would you like to spend? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Under $15", "$15–$30", "Doesn't matter"},
				PriceContext:   dollars,
			},
			{
				Key:            "format",
				Priority:       PriorityMedium,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"hardcover", "paperback", "ebook", "audiobook"},
				ExamplePrompt:  "Do you prefer a particular format? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Hardcover", "Paperback", "Ebook"},
			},
			{
				Key:            "length",
				Priority:       PriorityLow,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"short", "medium", "long"},
				ExamplePrompt:  "Short read or a long one? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Short", "Long", "No preference"},
			},
		},
		DomainVehicles: {
			{
				Key:               "budget",
				Priority:          PriorityHigh,
				ValueType:         ValuePriceRange,
				ExamplePrompt:     "What's your budget for the vehicle? Feel free to share anything else you care about.",
				ExampleReplies:    []string{"Under $20k", "$20k–$40k", "Over $40k"},
				RequiredForSearch: true,
				PriceContext:      thousands,
			},
			{
				Key:               "body_style",
				Priority:          PriorityHigh,
				ValueType:         ValueCategorical,
				AllowedValues:     []string{"sedan", "suv", "truck", "hatchback", "coupe", "minivan", "wagon"},
				ExamplePrompt:     "What body style are you after? Or feel free to share anything else you care about.",
				ExampleReplies:    []string{"Sedan", "SUV", "Truck"},
				RequiredForSearch: true,
			},
			{
				Key:            "brand",
				Priority:       PriorityMedium,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"Toyota", "Honda", "Ford", "Chevrolet", "BMW", "Mercedes-Benz", "Tesla", "Hyundai", "Kia", "Subaru"},
				ExamplePrompt:  "Any make you prefer? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Toyota", "Ford", "No preference"},
			},
			{
				Key:            "fuel_type",
				Priority:       PriorityLow,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"gas", "hybrid", "electric", "diesel"},
				ExamplePrompt:  "Gas, hybrid or electric? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Gas", "Hybrid", "Electric"},
			},
			{
				Key:            "color",
				Priority:       PriorityLow,
				ValueType:      ValueCategorical,
				AllowedValues:  []string{"black", "white", "silver", "gray", "blue", "red"},
				ExamplePrompt:  "Any color preference? Or feel free to share anything else you care about.",
				ExampleReplies: []string{"Black", "White", "No preference"},
			},
		},
	}
}
