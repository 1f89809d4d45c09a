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
	"strconv"
)

// Value is a concrete slot value. The tagged representation keeps the
// extractor's snap-to-allowed-value guarantee checkable: categorical and
// free-text values live in Text, prices and integers in Int.
type Value struct {
	Kind ValueType `json:"kind"`
	Text string    `json:"text,omitempty"`
	// Int carries smallest-unit prices (cents) for price_range values and
	// plain integers for integer values.
	Int int64 `json:"int,omitempty"`
}

// TextValue builds a categorical or free-text value.
func TextValue(kind ValueType, s string) Value {
	return Value{Kind: kind, Text: s}
}

// PriceValue builds a price ceiling in smallest units.
func PriceValue(cents int64) Value {
	return Value{Kind: ValuePriceRange, Int: cents}
}

// IntValue builds an integer value.
func IntValue(n int64) Value {
	return Value{Kind: ValueInteger, Int: n}
}

// String renders the value for prompts and trace output.
func (v Value) String() string {
	switch v.Kind {
	case ValuePriceRange:
		return fmt.Sprintf("$%.2f", float64(v.Int)/100)
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	default:
		return v.Text
	}
}

// Filters maps slot keys to accumulated values for the current session.
type Filters map[string]Value

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns slot keys in stable order.
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot renders the filters as a plain string map for API responses.
func (f Filters) Snapshot() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		out[k] = v.String()
	}
	return out
}

// SoftPreferences are free-form likes and dislikes used for ranking,
// never for hard filtering.
type SoftPreferences struct {
	Liked    []string `json:"liked,omitempty"`
	Disliked []string `json:"disliked,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Merge folds newly extracted preferences in, de-duplicating entries.
func (p *SoftPreferences) Merge(other SoftPreferences) {
	p.Liked = appendUnique(p.Liked, other.Liked)
	p.Disliked = appendUnique(p.Disliked, other.Disliked)
	if other.Notes != "" {
		if p.Notes != "" {
			p.Notes += "; "
		}
		p.Notes += other.Notes
	}
}

// Empty reports whether no preferences have been collected.
func (p SoftPreferences) Empty() bool {
	return len(p.Liked) == 0 && len(p.Disliked) == 0 && p.Notes == ""
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if s != "" && !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
