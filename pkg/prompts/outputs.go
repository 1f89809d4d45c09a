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

// Package prompts holds the prompt templates and typed output schemas for
// every structured LLM call the pipeline makes. Each output type is a
// closed record; unknown fields in model output are dropped on decode.
package prompts

import "github.com/kadirpekel/concierge/pkg/llms"

// DomainDetection is the output of the domain detection stage.
type DomainDetection struct {
	Domain     string  `json:"domain" jsonschema:"enum=vehicles,enum=laptops,enum=books,enum=unknown"`
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1"`
}

// ExtractedFilter is one slot assignment proposed by the extractor. Values
// arrive as strings; the pipeline snaps categorical values to the slot's
// allowed set and parses prices with the slot's price context.
type ExtractedFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExtractedPreferences mirrors catalog.SoftPreferences on the wire.
type ExtractedPreferences struct {
	Liked    []string `json:"liked"`
	Disliked []string `json:"disliked"`
	Notes    string   `json:"notes"`
}

// SlotExtraction is the output of the slot extraction stage. The interview
// decision is folded in: the extractor also flags impatience and explicit
// requests for recommendations.
type SlotExtraction struct {
	Filters                []ExtractedFilter    `json:"filters"`
	Soft                   ExtractedPreferences `json:"soft_preferences"`
	Impatience             bool                 `json:"impatience"`
	AsksForRecommendations bool                 `json:"asks_for_recommendations"`
}

// GeneratedQuestion is the output of the question generation stage.
type GeneratedQuestion struct {
	Question     string   `json:"question"`
	QuickReplies []string `json:"quick_replies"`
	SlotKey      string   `json:"slot_key"`
}

// Explanation is the output of the recommendation explanation stage.
type Explanation struct {
	Message string `json:"message"`
}

// Refinement is the output of the post-recommendation classifier.
type Refinement struct {
	Intent           string            `json:"intent" jsonschema:"enum=filter_change,enum=domain_switch,enum=new_search,enum=research,enum=compare,enum=cart,enum=chat"`
	FilterDelta      []ExtractedFilter `json:"filter_delta"`
	RemoveFilters    []string          `json:"remove_filters"`
	Domain           string            `json:"domain"`
	TargetProductIDs []string          `json:"target_product_ids"`
	CartAction       string            `json:"cart_action" jsonschema:"enum=,enum=favorite,enum=unfavorite,enum=add,enum=remove,enum=checkout"`
	Reply            string            `json:"reply"`
}

// Validation is the optional LLM fallback for the input validator.
type Validation struct {
	Valid               bool   `json:"valid"`
	Intent              string `json:"intent"`
	SuggestedCorrection string `json:"suggested_correction"`
}

// Schemas generated once at init; reused for every call.
var (
	DomainDetectionSchema = llms.MustSchemaFor(&DomainDetection{})
	SlotExtractionSchema  = llms.MustSchemaFor(&SlotExtraction{})
	QuestionSchema        = llms.MustSchemaFor(&GeneratedQuestion{})
	ExplanationSchema     = llms.MustSchemaFor(&Explanation{})
	RefinementSchema      = llms.MustSchemaFor(&Refinement{})
	ValidationSchema      = llms.MustSchemaFor(&Validation{})
)
