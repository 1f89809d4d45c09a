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

// Package search defines the search backend capability and the dispatcher
// that routes per-domain queries with progressive filter relaxation.
package search

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kadirpekel/concierge/pkg/catalog"
)

// ErrBackendUnavailable is returned when no backend is bound for a domain
// or the bound backend cannot serve queries.
var ErrBackendUnavailable = errors.New("search backend unavailable")

// ProductSummary is the cross-domain record every backend returns.
// Candidates arrive already ranked; the core never re-scores them beyond
// diversification.
type ProductSummary struct {
	ID          string `json:"id"`
	ProductType string `json:"product_type"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	// Price is in the currency's smallest unit (cents for USD).
	Price        int64   `json:"price"`
	Currency     string  `json:"currency"`
	ImageURL     string  `json:"image_url,omitempty"`
	Available    bool    `json:"available"`
	Rating       float64 `json:"rating,omitempty"`
	ReviewsCount int     `json:"reviews_count,omitempty"`
	Description  string  `json:"description,omitempty"`

	// Domain-specific detail blocks, carried verbatim and opaque.
	Vehicle json.RawMessage `json:"vehicle,omitempty"`
	Laptop  json.RawMessage `json:"laptop,omitempty"`
	Book    json.RawMessage `json:"book,omitempty"`

	// Attributes exposes flat categorical axes (body_style, genre,
	// use_case, ...) for diversification without opening the detail block.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Query is one backend search.
type Query struct {
	Domain  catalog.Domain
	Filters catalog.Filters
	Soft    catalog.SoftPreferences
	Limit   int
}

// Result is what a backend returns for a query.
type Result struct {
	Candidates []ProductSummary
	// Provenance identifies the backend and ranking method for the trace.
	Provenance string
}

// Backend is the capability a product catalog implements. Backends must be
// safe for concurrent use and honor context cancellation.
type Backend interface {
	Search(ctx context.Context, q Query) (*Result, error)
	// Healthy reports whether the backend can currently serve queries.
	Healthy(ctx context.Context) error
}
