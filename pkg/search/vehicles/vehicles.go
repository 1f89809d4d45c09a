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

// Package vehicles is the in-process vehicle search backend. Hard filters
// run over the fleet directly; soft preferences re-rank via an embedded
// chromem vector index when an embedding function is configured, and fall
// back to keyword affinity when not.
package vehicles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/search"
)

const collectionName = "vehicles"

// Backend serves vehicle searches from an in-memory fleet plus an
// optional chromem similarity index.
type Backend struct {
	mu    sync.RWMutex
	fleet []search.ProductSummary

	db          *chromem.DB
	col         *chromem.Collection
	persistPath string
	embed       chromem.EmbeddingFunc
}

// Option configures the backend.
type Option func(*Backend)

// WithPersistPath stores the vector index on disk (gzip compressed).
func WithPersistPath(path string) Option {
	return func(b *Backend) {
		b.persistPath = path
	}
}

// WithEmbedding enables semantic re-ranking with the given embedding
// function (e.g. chromem.NewEmbeddingFuncOpenAI).
func WithEmbedding(fn chromem.EmbeddingFunc) Option {
	return func(b *Backend) {
		b.embed = fn
	}
}

// New creates the backend and indexes the fleet.
func New(fleet []search.ProductSummary, opts ...Option) (*Backend, error) {
	b := &Backend{fleet: fleet}
	for _, opt := range opts {
		opt(b)
	}

	if b.embed == nil {
		slog.Info("Vehicle backend running without embeddings, soft preferences use keyword affinity")
		return b, nil
	}

	if err := b.initIndex(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) initIndex() error {
	if b.persistPath != "" {
		if err := os.MkdirAll(b.persistPath, 0755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
		db, err := chromem.NewPersistentDB(b.persistPath, true)
		if err != nil {
			slog.Warn("Failed to load vehicle index, rebuilding in memory", "error", err)
			b.db = chromem.NewDB()
		} else {
			b.db = db
		}
	} else {
		b.db = chromem.NewDB()
	}

	col, err := b.db.GetOrCreateCollection(collectionName, nil, b.embed)
	if err != nil {
		return fmt.Errorf("failed to create vehicle collection: %w", err)
	}
	b.col = col

	if col.Count() >= len(b.fleet) {
		return nil
	}

	docs := make([]chromem.Document, 0, len(b.fleet))
	for _, p := range b.fleet {
		docs = append(docs, chromem.Document{
			ID:      p.ID,
			Content: documentText(p),
		})
	}
	if err := col.AddDocuments(context.Background(), docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to index fleet: %w", err)
	}
	return nil
}

// documentText flattens a vehicle into the text that gets embedded.
func documentText(p search.ProductSummary) string {
	parts := []string{p.Name, p.Brand, p.Description}
	for k, v := range p.Attributes {
		parts = append(parts, strings.ReplaceAll(k, "_", " ")+" "+v)
	}
	return strings.Join(parts, ". ")
}

// Search applies hard filters over the fleet and ranks by semantic
// similarity to the soft preferences when the index is available.
func (b *Backend) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var candidates []search.ProductSummary
	for _, p := range b.fleet {
		if search.Matches(&p, q.Filters) {
			candidates = append(candidates, p)
		}
	}

	provenance := "fleet:vehicles"
	if b.col != nil && !q.Soft.Empty() && len(candidates) > 1 {
		if err := b.rerank(ctx, candidates, q.Soft); err != nil {
			slog.Warn("Semantic rerank failed, using keyword affinity", "error", err)
			search.RankCandidates(candidates, q.Soft)
		} else {
			provenance = "chromem:vehicles"
		}
	} else {
		search.RankCandidates(candidates, q.Soft)
	}

	if q.Limit > 0 && len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}
	return &search.Result{Candidates: candidates, Provenance: provenance}, nil
}

// rerank orders candidates by similarity to the soft-preference text.
func (b *Backend) rerank(ctx context.Context, candidates []search.ProductSummary, soft catalog.SoftPreferences) error {
	queryText := strings.TrimSpace(strings.Join(append(append([]string{}, soft.Liked...), soft.Notes), " "))
	if queryText == "" {
		search.RankCandidates(candidates, soft)
		return nil
	}

	n := b.col.Count()
	if n == 0 {
		return fmt.Errorf("empty vehicle index")
	}
	results, err := b.col.Query(ctx, queryText, n, nil, nil)
	if err != nil {
		return err
	}

	similarity := make(map[string]float32, len(results))
	for _, r := range results {
		similarity[r.ID] = r.Similarity
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := similarity[candidates[i].ID], similarity[candidates[j].ID]
		if si != sj {
			return si > sj
		}
		return candidates[i].Rating > candidates[j].Rating
	})
	return nil
}

// Healthy reports index readiness; the fleet itself cannot fail.
func (b *Backend) Healthy(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.fleet) == 0 {
		return fmt.Errorf("%w: vehicle fleet is empty", search.ErrBackendUnavailable)
	}
	return nil
}

var _ search.Backend = (*Backend)(nil)
