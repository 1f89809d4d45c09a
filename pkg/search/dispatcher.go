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
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kadirpekel/concierge/pkg/catalog"
)

// Trace records what the dispatcher did for one search.
type Trace struct {
	Applied    []string `json:"applied"`
	Relaxed    []string `json:"relaxed,omitempty"`
	Notes      []string `json:"notes,omitempty"`
	Provenance string   `json:"provenance,omitempty"`
}

// Dispatcher routes searches to the backend registered for a domain and
// progressively relaxes low-priority filters until the result count meets
// the minimum threshold.
type Dispatcher struct {
	registry *catalog.Registry

	mu       sync.RWMutex
	backends map[catalog.Domain]Backend
	sems     map[catalog.Domain]*semaphore.Weighted

	minResults  int
	concurrency int64
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMinResults sets the relaxation threshold (default 9).
func WithMinResults(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.minResults = n
		}
	}
}

// WithBackendConcurrency bounds in-flight searches per backend.
func WithBackendConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = int64(n)
		}
	}
}

// NewDispatcher creates a dispatcher over the domain registry.
func NewDispatcher(registry *catalog.Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		backends:    make(map[catalog.Domain]Backend),
		sems:        make(map[catalog.Domain]*semaphore.Weighted),
		minResults:  9,
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bind registers a backend for a domain, replacing any previous binding.
func (d *Dispatcher) Bind(domain catalog.Domain, backend Backend) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backends[domain] = backend
	d.sems[domain] = semaphore.NewWeighted(d.concurrency)
}

// Backend returns the backend bound to the domain.
func (d *Dispatcher) Backend(domain catalog.Domain) (Backend, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.backends[domain]
	return b, ok
}

// Domains returns the domains with a bound backend.
func (d *Dispatcher) Domains() []catalog.Domain {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]catalog.Domain, 0, len(d.backends))
	for domain := range d.backends {
		out = append(out, domain)
	}
	return out
}

// Dispatch runs a search with progressive relaxation. When the result count
// falls short of the threshold it drops the lowest-priority filters one at
// a time (LOW first, then MEDIUM, never HIGH), re-querying after each drop.
// A drop that does not grow the candidate set stops the loop.
func (d *Dispatcher) Dispatch(ctx context.Context, q Query) (*Result, *Trace, error) {
	d.mu.RLock()
	backend, ok := d.backends[q.Domain]
	sem := d.sems[q.Domain]
	d.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: no backend for domain %s", ErrBackendUnavailable, q.Domain)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	defer sem.Release(1)

	trace := &Trace{Applied: q.Filters.Keys()}

	filters := q.Filters.Clone()
	result, err := backend.Search(ctx, Query{
		Domain:  q.Domain,
		Filters: filters,
		Soft:    q.Soft,
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, trace, fmt.Errorf("search failed: %w", err)
	}
	trace.Provenance = result.Provenance

	relaxable := d.relaxationOrder(q.Domain, filters)
	for _, key := range relaxable {
		if len(result.Candidates) >= d.minResults {
			break
		}
		if ctx.Err() != nil {
			return nil, trace, ctx.Err()
		}

		delete(filters, key)
		trace.Relaxed = append(trace.Relaxed, key)
		slog.Debug("Relaxing filter", "domain", q.Domain, "slot", key)

		prev := len(result.Candidates)
		next, err := backend.Search(ctx, Query{
			Domain:  q.Domain,
			Filters: filters,
			Soft:    q.Soft,
			Limit:   q.Limit,
		})
		if err != nil {
			return nil, trace, fmt.Errorf("search failed after relaxing %s: %w", key, err)
		}
		result = next
		trace.Provenance = result.Provenance

		if len(result.Candidates) <= prev {
			trace.Notes = append(trace.Notes,
				fmt.Sprintf("relaxing %s yielded no additional candidates", key))
			break
		}
	}

	return result, trace, nil
}

// relaxationOrder returns the filter keys eligible for relaxation, LOW
// priority first, then MEDIUM. HIGH filters are never relaxed, nor are
// keys unknown to the registry.
func (d *Dispatcher) relaxationOrder(domain catalog.Domain, filters catalog.Filters) []string {
	var low, medium []string
	for _, key := range filters.Keys() {
		slot, ok := d.registry.Slot(domain, key)
		if !ok {
			continue
		}
		switch slot.Priority {
		case catalog.PriorityLow:
			low = append(low, key)
		case catalog.PriorityMedium:
			medium = append(medium, key)
		}
	}
	return append(low, medium...)
}

// MinResults returns the relaxation threshold.
func (d *Dispatcher) MinResults() int { return d.minResults }
