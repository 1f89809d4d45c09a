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

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the in-memory session map and the write-through mirror.
// Turns within one session are serialized via Acquire; sessions are
// created lazily on first load.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	store         Store
	defaultKLimit int

	// mirrorFailed logs the degraded-to-memory warning once per process.
	mirrorFailed sync.Once
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithStore attaches an external mirror.
func WithStore(store Store) ManagerOption {
	return func(m *Manager) {
		m.store = store
	}
}

// WithDefaultKLimit sets the question limit stamped onto new sessions.
func WithDefaultKLimit(k int) ManagerOption {
	return func(m *Manager) {
		m.defaultKLimit = k
	}
}

// NewManager creates a session manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:      make(map[string]*State),
		locks:         make(map[string]*sync.Mutex),
		defaultKLimit: 3,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes the per-session advisory lock and returns the release
// function. The orchestrator holds it for the duration of a turn.
func (m *Manager) Acquire(id string) func() {
	m.locksMu.Lock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	m.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Load returns the session for id, hydrating from the mirror when the
// process has no in-memory copy, and creating a fresh session otherwise.
func (m *Manager) Load(ctx context.Context, id string) *State {
	m.mu.RLock()
	state, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return state
	}

	if recalled := m.recall(ctx, id); recalled != nil {
		m.mu.Lock()
		m.sessions[id] = recalled
		m.mu.Unlock()
		return recalled
	}

	state = New(id, m.defaultKLimit)
	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()
	return state
}

// Peek returns the in-memory session without creating one.
func (m *Manager) Peek(id string) (*State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	return state, ok
}

// recall hydrates a returning session from the mirror. Only durable fields
// survive a restart: domain, filters, intents and stage. A session that
// was mid-recommendation resumes at INTERVIEW because last_results are not
// mirrored at full fidelity.
func (m *Manager) recall(ctx context.Context, id string) *State {
	if m.store == nil {
		return nil
	}
	stored, err := m.store.Get(ctx, id)
	if err != nil {
		return nil
	}

	state := New(id, m.defaultKLimit)
	state.ActiveDomain = stored.ActiveDomain
	state.Filters = stored.Filters.Clone()
	state.Soft = stored.Soft
	state.SessionIntent = stored.SessionIntent
	state.StepIntent = stored.StepIntent
	state.Favorites = stored.Favorites
	if state.Favorites == nil {
		state.Favorites = make(map[string]bool)
	}
	state.Cart = stored.Cart
	if state.Cart == nil {
		state.Cart = make(map[string]int)
	}
	state.Stage = stored.Stage
	state.LastResults = stored.LastResults
	if state.Stage == StageRecommendations && len(state.LastResults) == 0 {
		state.Stage = StageInterview
	}
	state.CreatedAt = stored.CreatedAt
	slog.Debug("Recalled session from mirror", "session_id", id)
	return state
}

// Save stamps UpdatedAt and publishes the snapshot to the mirror. Mirror
// failures degrade to in-memory only and are logged once per process.
func (m *Manager) Save(ctx context.Context, state *State) {
	state.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	m.sessions[state.ID] = state
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	if err := m.store.Put(ctx, state); err != nil {
		m.mirrorFailed.Do(func() {
			slog.Warn("Session store unavailable, continuing in-memory only", "error", err)
		})
	}
}

// Reset drops a session from memory and the mirror.
func (m *Manager) Reset(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.locksMu.Lock()
	delete(m.locks, id)
	m.locksMu.Unlock()

	if m.store != nil {
		return m.store.Delete(ctx, id)
	}
	return nil
}

// Close releases the mirror connection.
func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
