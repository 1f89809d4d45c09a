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

// Package runtime assembles the service from configuration: LLM provider,
// search backends, session store and the orchestration stack. Both the
// HTTP server and the terminal chat command build on it.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	chromem "github.com/philippgille/chromem-go"

	"github.com/kadirpekel/concierge/pkg/catalog"
	"github.com/kadirpekel/concierge/pkg/config"
	"github.com/kadirpekel/concierge/pkg/diversify"
	"github.com/kadirpekel/concierge/pkg/llms"
	"github.com/kadirpekel/concierge/pkg/orchestrator"
	"github.com/kadirpekel/concierge/pkg/pipeline"
	"github.com/kadirpekel/concierge/pkg/refine"
	"github.com/kadirpekel/concierge/pkg/research"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/search/seed"
	"github.com/kadirpekel/concierge/pkg/search/sqlcatalog"
	"github.com/kadirpekel/concierge/pkg/search/vehicles"
	"github.com/kadirpekel/concierge/pkg/session"
	"github.com/kadirpekel/concierge/pkg/validate"
)

// Runtime holds the assembled service components.
type Runtime struct {
	Config       *config.Config
	Registry     *catalog.Registry
	LLM          llms.StructuredCompletion
	Dispatcher   *search.Dispatcher
	Sessions     *session.Manager
	Orchestrator *orchestrator.Orchestrator

	closers []io.Closer
}

// New builds the full component graph from configuration. Backends without
// a configured DSN run against the built-in demo catalog.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{
		Config:   cfg,
		Registry: catalog.Default(),
	}

	llm, err := llms.NewProvider(&cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	rt.LLM = llm

	rt.Dispatcher = search.NewDispatcher(rt.Registry,
		search.WithMinResults(cfg.Chat.SearchMinResults),
		search.WithBackendConcurrency(cfg.Chat.BackendConcurrency),
	)
	if err := rt.bindBackends(ctx, cfg); err != nil {
		rt.Close()
		return nil, err
	}

	sessionOpts := []session.ManagerOption{
		session.WithDefaultKLimit(cfg.Chat.KLimit()),
	}
	if cfg.Session.StoreURL != "" {
		store, err := session.NewRedisStore(cfg.Session.StoreURL, cfg.Session.TTL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect session store: %w", err)
		}
		sessionOpts = append(sessionOpts, session.WithStore(store))
	}
	rt.Sessions = session.NewManager(sessionOpts...)

	diversifier := diversify.New(cfg.Chat.Rows, cfg.Chat.PerRow)
	pipe := pipeline.New(llm, rt.Registry, rt.Dispatcher, diversifier)
	refiner := refine.NewHandler(llm, pipe, research.NewStatic())

	rt.Orchestrator = orchestrator.New(rt.Sessions, pipe, refiner, validate.New(), llm,
		orchestrator.WithTurnBudget(cfg.Chat.TurnBudget()),
		orchestrator.WithConversationCap(cfg.Chat.ConversationCap),
	)
	return rt, nil
}

// bindBackends wires one backend per domain. SQL domains migrate and seed
// their tables on first run.
func (rt *Runtime) bindBackends(ctx context.Context, cfg *config.Config) error {
	laptops, err := rt.sqlOrMemory(ctx, catalog.DomainLaptops, cfg.Backends.LaptopsDSN, seed.Laptops())
	if err != nil {
		return err
	}
	rt.Dispatcher.Bind(catalog.DomainLaptops, laptops)

	books, err := rt.sqlOrMemory(ctx, catalog.DomainBooks, cfg.Backends.BooksDSN, seed.Books())
	if err != nil {
		return err
	}
	rt.Dispatcher.Bind(catalog.DomainBooks, books)

	fleet, err := vehicles.New(seed.Vehicles(), rt.vehicleOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to start vehicle backend: %w", err)
	}
	rt.Dispatcher.Bind(catalog.DomainVehicles, fleet)
	return nil
}

func (rt *Runtime) sqlOrMemory(ctx context.Context, domain catalog.Domain, dsn string, items []search.ProductSummary) (search.Backend, error) {
	if dsn == "" {
		slog.Info("Using built-in demo catalog", "domain", domain)
		return search.NewMemoryBackend(domain, items), nil
	}
	backend, err := sqlcatalog.Open(domain, dsn, rt.Registry.Slots(domain))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", domain, err)
	}
	rt.closers = append(rt.closers, backend)
	if err := backend.Migrate(ctx, items); err != nil {
		return nil, fmt.Errorf("failed to migrate %s backend: %w", domain, err)
	}
	return backend, nil
}

// vehicleOptions enables the chromem similarity index when an OpenAI key
// is available; other providers fall back to keyword affinity.
func (rt *Runtime) vehicleOptions(cfg *config.Config) []vehicles.Option {
	var opts []vehicles.Option
	if cfg.Backends.VehiclesIndexPath != "" {
		opts = append(opts, vehicles.WithPersistPath(cfg.Backends.VehiclesIndexPath))
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey != "" {
		opts = append(opts, vehicles.WithEmbedding(
			chromem.NewEmbeddingFuncOpenAI(cfg.LLM.APIKey, chromem.EmbeddingModelOpenAI3Small),
		))
	}
	return opts
}

// Close releases backend connections and the session store.
func (rt *Runtime) Close() {
	if rt.Sessions != nil {
		if err := rt.Sessions.Close(); err != nil {
			slog.Warn("Session manager close failed", "error", err)
		}
	}
	for _, c := range rt.closers {
		if err := c.Close(); err != nil {
			slog.Warn("Backend close failed", "error", err)
		}
	}
}
