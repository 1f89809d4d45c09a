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

// Package server exposes the chat service over HTTP. The transport layer
// is deliberately thin: decode, call the orchestrator, encode. All chat
// semantics live below it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/concierge/pkg/observability"
	"github.com/kadirpekel/concierge/pkg/orchestrator"
	"github.com/kadirpekel/concierge/pkg/search"
)

// Config configures the HTTP listener.
type Config struct {
	Host string
	Port int
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	config     Config
	orch       *orchestrator.Orchestrator
	dispatcher *search.Dispatcher
	obs        *observability.Manager
	httpServer *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithObservability attaches the metrics/tracing manager.
func WithObservability(m *observability.Manager) Option {
	return func(s *Server) {
		s.obs = m
	}
}

// New creates the server and mounts all routes.
func New(cfg Config, orch *orchestrator.Orchestrator, dispatcher *search.Dispatcher, opts ...Option) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		config:     cfg,
		orch:       orch,
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	if s.obs != nil {
		r.Use(observability.HTTPMiddleware(s.obs.Tracer("http"), s.obs.Metrics()))
		r.Handle("/metrics", s.obs.MetricsHandler())
	}

	r.Get("/health", s.handleHealth)

	// Unversioned aliases for the documented API surface.
	r.Post("/chat", s.handleChat)
	r.Get("/session/{sessionID}", s.handleGetSession)
	r.Post("/session/reset", s.handleReset)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/session/reset", s.handleReset)
		r.Route("/session/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/reset", s.handleResetSession)
			r.Post("/cart", s.handleCart)
		})
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
