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

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kadirpekel/concierge/pkg/cart"
	"github.com/kadirpekel/concierge/pkg/orchestrator"
	"github.com/kadirpekel/concierge/pkg/session"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.TurnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result := s.orch.HandleTurn(r.Context(), req)

	status := http.StatusOK
	if result.Error != nil {
		switch result.Error.Code {
		case orchestrator.CodeValidation:
			status = http.StatusBadRequest
		case orchestrator.CodeBackendUnavailable:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, result)
}

// sessionView is the redacted session representation: conversation text
// and raw results stay server-side.
type sessionView struct {
	ID            string            `json:"id"`
	Stage         session.Stage     `json:"stage"`
	Domain        string            `json:"domain,omitempty"`
	Filters       map[string]string `json:"filters,omitempty"`
	QuestionCount int               `json:"question_count"`
	KLimit        int               `json:"k_limit"`
	Favorites     []string          `json:"favorites,omitempty"`
	Cart          []string          `json:"cart,omitempty"`
	ResultCount   int               `json:"result_count"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	state, ok := s.orch.Sessions().Peek(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionView{
		ID:            state.ID,
		Stage:         state.Stage,
		Domain:        state.ActiveDomain.String(),
		Filters:       state.Filters.Snapshot(),
		QuestionCount: state.QuestionCount,
		KLimit:        state.KLimit,
		Favorites:     state.FavoriteIDs(),
		Cart:          state.CartIDs(),
		ResultCount:   len(state.LastResults),
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.orch.Sessions().Reset(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

// handleReset is the body-addressed reset variant.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}
	if err := s.orch.Sessions().Reset(r.Context(), req.SessionID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type cartRequest struct {
	Action     string   `json:"action"`
	ProductIDs []string `json:"product_ids"`
}

type cartResponse struct {
	Message   string   `json:"message"`
	Favorites []string `json:"favorites,omitempty"`
	Cart      []string `json:"cart,omitempty"`
	Stage     string   `json:"stage"`
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req cartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	action, err := cart.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions := s.orch.Sessions()
	release := sessions.Acquire(id)
	defer release()

	state := sessions.Load(r.Context(), id)
	msg, err := cart.Apply(state, action, req.ProductIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sessions.Save(r.Context(), state)

	writeJSON(w, http.StatusOK, cartResponse{
		Message:   msg,
		Favorites: state.FavoriteIDs(),
		Cart:      state.CartIDs(),
		Stage:     string(state.Stage),
	})
}

type healthResponse struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Backends: make(map[string]string)}
	status := http.StatusOK

	for _, domain := range s.dispatcher.Domains() {
		backend, _ := s.dispatcher.Backend(domain)
		if err := backend.Healthy(r.Context()); err != nil {
			resp.Backends[domain.String()] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Backends[domain.String()] = "ok"
		}
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
