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

// Package orchestrator drives one conversation turn end to end: acquire
// the session, apply UI actions, validate the message, dispatch to the
// stage handler, persist, and assemble the response envelope with its
// trace. A turn budget bounds the whole thing; LLM hiccups degrade to
// deterministic fallbacks inside the stage handlers, so errors escaping
// to the envelope are backend or infrastructure failures.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/concierge/pkg/cart"
	"github.com/kadirpekel/concierge/pkg/diversify"
	"github.com/kadirpekel/concierge/pkg/llms"
	"github.com/kadirpekel/concierge/pkg/pipeline"
	"github.com/kadirpekel/concierge/pkg/prompts"
	"github.com/kadirpekel/concierge/pkg/refine"
	"github.com/kadirpekel/concierge/pkg/search"
	"github.com/kadirpekel/concierge/pkg/session"
	"github.com/kadirpekel/concierge/pkg/validate"
)

// Error codes surfaced in the turn envelope.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// UserAction is a UI-originated mutation that rides along with a turn.
type UserAction struct {
	// Type is one of favorite, unfavorite, add_to_cart, remove_from_cart,
	// checkout, set_session_intent, set_step_intent.
	Type      string `json:"type"`
	ProductID string `json:"product_id,omitempty"`
	Intent    string `json:"intent,omitempty"`
}

// TurnRequest is one inbound chat turn.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// K overrides the session's interview question limit for this and
	// subsequent turns; 0 bypasses the interview entirely.
	K       *int         `json:"k,omitempty"`
	Actions []UserAction `json:"user_actions,omitempty"`
}

// TurnError is a machine-readable failure in the envelope.
type TurnError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Trace explains what the turn did, for debugging and the trace endpoint.
type Trace struct {
	RequestID         string                 `json:"request_id"`
	Stages            []pipeline.StageTiming `json:"stages,omitempty"`
	BackendProvenance string                 `json:"backend_provenance,omitempty"`
	RelaxedFilters    []string               `json:"relaxed_filters,omitempty"`
	Notes             []string               `json:"notes,omitempty"`
}

// TurnResult is the response envelope for one turn.
type TurnResult struct {
	SessionID    string            `json:"session_id"`
	Stage        session.Stage     `json:"stage"`
	Domain       string            `json:"domain,omitempty"`
	Message      string            `json:"message"`
	QuickReplies []string          `json:"quick_replies,omitempty"`
	Rows         []diversify.Row   `json:"rows,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	Favorites    []string          `json:"favorites,omitempty"`
	Cart         []string          `json:"cart,omitempty"`
	Error        *TurnError        `json:"error,omitempty"`
	Trace        *Trace            `json:"trace,omitempty"`
}

// Orchestrator executes turns.
type Orchestrator struct {
	sessions  *session.Manager
	pipeline  *pipeline.Pipeline
	refiner   *refine.Handler
	validator *validate.Validator
	llm       llms.StructuredCompletion

	turnBudget      time.Duration
	conversationCap int
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithTurnBudget bounds wall-clock time per turn.
func WithTurnBudget(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.turnBudget = d
		}
	}
}

// WithConversationCap bounds retained conversation turns per session.
func WithConversationCap(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.conversationCap = n
		}
	}
}

// New creates an orchestrator. llm may be nil; the validator then skips
// its model fallback.
func New(sessions *session.Manager, p *pipeline.Pipeline, r *refine.Handler, v *validate.Validator, llm llms.StructuredCompletion, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions:        sessions,
		pipeline:        p,
		refiner:         r,
		validator:       v,
		llm:             llm,
		turnBudget:      30 * time.Second,
		conversationCap: 40,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sessions exposes the session manager for the HTTP layer.
func (o *Orchestrator) Sessions() *session.Manager { return o.sessions }

// HandleTurn runs one turn. It never returns a Go error; failures are
// encoded in the envelope so the transport layer stays dumb.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) *TurnResult {
	requestID := uuid.NewString()
	log := slog.With("request_id", requestID, "session_id", req.SessionID)

	release := o.sessions.Acquire(req.SessionID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, o.turnBudget)
	defer cancel()

	state := o.sessions.Load(ctx, req.SessionID)
	if req.K != nil && *req.K >= 0 {
		state.KLimit = *req.K
	}
	result := &TurnResult{
		SessionID: req.SessionID,
		Trace:     &Trace{RequestID: requestID},
	}

	actionMsg := o.applyActions(state, req.Actions, log)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		if actionMsg == "" {
			result.Error = &TurnError{Code: CodeValidation, Message: "message or user_actions required"}
			o.finish(ctx, state, result, "")
			return result
		}
		o.finish(ctx, state, result, actionMsg)
		return result
	}

	verdict := o.validate(ctx, message, result)
	switch verdict.Verdict {
	case validate.Invalid:
		o.finish(ctx, state, result,
			"I didn't quite catch that. Tell me what you're shopping for, for example \"a laptop for video editing\".")
		return result
	case validate.Greeting:
		state.AppendTurn("user", message, o.conversationCap)
		o.finish(ctx, state, result, o.greetingMessage(state))
		return result
	}
	corrected := verdict.Corrected

	state.AppendTurn("user", corrected, o.conversationCap)

	var out *pipeline.Outcome
	var err error
	switch state.Stage {
	case session.StageRecommendations:
		out, err = o.refiner.Handle(ctx, state, corrected)
	case session.StageCheckout:
		out, err = o.checkoutTurn(ctx, state, corrected)
	default:
		out, err = o.pipeline.Interview(ctx, state, corrected)
	}

	if out != nil {
		result.Trace.Stages = append(result.Trace.Stages, out.Timings...)
		if out.SearchTrace != nil {
			result.Trace.BackendProvenance = out.SearchTrace.Provenance
			result.Trace.RelaxedFilters = out.SearchTrace.Relaxed
			result.Trace.Notes = out.SearchTrace.Notes
		}
	}

	if err != nil {
		log.Error("Turn failed", "error", err)
		result.Error = turnError(ctx, err)
		o.finish(ctx, state, result, fallbackMessage(result.Error.Code, state.Stage))
		return result
	}

	result.QuickReplies = out.QuickReplies
	result.Rows = out.Rows
	o.finish(ctx, state, result, out.Message)
	return result
}

// applyActions executes UI actions before the message is processed.
func (o *Orchestrator) applyActions(state *session.State, actions []UserAction, log *slog.Logger) string {
	var messages []string
	for _, a := range actions {
		switch a.Type {
		case "favorite", "unfavorite":
			msg, err := cart.Apply(state, cart.Action(a.Type), []string{a.ProductID})
			if err == nil {
				messages = append(messages, msg)
			}
		case "add_to_cart":
			msg, err := cart.Apply(state, cart.ActionAdd, []string{a.ProductID})
			if err == nil {
				messages = append(messages, msg)
			}
		case "remove_from_cart":
			msg, err := cart.Apply(state, cart.ActionRemove, []string{a.ProductID})
			if err == nil {
				messages = append(messages, msg)
			}
		case "checkout":
			msg, err := cart.Apply(state, cart.ActionCheckout, nil)
			if err == nil {
				messages = append(messages, msg)
			}
		case "set_session_intent":
			state.SessionIntent = session.SessionIntent(a.Intent)
		case "set_step_intent":
			state.StepIntent = session.StepIntent(a.Intent)
		default:
			log.Warn("Ignoring unknown user action", "type", a.Type)
		}
	}
	return strings.Join(messages, " ")
}

// validate screens the message, escalating to the model when the cheap
// checks reject it and a model is available.
func (o *Orchestrator) validate(ctx context.Context, message string, result *TurnResult) validate.Result {
	start := time.Now()
	res := o.validator.Check(message)

	if res.Verdict == validate.Invalid && o.llm != nil {
		if v, err := llms.Call[prompts.Validation](ctx, o.llm, prompts.ValidateInput(message)); err == nil && v.Valid {
			res = validate.Result{Verdict: validate.Valid, Intent: v.Intent, Corrected: message}
			if strings.TrimSpace(v.SuggestedCorrection) != "" {
				res.Corrected = v.SuggestedCorrection
			}
		}
	}

	result.Trace.Stages = append(result.Trace.Stages, pipeline.StageTiming{
		Name:   "validate",
		Millis: time.Since(start).Milliseconds(),
		OK:     res.Verdict != validate.Invalid,
	})
	return res
}

// checkoutTurn handles messages while the session sits at checkout.
// Anything that is not a confirmation returns the user to the results.
func (o *Orchestrator) checkoutTurn(ctx context.Context, state *session.State, message string) (*pipeline.Outcome, error) {
	lower := strings.ToLower(message)
	out := &pipeline.Outcome{}

	switch {
	case strings.Contains(lower, "back") || strings.Contains(lower, "keep shopping") ||
		strings.Contains(lower, "more options"):
		// Recommendations need results to return to.
		if len(state.LastResults) == 0 {
			state.Stage = session.StageInterview
			out.Message = "Your earlier results are gone, so let's search again. What are you looking for?"
			return out, nil
		}
		state.Stage = session.StageRecommendations
		out.Message = "No problem, back to your results. Anything you'd like to change?"
		return out, nil

	case strings.Contains(lower, "confirm") || strings.Contains(lower, "place") ||
		strings.Contains(lower, "buy"):
		total := cart.Total(state)
		out.Message = fmt.Sprintf("Order placed! %d item(s), %s total. A confirmation is on its way.",
			len(state.CartIDs()), dollars(total))
		return out, nil

	default:
		total := cart.Total(state)
		out.Message = fmt.Sprintf("You're at checkout with %d item(s), %s total. "+
			"Say \"confirm\" to place the order or \"back\" to keep shopping.",
			len(state.CartIDs()), dollars(total))
		out.QuickReplies = []string{"Confirm", "Back to results"}
		return out, nil
	}
}

func (o *Orchestrator) greetingMessage(state *session.State) string {
	names := make([]string, 0)
	for _, d := range o.pipeline.Registry().Domains() {
		names = append(names, d.String())
	}
	if state.ActiveDomain.Known() {
		return fmt.Sprintf("Welcome back! We were looking at %s. Want to continue, or shop for something else (%s)?",
			state.ActiveDomain, strings.Join(names, ", "))
	}
	return fmt.Sprintf("Hi! I can help you shop for %s. What are you looking for today?",
		strings.Join(names, ", "))
}

// finish appends the assistant turn, snapshots session state into the
// envelope and persists.
func (o *Orchestrator) finish(ctx context.Context, state *session.State, result *TurnResult, message string) {
	if message != "" {
		result.Message = message
		state.AppendTurn("assistant", message, o.conversationCap)
	}
	result.Stage = state.Stage
	result.Domain = state.ActiveDomain.String()
	result.Filters = state.Filters.Snapshot()
	result.Favorites = state.FavoriteIDs()
	result.Cart = state.CartIDs()

	// Persist with a fresh context so a blown turn budget still saves.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	o.sessions.Save(saveCtx, state)
}

func turnError(ctx context.Context, err error) *TurnError {
	switch {
	case errors.Is(err, search.ErrBackendUnavailable):
		return &TurnError{Code: CodeBackendUnavailable, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return &TurnError{Code: CodeInternal, Message: "turn budget exceeded"}
	default:
		return &TurnError{Code: CodeInternal, Message: err.Error()}
	}
}

// fallbackMessage is the user-facing text when a turn fails outright.
func fallbackMessage(code string, stage session.Stage) string {
	if code == CodeBackendUnavailable {
		return "Our product search is having trouble right now. Give it a moment and try again."
	}
	if stage == session.StageRecommendations {
		return "Something went wrong on my end. Your results are still here, try that again in a moment."
	}
	return "Something went wrong on my end. Could you try that again?"
}

func dollars(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
