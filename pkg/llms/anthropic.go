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

package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/concierge/pkg/config"
	"github.com/kadirpekel/concierge/pkg/httpclient"
)

const anthropicAPIVersion = "2023-06-01"

// AnthropicProvider implements StructuredCompletion against the Anthropic
// messages API. Anthropic has no server-side schema enforcement; the schema
// is embedded in the system prompt and the assistant turn is prefilled with
// "{" to force a JSON object.
type AnthropicProvider struct {
	config     *config.LLMConfig
	httpClient *httpclient.Client
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewAnthropicProvider(cfg *config.LLMConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseAnthropicHeaders),
	)

	return &AnthropicProvider{config: cfg, httpClient: httpClient}, nil
}

func (p *AnthropicProvider) ModelName() string { return p.config.Model }

func (p *AnthropicProvider) Close() error { return nil }

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
	schemaText, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	system := req.System
	if system != "" {
		system += "\n\n"
	}
	system += "Respond with a single JSON object conforming exactly to this JSON Schema. " +
		"Do not add fields the schema does not define.\n" + string(schemaText)

	body := anthropicRequest{
		Model:       p.config.Model,
		MaxTokens:   p.config.MaxTokens,
		System:      system,
		Temperature: p.config.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
			// Prefill forces the response to start as a JSON object.
			{Role: "assistant", Content: "{"},
		},
	}

	response, err := p.makeRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("Anthropic API error: %s", response.Error.Message)
	}
	if len(response.Content) == 0 {
		return nil, ErrEmptyCompletion
	}

	var text string
	for _, c := range response.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}
	if text == "" {
		return nil, ErrEmptyCompletion
	}

	// Re-attach the prefilled opening brace.
	return extractJSON("{" + text)
}

func (p *AnthropicProvider) host() string {
	if p.config.Host != "" {
		return p.config.Host
	}
	return "https://api.anthropic.com/v1"
}

func (p *AnthropicProvider) makeRequest(ctx context.Context, request anthropicRequest) (*anthropicResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.host()+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response anthropicResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response, nil
}

var _ StructuredCompletion = (*AnthropicProvider)(nil)
