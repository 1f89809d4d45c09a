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
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/kadirpekel/concierge/pkg/config"
)

// GeminiProvider implements StructuredCompletion on the official genai SDK.
// Output is forced to application/json; the schema is carried in the system
// instruction because the SDK schema type does not cover full JSON Schema.
type GeminiProvider struct {
	client *genai.Client
	config *config.LLMConfig
}

func NewGeminiProvider(cfg *config.LLMConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: cfg}, nil
}

func (p *GeminiProvider) ModelName() string { return p.config.Model }

func (p *GeminiProvider) Close() error { return nil }

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
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

	temp := float32(p.config.Temperature)
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		Temperature:       &temp,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model,
		genai.Text(req.Prompt), genCfg)
	if err != nil {
		return nil, fmt.Errorf("Gemini generation failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyCompletion
	}
	if !json.Valid([]byte(text)) {
		return extractJSON(text)
	}
	return json.RawMessage(text), nil
}

var _ StructuredCompletion = (*GeminiProvider)(nil)
