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
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor generates an inlined JSON Schema map for a Go type. The result
// is suitable for OpenAI response_format, Gemini responseSchema, and for
// embedding into Anthropic prompts.
func SchemaFor(v interface{}) (map[string]interface{}, error) {
	reflector := &jsonschema.Reflector{
		// Inline everything: providers reject $ref-based schemas.
		DoNotReference: true,
		// Closed objects; unknown model output fields are dropped
		// rather than propagated.
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}

	// Strip metadata keys providers don't accept.
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// MustSchemaFor is SchemaFor for statically-known types registered at init.
func MustSchemaFor(v interface{}) map[string]interface{} {
	schema, err := SchemaFor(v)
	if err != nil {
		panic(err)
	}
	return schema
}
