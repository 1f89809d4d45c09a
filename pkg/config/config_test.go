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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Chat.KLimit())
	assert.Equal(t, 30*time.Second, cfg.Chat.TurnBudget())
	assert.Equal(t, 3, cfg.Chat.Rows)
	assert.Equal(t, 3, cfg.Chat.PerRow)
	assert.NoError(t, cfg.Validate())
}

func TestSetDefaults_KeepsExplicitZeroKLimit(t *testing.T) {
	zero := 0
	cfg := &Config{Chat: ChatConfig{DefaultKLimit: &zero}}
	cfg.SetDefaults()

	assert.Equal(t, 0, cfg.Chat.KLimit(), "explicit 0 must survive defaulting")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "oracle" }, true},
		{"bad reasoning effort", func(c *Config) { c.LLM.ReasoningEffort = "extreme" }, true},
		{"negative k limit", func(c *Config) { k := -1; c.Chat.DefaultKLimit = &k }, true},
		{"zero rows", func(c *Config) { c.Chat.Rows = -1 }, true},
		{"tiny conversation cap", func(c *Config) { c.Chat.ConversationCap = 5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("TEST_LLM_MODEL", "gpt-4o")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: "9090"
llm:
  provider: anthropic
  model: ${TEST_LLM_MODEL}
chat:
  default_k_limit: 0
  turn_budget_ms: 15000
session:
  store_url: ${TEST_REDIS_URL:-redis://localhost:6379/0}
  ttl: 45m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := &Config{}
	require.NoError(t, LoadFile(path, cfg))
	cfg.SetDefaults()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	// Weakly typed: the quoted port string still decodes.
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "env reference must expand")
	assert.Equal(t, 0, cfg.Chat.KLimit(), "explicit 0 in the file must stick")
	assert.Equal(t, 15*time.Second, cfg.Chat.TurnBudget())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Session.StoreURL, "the ${VAR:-default} fallback applies")
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
}

func TestLoadFile_MissingFile(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg))
}

func TestExpandEnvVarsInData(t *testing.T) {
	t.Setenv("TEST_PORT", "8081")
	t.Setenv("TEST_FLAG", "true")

	data := map[string]interface{}{
		"port":    "${TEST_PORT}",
		"enabled": "${TEST_FLAG}",
		"plain":   "unchanged",
		"nested":  []interface{}{"${TEST_PORT}"},
	}
	got, ok := ExpandEnvVarsInData(data).(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, 8081, got["port"], "expanded numeric strings re-type to int")
	assert.Equal(t, true, got["enabled"])
	assert.Equal(t, "unchanged", got["plain"])
	assert.Equal(t, []interface{}{8081}, got["nested"])
}
