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

// Package config holds the immutable service configuration, loaded once at
// startup from the environment and an optional YAML file. Nothing reads
// environment variables outside this package.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server,omitempty"`
	LLM           LLMConfig           `yaml:"llm,omitempty"`
	Chat          ChatConfig          `yaml:"chat,omitempty"`
	Session       SessionConfig       `yaml:"session,omitempty"`
	Backends      BackendsConfig      `yaml:"backends,omitempty"`
	Observability ObservabilityConfig `yaml:"observability,omitempty"`
	Logging       LoggingConfig       `yaml:"logging,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
}

func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LLMConfig configures the structured-completion provider used by all
// pipeline stages.
type LLMConfig struct {
	// Provider is one of: openai, anthropic, gemini.
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	// ReasoningEffort is one of: low, medium, high.
	ReasoningEffort string  `yaml:"reasoning_effort,omitempty"`
	APIKey          string  `yaml:"api_key,omitempty"`
	Host            string  `yaml:"host,omitempty"`
	Temperature     float64 `yaml:"temperature,omitempty"`
	MaxTokens       int     `yaml:"max_tokens,omitempty"`
	TimeoutSeconds  int     `yaml:"timeout,omitempty"`
	MaxRetries      int     `yaml:"max_retries,omitempty"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.ReasoningEffort == "" {
		c.ReasoningEffort = "low"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 20
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("llm: unknown provider %q", c.Provider)
	}
	switch c.ReasoningEffort {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("llm: reasoning_effort must be low, medium or high, got %q", c.ReasoningEffort)
	}
	return nil
}

// ChatConfig tunes the per-turn orchestration.
type ChatConfig struct {
	// DefaultKLimit is the max interview questions per session; 0 bypasses
	// the interview entirely. Pointer so an explicit 0 survives defaulting.
	DefaultKLimit *int `yaml:"default_k_limit,omitempty"`
	// TurnBudgetMS bounds total latency of a single turn.
	TurnBudgetMS int `yaml:"turn_budget_ms,omitempty"`
	// SearchMinResults is the threshold under which the dispatcher starts
	// relaxing low-priority filters.
	SearchMinResults int `yaml:"search_min_results,omitempty"`
	// Rows and PerRow shape the diversified presentation grid.
	Rows   int `yaml:"rows,omitempty"`
	PerRow int `yaml:"per_row,omitempty"`
	// ConversationCap bounds the per-session conversation log.
	ConversationCap int `yaml:"conversation_cap,omitempty"`
	// BackendConcurrency bounds in-flight searches per backend.
	BackendConcurrency int `yaml:"backend_concurrency,omitempty"`
}

func (c *ChatConfig) SetDefaults() {
	if c.DefaultKLimit == nil {
		k := 3
		c.DefaultKLimit = &k
	}
	if c.TurnBudgetMS == 0 {
		c.TurnBudgetMS = 30000
	}
	if c.SearchMinResults == 0 {
		c.SearchMinResults = 9
	}
	if c.Rows == 0 {
		c.Rows = 3
	}
	if c.PerRow == 0 {
		c.PerRow = 3
	}
	if c.ConversationCap == 0 {
		c.ConversationCap = 12
	}
	if c.BackendConcurrency == 0 {
		c.BackendConcurrency = 8
	}
}

func (c *ChatConfig) Validate() error {
	if c.DefaultKLimit != nil && *c.DefaultKLimit < 0 {
		return fmt.Errorf("chat: default_k_limit cannot be negative")
	}
	if c.Rows < 1 || c.PerRow < 1 {
		return fmt.Errorf("chat: rows and per_row must be at least 1")
	}
	if c.ConversationCap < 10 {
		return fmt.Errorf("chat: conversation_cap must be at least 10")
	}
	return nil
}

func (c *ChatConfig) TurnBudget() time.Duration {
	return time.Duration(c.TurnBudgetMS) * time.Millisecond
}

// KLimit returns the effective default question limit.
func (c *ChatConfig) KLimit() int {
	if c.DefaultKLimit == nil {
		return 3
	}
	return *c.DefaultKLimit
}

// SessionConfig configures the session store mirror.
type SessionConfig struct {
	// StoreURL enables an external mirror when set, e.g.
	// redis://localhost:6379/0. Empty keeps sessions in-memory only.
	StoreURL string `yaml:"store_url,omitempty"`
	// TTL applies to mirrored snapshots; zero means the store default.
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// BackendsConfig carries connection strings for the reference search
// backends. Empty values fall back to the built-in demo catalog.
type BackendsConfig struct {
	// LaptopsDSN and BooksDSN accept sqlite3 paths or postgres/mysql URLs.
	LaptopsDSN string `yaml:"laptops_dsn,omitempty"`
	BooksDSN   string `yaml:"books_dsn,omitempty"`
	// VehiclesIndexPath points at the chromem persistence directory.
	VehiclesIndexPath string `yaml:"vehicles_index_path,omitempty"`
}

// ObservabilityConfig enables tracing and metrics.
type ObservabilityConfig struct {
	Enabled     bool   `yaml:"enabled,omitempty"`
	ServiceName string `yaml:"service_name,omitempty"`
	// TraceExporter is one of: none, stdout.
	TraceExporter string `yaml:"trace_exporter,omitempty"`
	MetricsPath   string `yaml:"metrics_path,omitempty"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "concierge"
	}
	if c.TraceExporter == "" {
		c.TraceExporter = "none"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// SetDefaults fills zero values across all sections.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.LLM.SetDefaults()
	c.Chat.SetDefaults()
	c.Observability.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks cross-field constraints. Call after SetDefaults.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Chat.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadFile reads a YAML config file and overlays it onto cfg.
// Environment references like ${VAR} and ${VAR:-default} are expanded.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           cfg,
	})
	if err != nil {
		return fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}
