package llms

import (
	"fmt"

	"github.com/kadirpekel/concierge/pkg/config"
)

// NewProvider builds the configured StructuredCompletion provider.
func NewProvider(cfg *config.LLMConfig) (StructuredCompletion, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "gemini":
		return NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
