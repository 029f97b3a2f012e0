package providers

import (
	"fmt"

	"github.com/drewomix/Oasis/internal/agent"
	"github.com/drewomix/Oasis/internal/config"
)

// NewModel selects a provider from configuration. Provider "auto" prefers
// Anthropic when its key is set, then falls back to OpenAI. Provider "mock"
// runs the service without credentials, replying with a canned answer.
func NewModel(cfg config.Config) (agent.Model, error) {
	switch cfg.ModelProvider {
	case "mock":
		return agent.NewMockModel(), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("MODEL_PROVIDER=anthropic but ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropicModel(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("MODEL_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		return NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIModel, ""), nil
	case "auto":
		if cfg.AnthropicAPIKey != "" {
			return NewAnthropicModel(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
		}
		if cfg.OpenAIAPIKey != "" {
			return NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIModel, ""), nil
		}
		return nil, fmt.Errorf("no model provider configured: set ANTHROPIC_API_KEY or OPENAI_API_KEY")
	default:
		return nil, fmt.Errorf("unknown MODEL_PROVIDER %q", cfg.ModelProvider)
	}
}
