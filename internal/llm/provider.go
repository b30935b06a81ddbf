package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samsaffron/tale-llm/internal/config"
)

// NewProvider builds the provider selected by cfg.Provider. Callers should
// run cfg.RequireCredential first so a missing key fails before any work.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.Safety)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	case "debug":
		return NewDebugProvider(cfg.Debug.Preset), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: %s)", cfg.Provider, strings.Join(config.Providers, ", "))
	}
}

// ParseProviderModel splits "provider:model" into its parts. The model is
// optional ("gemini" selects the configured model).
func ParseProviderModel(s string) (string, string, error) {
	provider, model, _ := strings.Cut(strings.TrimSpace(s), ":")
	provider = strings.ToLower(provider)
	if !slices.Contains(config.Providers, provider) {
		return "", "", fmt.Errorf("unknown provider %q (valid: %s)", provider, strings.Join(config.Providers, ", "))
	}
	return provider, model, nil
}
