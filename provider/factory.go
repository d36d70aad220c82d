package provider

import "fmt"

// NewAdapter creates an adapter based on configuration.
//
// This is the centralized factory for all adapter types; callers dispatch on
// Config.Type and never construct vendor adapters directly.
func NewAdapter(cfg Config) (Adapter, error) {
	switch cfg.Type {
	case ProviderTypeOpenAI:
		return NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case ProviderTypeAnthropic:
		return NewAnthropicAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case ProviderTypeGemini:
		return NewGeminiAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a factory
// ProviderType. OpenRouter and local OpenAI-compatible servers ride on the
// OpenAI adapter with a custom base URL. Unknown IDs pass through as-is and
// the factory rejects them.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "openai", "openrouter", "local":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	case "gemini":
		return ProviderTypeGemini
	default:
		return ProviderType(id)
	}
}
