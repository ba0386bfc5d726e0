package raters

import (
	"fmt"

	"panelscore/models"
	"panelscore/ports"
)

// ForConfig returns the RaterClient implementation for a registered
// rater, keyed by its provider.
func ForConfig(cfg models.RaterConfig, apiKey string) (ports.RaterClient, error) {
	switch cfg.Provider {
	case models.ProviderOpenAI:
		return NewOpenAIClient(apiKey), nil
	case models.ProviderAnthropic:
		return NewAnthropicClient(apiKey), nil
	case models.ProviderGoogle:
		return NewGoogleClient(apiKey), nil
	default:
		return nil, fmt.Errorf("no client for provider %q", cfg.Provider)
	}
}
