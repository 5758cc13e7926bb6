package llm

import (
	"os"
	"strings"

	"abmconf/internal/secrets"
)

// Provider names accepted in the config file.
const (
	ProviderOpenAI  = "openai"
	ProviderOffline = "offline"
)

// ProviderOptions is the picker order for the settings screen.
var ProviderOptions = []string{ProviderOpenAI, ProviderOffline}

// ResolveAPIKey picks the provider key from the environment, then the
// per-user key store, then the config file value.
func ResolveAPIKey(provider, envName, configKey string) string {
	if envName != "" {
		if key := strings.TrimSpace(os.Getenv(envName)); key != "" {
			return key
		}
	}
	if key, err := (secrets.Store{}).FetchProviderKey(provider); err == nil && key != "" {
		return key
	}
	return strings.TrimSpace(configKey)
}

// NewProviderFor builds the provider named in the config. Unknown names
// fall back to the offline provider so the editor always starts.
func NewProviderFor(name, apiKey, model string) LLMProvider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model)
	default:
		return NewHeuristicProvider()
	}
}
