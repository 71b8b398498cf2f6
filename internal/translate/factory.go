package translate

import (
	"fmt"

	"translate-relay/internal/config"
)

// NewFromConfig builds the configured Provider: "echo" (default, for tests
// and local runs) or "openaicompat" (a real HTTP-backed model server).
func NewFromConfig(cfg config.TranslateConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "echo":
		return NewEchoProvider(), nil
	case "openaicompat":
		return NewOpenAICompatProvider(cfg.Endpoint, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown TRANSLATION_PROVIDER %q", cfg.Provider)
	}
}
