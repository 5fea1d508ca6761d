package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported oracle providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewOracleClient builds the client for the configured provider. The
// openai provider covers any OpenAI-compatible endpoint, including local
// inference servers.
func NewOracleClient(provider string, cfg *Config, logger *zap.Logger) (OracleClient, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewClient(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %q", provider)
	}
}
