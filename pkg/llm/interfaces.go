// Package llm provides the generation-oracle abstraction: typed asks over
// a chat-completion client, with transport retries, error classification,
// and structured-output parsing.
package llm

import "context"

// OracleClient is the raw completion call. Implementations exist for
// OpenAI-compatible endpoints and Anthropic; use this interface for
// dependency injection to enable mocking in tests.
type OracleClient interface {
	// Complete generates a single completion for the prompt.
	Complete(ctx context.Context, prompt string, systemMessage string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure implementations satisfy OracleClient at compile time.
var (
	_ OracleClient = (*Client)(nil)
	_ OracleClient = (*AnthropicClient)(nil)
	_ OracleClient = (*MockOracleClient)(nil)
)
