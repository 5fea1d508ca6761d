package llm

import (
	"context"
	"sync"
)

// MockOracleClient is a test double for OracleClient.
type MockOracleClient struct {
	mu sync.Mutex

	// CompleteFunc is called by Complete when set.
	CompleteFunc func(ctx context.Context, prompt string, systemMessage string) (string, error)

	// Responses are returned in order when CompleteFunc is nil. The last
	// response repeats once the slice is exhausted.
	Responses []string

	// Model and Endpoint override the defaults reported by the getters.
	Model    string
	Endpoint string

	calls   int
	prompts []string
}

// Complete implements OracleClient.
func (m *MockOracleClient) Complete(ctx context.Context, prompt string, systemMessage string) (string, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemMessage)
	}

	if len(m.Responses) == 0 {
		return "", nil
	}
	if call >= len(m.Responses) {
		call = len(m.Responses) - 1
	}
	return m.Responses[call], nil
}

// GetModel returns the configured model name.
func (m *MockOracleClient) GetModel() string {
	if m.Model != "" {
		return m.Model
	}
	return "mock-model"
}

// GetEndpoint returns the configured endpoint.
func (m *MockOracleClient) GetEndpoint() string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	return "http://mock.local"
}

// Calls returns how many times Complete was invoked.
func (m *MockOracleClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts seen so far, in call order.
func (m *MockOracleClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset clears call history.
func (m *MockOracleClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.prompts = nil
}
