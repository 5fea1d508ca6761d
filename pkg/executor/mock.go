package executor

import (
	"context"
	"sync"
)

// MockExecutor is a test double for Executor.
type MockExecutor struct {
	mu sync.Mutex

	// ExecuteFunc is called by Execute when set; otherwise Results are
	// returned in order, the last one repeating.
	ExecuteFunc func(ctx context.Context, sql string) *ExecResult
	Results     []*ExecResult

	// SampleRowsFunc is called by SampleRows when set.
	SampleRowsFunc func(ctx context.Context, table string, limit int) ([]string, error)

	executed []string
}

var _ Executor = (*MockExecutor)(nil)

// Execute implements Executor.
func (m *MockExecutor) Execute(ctx context.Context, sql string) *ExecResult {
	m.mu.Lock()
	call := len(m.executed)
	m.executed = append(m.executed, sql)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, sql)
	}

	if len(m.Results) == 0 {
		return &ExecResult{}
	}
	if call >= len(m.Results) {
		call = len(m.Results) - 1
	}
	return m.Results[call]
}

// SampleRows implements Executor.
func (m *MockExecutor) SampleRows(ctx context.Context, table string, limit int) ([]string, error) {
	if m.SampleRowsFunc != nil {
		return m.SampleRowsFunc(ctx, table, limit)
	}
	return nil, nil
}

// Close implements Executor.
func (m *MockExecutor) Close() error {
	return nil
}

// Executed returns the SQL statements seen so far, in call order.
func (m *MockExecutor) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.executed))
	copy(out, m.executed)
	return out
}
