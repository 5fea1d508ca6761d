// Package executor runs generated SQL against live datasources. One
// executor is bound to one connection descriptor; the workflow treats
// every failure as a structured payload, never a Go error, so malformed
// SQL can flow through the repair loop.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// maxResultRows caps rows collected from any query. The workflow only
// counts rows for logging, so an unbounded result buys nothing.
const maxResultRows = 1000

// ExecResult is the uniform outcome of one execution attempt. Exactly
// one of the two shapes is populated: columns/rows on success, or
// ErrorMessage when the engine rejected the statement or the transport
// failed.
type ExecResult struct {
	Columns      []string         `json:"columns,omitempty"`
	Rows         []map[string]any `json:"rows,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Elapsed      time.Duration    `json:"-"`
}

// Failed reports whether this result carries an error payload.
func (r *ExecResult) Failed() bool {
	return r.ErrorMessage != ""
}

// RowCount returns the number of rows returned.
func (r *ExecResult) RowCount() int {
	return len(r.Rows)
}

// Executor executes SQL against one datasource.
type Executor interface {
	// Execute runs sql and returns a result or error payload. It is safe
	// to call with arbitrary, including malformed, SQL text.
	Execute(ctx context.Context, sql string) *ExecResult

	// SampleRows fetches up to limit rows from a table, formatted as
	// prompt-ready strings.
	SampleRows(ctx context.Context, table string, limit int) ([]string, error)

	// Close releases the underlying connections.
	Close() error
}

// failure wraps an engine or transport error into the payload shape.
func failure(err error, elapsed time.Duration) *ExecResult {
	return &ExecResult{ErrorMessage: err.Error(), Elapsed: elapsed}
}

// formatRow renders one result row as a parenthesized value tuple in
// column order, e.g. (1, 'alice', NULL).
func formatRow(columns []string, row map[string]any) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = formatValue(row[col])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case time.Time:
		return "'" + val.Format(time.RFC3339) + "'"
	default:
		return fmt.Sprintf("%v", val)
	}
}
