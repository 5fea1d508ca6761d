package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/queryforge/queryforge-engine/pkg/apperrors"
	"github.com/queryforge/queryforge-engine/pkg/executor"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/models"
	"github.com/queryforge/queryforge-engine/pkg/retry"
)

func testConfig() Config {
	return Config{
		RetrievalThreshold: 3,
		MaxSQLRetries:      3,
		PrivacyMode:        true,
		SampleRowLimit:     3,
		RetrievalTimeout:   5 * time.Second,
		GenerationTimeout:  5 * time.Second,
		EnrichmentTimeout:  5 * time.Second,
	}
}

func fastAgentRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:   0,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}
}

func newTestAgent(t *testing.T, mock *llm.MockOracleClient, exec executor.Executor, cfg Config) *SQLAgent {
	t.Helper()
	oracle := llm.NewOracle(mock, fastAgentRetry(), nil, zaptest.NewLogger(t))
	return NewSQLAgent(oracle, exec, cfg, zaptest.NewLogger(t))
}

func smallSchema() models.Schema {
	return models.Schema{
		{Identifier: "users", Columns: []*models.Column{
			{Identifier: "id", DataType: "integer", IsPrimaryKey: true},
			{Identifier: "name", DataType: "text"},
		}},
		{Identifier: "orders", Columns: []*models.Column{
			{Identifier: "id", DataType: "integer", IsPrimaryKey: true},
			{Identifier: "user_id", DataType: "integer", Relations: []models.Relation{
				{TargetTable: "users", TargetColumn: "id", Kind: models.CardinalityNTo1},
			}},
			{Identifier: "total", DataType: "numeric"},
		}},
	}
}

func wideSchema() models.Schema {
	s := smallSchema()
	for _, name := range []string{"products", "sessions", "audit_log"} {
		s = append(s, &models.Table{
			Identifier: name,
			Columns:    []*models.Column{{Identifier: "id", DataType: "integer", IsPrimaryKey: true}},
		})
	}
	return s
}

func pgConn() *models.ConnectionInfo {
	return &models.ConnectionInfo{DBType: "postgres", Host: "db", Port: 5432, Database: "app"}
}

func okResult() *executor.ExecResult {
	return &executor.ExecResult{Columns: []string{"name"}, Rows: []map[string]any{{"name": "a"}}}
}

func failedResult(msg string) *executor.ExecResult {
	return &executor.ExecResult{ErrorMessage: msg}
}

func TestSmallSchemaSkipsRetrieval(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT name FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "list user names", smallSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users", sql)

	// Two tables at threshold three: the whole schema goes straight to
	// generation, no retrieval calls.
	assert.Equal(t, 1, mock.Calls())
	assert.Contains(t, mock.Prompts()[0], "DDL statements")
	assert.Equal(t, []string{"SELECT name FROM users"}, exec.Executed())
}

func TestLargeSchemaGoesThroughRetrieval(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"refined_question": "How many users are registered?"}`,
		`{"relevant_tables": ["users"]}`,
		`{"sql_query": "SELECT COUNT(*) FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "how many users", wideSchema(), pgConn(), "app db")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM users", sql)
	assert.Equal(t, 3, mock.Calls())

	// Generation sees the refined question, not the original.
	assert.Contains(t, mock.Prompts()[2], "How many users are registered?")
}

func TestSlowRefinementDoesNotStarveRetrieval(t *testing.T) {
	cfg := testConfig()
	cfg.RetrievalTimeout = time.Second

	slowAnswer := func(ctx context.Context, response string) (string, error) {
		select {
		case <-time.After(600 * time.Millisecond):
			return response, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Refinement and retrieval each consume most of one timeout; only a
	// per-call budget lets both finish.
	mock := &llm.MockOracleClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string) (string, error) {
			switch {
			case strings.Contains(prompt, "Restate the following question"):
				return slowAnswer(ctx, `{"refined_question": "List user names."}`)
			case strings.Contains(prompt, "selecting tables"):
				return slowAnswer(ctx, `{"relevant_tables": ["users"]}`)
			default:
				return `{"sql_query": "SELECT name FROM users"}`, nil
			}
		},
	}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, cfg)

	sql, err := agent.Run(context.Background(), "user names", wideSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users", sql)
}

func TestEmptyRetrievalIsNotAnswerable(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"refined_question": "What is the weather tomorrow?"}`,
		`{"relevant_tables": []}`,
	}}
	exec := &executor.MockExecutor{}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "weather tomorrow?", wideSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotAnswerable, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsSemanticRejection(err))

	// A semantic rejection makes no generation calls and touches nothing.
	assert.Equal(t, 2, mock.Calls())
	assert.Empty(t, exec.Executed())
}

func TestFailedRefinementKeepsOriginalQuestion(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`not json at all`,
		`{"relevant_tables": ["users"]}`,
		`{"sql_query": "SELECT name FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "list user names", wideSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users", sql)
	assert.Contains(t, mock.Prompts()[2], "list user names")
}

func TestScopeExpansionRegeneratesWithJoinedTable(t *testing.T) {
	joinSQL := "SELECT u.name FROM users u JOIN orders o ON o.user_id = u.id"
	mock := &llm.MockOracleClient{Responses: []string{
		`{"refined_question": "Which users placed orders?"}`,
		`{"relevant_tables": ["users"]}`,
		`{"sql_query": "` + joinSQL + `"}`,
		`{"sql_query": "` + joinSQL + `"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "users with orders", wideSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, joinSQL, sql)

	// First candidate referenced orders outside the candidate set, so the
	// set expanded and generation ran again with orders in the DDL.
	require.Equal(t, 4, mock.Calls())
	assert.NotContains(t, mock.Prompts()[2], "CREATE TABLE orders")
	assert.Contains(t, mock.Prompts()[3], "CREATE TABLE orders")

	// Only the second candidate, valid against the full set, executed.
	assert.Equal(t, []string{joinSQL}, exec.Executed())
}

func TestUnknownTableTerminates(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT amount FROM invoices"}`,
	}}
	exec := &executor.MockExecutor{}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "invoice totals", smallSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnknownTables, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "invoices")
	assert.Empty(t, exec.Executed())
}

func TestNonSelectGenerationFails(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "DROP TABLE users"}`,
	}}
	exec := &executor.MockExecutor{}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "drop users", smallSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeGenerationFailed, apperrors.CodeOf(err))
	assert.Empty(t, exec.Executed())
}

func TestSyntaxFailureRoutesThroughRepair(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT name FROM users WHERE (id = 1"}`,
		`{"sql_query": "SELECT name FROM users WHERE (id = 1)"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "user one", smallSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users WHERE (id = 1)", sql)

	// The unbalanced candidate never reached the database.
	assert.Equal(t, []string{"SELECT name FROM users WHERE (id = 1)"}, exec.Executed())
	assert.Contains(t, mock.Prompts()[1], "Failing SQL:")
}

func TestExecutionFailureRepairedAndRetried(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT fullname FROM users"}`,
		`{"sql_query": "SELECT name FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{
		failedResult(`column "fullname" does not exist`),
		okResult(),
	}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "user names", smallSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users", sql)
	assert.Len(t, exec.Executed(), 2)

	// The repair prompt carries the engine's error message.
	assert.Contains(t, mock.Prompts()[1], `column "fullname" does not exist`)
}

func TestRetryBudgetExhaustionCarriesLastError(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT a FROM users"}`,
		`{"sql_query": "SELECT b FROM users"}`,
		`{"sql_query": "SELECT c FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{
		failedResult(`column "a" does not exist`),
		failedResult(`column "b" does not exist`),
		failedResult(`column "c" does not exist`),
	}}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "mystery column", smallSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRetriesExhausted, apperrors.CodeOf(err))

	// Three failures against a budget of three: two repairs were asked
	// for, the third failure terminates carrying its own message.
	assert.Contains(t, err.Error(), `column "c" does not exist`)
	assert.Len(t, exec.Executed(), 3)
	assert.Equal(t, 3, mock.Calls())
}

func TestIdenticalRepairLoopsUntilExhaustion(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT a FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{
		failedResult(`column "a" does not exist`),
	}}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "mystery column", smallSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRetriesExhausted, apperrors.CodeOf(err))

	// Every repair returns the same statement; the loop still consumes
	// the budget through repeated execution failures.
	assert.Len(t, exec.Executed(), 3)
}

func TestScopeExpansionResetsRepairBudget(t *testing.T) {
	joinSQL := "SELECT u.name FROM users u JOIN orders o ON o.user_id = u.id"
	mock := &llm.MockOracleClient{Responses: []string{
		`{"refined_question": "Which users placed orders?"}`,
		`{"relevant_tables": ["users"]}`,
		`{"sql_query": "SELECT bogus FROM users"}`,
		`{"sql_query": "` + joinSQL + `"}`,
		`{"sql_query": "` + joinSQL + `"}`,
		`{"sql_query": "SELECT u.id FROM users u JOIN orders o ON o.user_id = u.id"}`,
		`{"sql_query": "SELECT u.name FROM users u, orders o WHERE o.user_id = u.id"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{
		failedResult("failure one"),
		failedResult("failure two"),
		failedResult("failure three"),
		failedResult("failure four"),
	}}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "users with orders", wideSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRetriesExhausted, apperrors.CodeOf(err))

	// One failure before expansion plus three after: the regenerated
	// candidate started with a clean budget, so four statements ran
	// before exhaustion and the terminal message is the fourth.
	assert.Contains(t, err.Error(), "failure four")
	assert.Len(t, exec.Executed(), 4)
}

func TestInventedCandidatesAreDropped(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"refined_question": "List user names."}`,
		`{"relevant_tables": ["users", "unicorns"]}`,
		`{"sql_query": "SELECT name FROM users"}`,
	}}
	exec := &executor.MockExecutor{Results: []*executor.ExecResult{okResult()}}
	agent := newTestAgent(t, mock, exec, testConfig())

	sql, err := agent.Run(context.Background(), "user names", wideSchema(), pgConn(), "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM users", sql)
	assert.NotContains(t, mock.Prompts()[2], "unicorns")
}

func TestAllCandidatesInventedIsNoValidTables(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{
		`{"refined_question": "List unicorns."}`,
		`{"relevant_tables": ["unicorns", "dragons"]}`,
	}}
	exec := &executor.MockExecutor{}
	agent := newTestAgent(t, mock, exec, testConfig())

	_, err := agent.Run(context.Background(), "list unicorns", wideSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoValidTables, apperrors.CodeOf(err))
	assert.Empty(t, exec.Executed())
}

func TestEmptySchemaIsNoValidTables(t *testing.T) {
	mock := &llm.MockOracleClient{}
	agent := newTestAgent(t, mock, &executor.MockExecutor{}, testConfig())

	_, err := agent.Run(context.Background(), "anything", models.Schema{}, pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoValidTables, apperrors.CodeOf(err))
	assert.Zero(t, mock.Calls())
}

func TestCancelledContextAbortsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &llm.MockOracleClient{}
	agent := newTestAgent(t, mock, &executor.MockExecutor{}, testConfig())

	_, err := agent.Run(ctx, "anything", smallSchema(), pgConn(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
	assert.Zero(t, mock.Calls())
}

func TestSampleRowsAttachedWhenPrivacyOff(t *testing.T) {
	cfg := testConfig()
	cfg.PrivacyMode = false

	mock := &llm.MockOracleClient{Responses: []string{
		`{"sql_query": "SELECT name FROM users"}`,
	}}
	exec := &executor.MockExecutor{
		Results: []*executor.ExecResult{okResult()},
		SampleRowsFunc: func(ctx context.Context, table string, limit int) ([]string, error) {
			return []string{"(1, 'alice')"}, nil
		},
	}
	agent := newTestAgent(t, mock, exec, cfg)

	schemaSnapshot := smallSchema()
	_, err := agent.Run(context.Background(), "user names", schemaSnapshot, pgConn(), "")
	require.NoError(t, err)
	assert.Contains(t, mock.Prompts()[0], "(1, 'alice')")
	assert.Equal(t, []string{"(1, 'alice')"}, schemaSnapshot[0].SampleRows)
}
