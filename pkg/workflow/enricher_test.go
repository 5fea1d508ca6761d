package workflow

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/queryforge/queryforge-engine/pkg/apperrors"
	"github.com/queryforge/queryforge-engine/pkg/cluster"
	"github.com/queryforge/queryforge-engine/pkg/executor"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/models"
)

func newTestEnricher(t *testing.T, mock *llm.MockOracleClient, exec executor.Executor, cfg Config) *Enricher {
	t.Helper()
	logger := zaptest.NewLogger(t)
	oracle := llm.NewOracle(mock, fastAgentRetry(), nil, logger)
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 2}, logger)
	return NewEnricher(oracle, exec, cluster.New(0, logger), pool, cfg, logger)
}

const testDBDescription = "An e-commerce application database."

// answerFor builds a well-formed enrichment answer covering the named
// tables and all their columns.
func answerFor(schemaSnapshot models.Schema, names []string) string {
	var ans models.EnrichmentAnswer
	for _, n := range names {
		t := schemaSnapshot.FindTable(n)
		td := models.TableDescription{
			TableName:   n,
			Description: "Holds " + n + " records for the application.",
		}
		for _, c := range t.Columns {
			td.Columns = append(td.Columns, models.ColumnDescription{
				ColumnName:  c.Identifier,
				Description: "The " + c.Identifier + " value of each " + n + " row.",
			})
		}
		ans.Tables = append(ans.Tables, td)
	}
	b, _ := json.Marshal(ans)
	return string(b)
}

// clusterAwareOracle answers the database-description prompt and then
// describes whichever tables appear in each cluster prompt's DDL.
func clusterAwareOracle(schemaSnapshot models.Schema) func(ctx context.Context, prompt, systemMessage string) (string, error) {
	return func(ctx context.Context, prompt, systemMessage string) (string, error) {
		if strings.Contains(prompt, "Summarize in one short paragraph") {
			return `{"database_description": "` + testDBDescription + `"}`, nil
		}
		var names []string
		for _, t := range schemaSnapshot {
			if strings.Contains(prompt, "CREATE TABLE "+t.Identifier+" (") {
				names = append(names, t.Identifier)
			}
		}
		return answerFor(schemaSnapshot, names), nil
	}
}

func TestEnricherFillsDescriptions(t *testing.T) {
	schemaSnapshot := wideSchema()
	mock := &llm.MockOracleClient{CompleteFunc: clusterAwareOracle(schemaSnapshot)}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	result, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	assert.Equal(t, testDBDescription, result.DatabaseDescription)
	assert.Equal(t, 5, result.Stats.TotalTables)
	assert.Equal(t, 8, result.Stats.TotalColumns)
	assert.Equal(t, 5, result.Stats.EnrichedTables)
	assert.Equal(t, 8, result.Stats.EnrichedColumns)
	assert.Empty(t, result.Stats.FailedTables)
	assert.Empty(t, result.Stats.FailedColumns)
	assert.Positive(t, result.Stats.Clusters)

	for _, table := range result.EnrichedSchema {
		assert.NotEmpty(t, table.Description, table.Identifier)
		for _, col := range table.Columns {
			assert.NotEmpty(t, col.Description, table.Identifier+"."+col.Identifier)
		}
	}
}

func TestEnricherKeepsExistingDescriptions(t *testing.T) {
	schemaSnapshot := smallSchema()
	schemaSnapshot[0].Description = "Registered accounts with login identity."
	schemaSnapshot[0].Columns[1].Description = "The display name chosen by the account owner."

	mock := &llm.MockOracleClient{CompleteFunc: clusterAwareOracle(schemaSnapshot)}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	result, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	assert.Equal(t, "Registered accounts with login identity.", schemaSnapshot[0].Description)
	assert.Equal(t, "The display name chosen by the account owner.", schemaSnapshot[0].Columns[1].Description)

	// Only orders got a new table description.
	assert.Equal(t, 1, result.Stats.EnrichedTables)
}

func TestEnricherReplacesPlaceholderColumnDescriptions(t *testing.T) {
	schemaSnapshot := smallSchema()
	schemaSnapshot[0].Columns[0].Description = "NULL"
	schemaSnapshot[0].Columns[1].Description = "''"
	schemaSnapshot[1].Columns[0].Description = "id"

	mock := &llm.MockOracleClient{CompleteFunc: clusterAwareOracle(schemaSnapshot)}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	_, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	assert.Equal(t, "The id value of each users row.", schemaSnapshot[0].Columns[0].Description)
	assert.Equal(t, "The name value of each users row.", schemaSnapshot[0].Columns[1].Description)
	assert.Equal(t, "The id value of each orders row.", schemaSnapshot[1].Columns[0].Description)
}

func TestEnricherRecordsFailures(t *testing.T) {
	schemaSnapshot := smallSchema()
	mock := &llm.MockOracleClient{Responses: []string{
		`{"database_description": "` + testDBDescription + `"}`,
		`{"tables": [{"table_name": "users", "description": "Holds user records.",
			"columns": [{"column_name": "id", "description": "The numeric user id."}]}]}`,
	}}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	result, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	// users.name had no candidate; orders was missing from the answer.
	assert.Equal(t, []string{"users.name"}, result.Stats.FailedColumns)
	assert.Equal(t, []string{"orders"}, result.Stats.FailedTables)
	assert.Equal(t, 1, result.Stats.EnrichedTables)
	assert.Equal(t, 1, result.Stats.EnrichedColumns)
}

func TestEnricherRetriesMalformedClusterAnswer(t *testing.T) {
	schemaSnapshot := smallSchema()
	mock := &llm.MockOracleClient{Responses: []string{
		`{"database_description": "` + testDBDescription + `"}`,
		`{"tables": []}`,
		`this is not json`,
		answerFor(schemaSnapshot, []string{"users", "orders"}),
	}}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	result, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	// Two rejected answers, then the third attempt lands.
	assert.Equal(t, 4, mock.Calls())
	assert.Equal(t, 2, result.Stats.EnrichedTables)
	assert.Empty(t, result.Stats.FailedTables)
}

func TestEnricherClusterFailureLeavesTablesUnenriched(t *testing.T) {
	schemaSnapshot := smallSchema()
	mock := &llm.MockOracleClient{Responses: []string{
		`{"database_description": "` + testDBDescription + `"}`,
		`{"tables": []}`,
	}}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	result, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	// All three attempts rejected; the run still finishes with stats.
	assert.Equal(t, 4, mock.Calls())
	assert.Zero(t, result.Stats.EnrichedTables)
	assert.ElementsMatch(t, []string{"users", "orders"}, result.Stats.FailedTables)
}

func TestEnricherDatabaseDescriptionFailureAborts(t *testing.T) {
	mock := &llm.MockOracleClient{Responses: []string{`no json here`}}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	_, err := enricher.Run(context.Background(), smallSchema())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
	assert.Equal(t, 1, mock.Calls())
}

func TestEnricherEmptySchema(t *testing.T) {
	mock := &llm.MockOracleClient{}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	_, err := enricher.Run(context.Background(), models.Schema{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoValidTables, apperrors.CodeOf(err))
	assert.Zero(t, mock.Calls())
}

func TestEnricherAttachesSampleRowsWhenPrivacyOff(t *testing.T) {
	cfg := testConfig()
	cfg.PrivacyMode = false

	schemaSnapshot := smallSchema()
	mock := &llm.MockOracleClient{CompleteFunc: clusterAwareOracle(schemaSnapshot)}
	exec := &executor.MockExecutor{
		SampleRowsFunc: func(ctx context.Context, table string, limit int) ([]string, error) {
			return []string{"(1, 'sample')"}, nil
		},
	}
	enricher := newTestEnricher(t, mock, exec, cfg)

	_, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	found := false
	for _, prompt := range mock.Prompts() {
		if strings.Contains(prompt, "(1, 'sample')") {
			found = true
		}
	}
	assert.True(t, found, "cluster prompt should carry sample rows")
}

func TestEnricherIgnoresIdentifierCasingFromOracle(t *testing.T) {
	schemaSnapshot := smallSchema()
	mock := &llm.MockOracleClient{Responses: []string{
		`{"database_description": "` + testDBDescription + `"}`,
		`{"tables": [
			{"table_name": "Users", "description": "Holds user records.",
			 "columns": [{"column_name": "ID", "description": "The numeric user id."},
			             {"column_name": "Name", "description": "The user display name."}]},
			{"table_name": "ORDERS", "description": "Holds order records.",
			 "columns": [{"column_name": "id", "description": "The numeric order id."},
			             {"column_name": "user_id", "description": "The ordering user."},
			             {"column_name": "total", "description": "The order total amount."}]}
		]}`,
	}}
	enricher := newTestEnricher(t, mock, &executor.MockExecutor{}, testConfig())

	result, err := enricher.Run(context.Background(), schemaSnapshot)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.EnrichedTables)
	assert.Equal(t, 5, result.Stats.EnrichedColumns)
	assert.Equal(t, "The numeric user id.", schemaSnapshot[0].Columns[0].Description)
	assert.Empty(t, result.Stats.FailedTables)
}
