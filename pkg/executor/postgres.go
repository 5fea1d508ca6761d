package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// postgresExecutor executes SQL over a pgx connection pool.
type postgresExecutor struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Executor = (*postgresExecutor)(nil)

func newPostgresExecutor(ctx context.Context, conn *models.ConnectionInfo, logger *zap.Logger) (*postgresExecutor, error) {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(conn.User, conn.Password),
		Host:   fmt.Sprintf("%s:%d", conn.Host, conn.Port),
		Path:   "/" + conn.Database,
	}

	pool, err := pgxpool.New(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &postgresExecutor{
		pool:   pool,
		logger: logger.Named("executor"),
	}, nil
}

func (e *postgresExecutor) Execute(ctx context.Context, sql string) *ExecResult {
	start := time.Now()

	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		e.logger.Debug("query rejected", zap.Error(err))
		return failure(err, time.Since(start))
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() && len(resultRows) < maxResultRows {
		values, err := rows.Values()
		if err != nil {
			return failure(err, time.Since(start))
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return failure(err, time.Since(start))
	}

	return &ExecResult{Columns: columns, Rows: resultRows, Elapsed: time.Since(start)}
}

func (e *postgresExecutor) SampleRows(ctx context.Context, table string, limit int) ([]string, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteDouble(table), limit)

	result := e.Execute(ctx, query)
	if result.Failed() {
		return nil, fmt.Errorf("sample rows for %s: %s", table, result.ErrorMessage)
	}

	samples := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		samples = append(samples, formatRow(result.Columns, row))
	}
	return samples, nil
}

func (e *postgresExecutor) Close() error {
	e.pool.Close()
	return nil
}

// quoteDouble quotes an identifier with double quotes, doubling any
// embedded quote characters.
func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
