package executor

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// sqlDBExecutor executes SQL through database/sql. MySQL and SQL Server
// share this implementation and differ only in DSN, identifier quoting,
// and how a row limit is spelled.
type sqlDBExecutor struct {
	db      *sql.DB
	dialect models.Dialect
	logger  *zap.Logger
}

var _ Executor = (*sqlDBExecutor)(nil)

func newMySQLExecutor(conn *models.ConnectionInfo, logger *zap.Logger) (*sqlDBExecutor, error) {
	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.DBName = conn.Database
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	return &sqlDBExecutor{db: db, dialect: models.DialectMySQL, logger: logger.Named("executor")}, nil
}

func newMSSQLExecutor(conn *models.ConnectionInfo, logger *zap.Logger) (*sqlDBExecutor, error) {
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(conn.User, conn.Password),
		Host:     fmt.Sprintf("%s:%d", conn.Host, conn.Port),
		RawQuery: url.Values{"database": {conn.Database}}.Encode(),
	}

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}

	return &sqlDBExecutor{db: db, dialect: models.DialectSQLServer, logger: logger.Named("executor")}, nil
}

func (e *sqlDBExecutor) Execute(ctx context.Context, sqlText string) *ExecResult {
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		e.logger.Debug("query rejected", zap.Error(err))
		return failure(err, time.Since(start))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return failure(err, time.Since(start))
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() && len(resultRows) < maxResultRows {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
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

func (e *sqlDBExecutor) SampleRows(ctx context.Context, table string, limit int) ([]string, error) {
	var query string
	switch e.dialect {
	case models.DialectSQLServer:
		query = fmt.Sprintf("SELECT TOP %d * FROM %s", limit, quoteBracket(table))
	default:
		query = fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteBacktick(table), limit)
	}

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

func (e *sqlDBExecutor) Close() error {
	return e.db.Close()
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteBracket(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
