package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// New builds the executor for the connection's dialect.
func New(ctx context.Context, conn *models.ConnectionInfo, logger *zap.Logger) (Executor, error) {
	switch dialect := conn.Dialect(); dialect {
	case models.DialectPostgres:
		return newPostgresExecutor(ctx, conn, logger)
	case models.DialectMySQL:
		return newMySQLExecutor(conn, logger)
	case models.DialectSQLServer:
		return newMSSQLExecutor(conn, logger)
	default:
		return nil, fmt.Errorf("unsupported dialect: %q", dialect)
	}
}
