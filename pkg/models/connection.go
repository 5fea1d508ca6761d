package models

import "strings"

// Dialect identifies a supported SQL dialect.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLServer Dialect = "sqlserver"
)

// ValidDialects contains all supported dialect values.
var ValidDialects = []Dialect{DialectPostgres, DialectMySQL, DialectSQLServer}

// NormalizeDialect maps upstream database-type strings onto a Dialect.
// Unrecognized values pass through lowercased so errors name what the
// caller actually sent.
func NormalizeDialect(dbType string) Dialect {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "postgresql":
		return DialectPostgres
	case "mysql", "mariadb":
		return DialectMySQL
	case "sqlserver", "mssql":
		return DialectSQLServer
	default:
		return Dialect(strings.ToLower(strings.TrimSpace(dbType)))
	}
}

// IsValid reports whether the dialect is one of the supported set.
func (d Dialect) IsValid() bool {
	for _, v := range ValidDialects {
		if d == v {
			return true
		}
	}
	return false
}

// ConnectionInfo describes one datasource connection. It is read-only for
// the duration of a workflow run.
type ConnectionInfo struct {
	DBType   string `json:"db_type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	Database string `json:"database"`
}

// Dialect returns the normalized dialect for this connection.
func (c *ConnectionInfo) Dialect() Dialect {
	return NormalizeDialect(c.DBType)
}
