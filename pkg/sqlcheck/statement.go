package sqlcheck

import (
	"regexp"
	"strings"
)

// StatementType classifies a SQL statement by its leading keyword.
type StatementType string

const (
	StatementSelect  StatementType = "SELECT"
	StatementModify  StatementType = "MODIFY" // INSERT, UPDATE, DELETE, MERGE
	StatementDDL     StatementType = "DDL"    // CREATE, ALTER, DROP, TRUNCATE
	StatementUnknown StatementType = "UNKNOWN"
)

// modifyingCTEPattern matches CTEs that contain data-modifying
// operations, e.g. WITH deleted AS (DELETE FROM ...) SELECT ...
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// DetectStatementType classifies sql by its first keyword. A WITH
// statement counts as SELECT only when none of its CTEs modify data.
func DetectStatementType(sql string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sql))

	switch {
	case strings.HasPrefix(normalized, "SELECT"):
		return StatementSelect

	case strings.HasPrefix(normalized, "WITH"):
		if modifyingCTEPattern.MatchString(sql) {
			return StatementModify
		}
		return StatementSelect

	case strings.HasPrefix(normalized, "INSERT"),
		strings.HasPrefix(normalized, "UPDATE"),
		strings.HasPrefix(normalized, "DELETE"),
		strings.HasPrefix(normalized, "MERGE"):
		return StatementModify

	case strings.HasPrefix(normalized, "CREATE"),
		strings.HasPrefix(normalized, "ALTER"),
		strings.HasPrefix(normalized, "DROP"),
		strings.HasPrefix(normalized, "TRUNCATE"):
		return StatementDDL

	default:
		return StatementUnknown
	}
}

// IsReadOnly reports whether sql is a plain read (SELECT, including
// non-modifying CTEs).
func IsReadOnly(sql string) bool {
	return DetectStatementType(sql) == StatementSelect
}
