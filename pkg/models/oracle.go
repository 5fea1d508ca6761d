package models

// Structured response shapes the generation oracle is asked to produce.
// The JSON field names are part of the prompt contract: the oracle is told
// to answer with exactly these keys, and anything that fails to unmarshal
// is a generation failure, never repaired textually.

// RelevantTables is the oracle's answer to table retrieval.
type RelevantTables struct {
	RelevantTables []string `json:"relevant_tables"`
}

// SQLAnswer is the oracle's answer to SQL generation and SQL repair.
type SQLAnswer struct {
	SQLQuery string `json:"sql_query"`
}

// RefinedQuestion is the oracle's restatement of the user question.
type RefinedQuestion struct {
	RefinedQuestion string `json:"refined_question"`
}

// DatabaseDescription is the oracle's one-paragraph database summary.
type DatabaseDescription struct {
	DatabaseDescription string `json:"database_description"`
}

// ColumnDescription pairs a column identifier with its candidate
// description.
type ColumnDescription struct {
	ColumnName  string `json:"column_name"`
	Description string `json:"description"`
}

// TableDescription carries candidate descriptions for one table and its
// columns.
type TableDescription struct {
	TableName   string              `json:"table_name"`
	Description string              `json:"description"`
	Columns     []ColumnDescription `json:"columns"`
}

// EnrichmentAnswer is the oracle's answer for one cluster of tables.
type EnrichmentAnswer struct {
	Tables []TableDescription `json:"tables"`
}
