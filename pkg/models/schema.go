package models

import "strings"

// Relation cardinality values, as reported by the upstream introspection
// service.
const (
	Cardinality1To1    = "1:1"
	Cardinality1ToN    = "1:N"
	CardinalityNTo1    = "N:1"
	CardinalityNToM    = "N:M"
	CardinalityUnknown = "unknown"
)

// Relation is a directed edge from the owning column to a column in
// another table. The target table is not guaranteed to exist in the same
// schema snapshot; consumers must tolerate dangling relations.
type Relation struct {
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
	Kind         string `json:"kind"`
}

// Column describes one column of a table.
type Column struct {
	Identifier   string     `json:"identifier"`
	DataType     string     `json:"data_type"`
	IsPrimaryKey bool       `json:"is_primary_key"`
	Description  string     `json:"description,omitempty"`
	Relations    []Relation `json:"relations,omitempty"`
}

// Table describes one table of a schema snapshot.
//
// SampleRows holds pre-formatted row strings (one per retrieved row) used
// only as prompt context; they never participate in validation.
type Table struct {
	Identifier  string    `json:"identifier"`
	Description string    `json:"description,omitempty"`
	Columns     []*Column `json:"columns"`
	SampleRows  []string  `json:"sample_rows,omitempty"`
}

// FindColumn returns the column with the given identifier, matched
// case-insensitively, or nil.
func (t *Table) FindColumn(identifier string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Identifier, identifier) {
			return c
		}
	}
	return nil
}

// Schema is the ordered list of tables for one request. It is immutable
// for the duration of a workflow run; table identifiers are unique under
// case-insensitive comparison.
type Schema []*Table

// FindTable returns the table with the given identifier, matched
// case-insensitively, or nil.
func (s Schema) FindTable(identifier string) *Table {
	for _, t := range s {
		if strings.EqualFold(t.Identifier, identifier) {
			return t
		}
	}
	return nil
}

// TableNames returns the table identifiers in schema order.
func (s Schema) TableNames() []string {
	names := make([]string, len(s))
	for i, t := range s {
		names[i] = t.Identifier
	}
	return names
}

// ColumnCount returns the total number of columns across all tables.
func (s Schema) ColumnCount() int {
	n := 0
	for _, t := range s {
		n += len(t.Columns)
	}
	return n
}
