package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTableCaseInsensitive(t *testing.T) {
	s := Schema{
		{Identifier: "Users"},
		{Identifier: "orders"},
	}

	require.NotNil(t, s.FindTable("users"))
	assert.Equal(t, "Users", s.FindTable("USERS").Identifier)
	assert.Nil(t, s.FindTable("invoices"))
}

func TestFindColumnCaseInsensitive(t *testing.T) {
	table := &Table{Identifier: "users", Columns: []*Column{
		{Identifier: "ID"},
		{Identifier: "name"},
	}}

	require.NotNil(t, table.FindColumn("id"))
	assert.Nil(t, table.FindColumn("email"))
}

func TestNormalizeDialect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
	}{
		{"postgres", DialectPostgres},
		{"PostgreSQL", DialectPostgres},
		{"mysql", DialectMySQL},
		{"MariaDB", DialectMySQL},
		{"mssql", DialectSQLServer},
		{"SQLServer", DialectSQLServer},
		{" postgres ", DialectPostgres},
		{"sqlite", Dialect("sqlite")},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDialect(tt.in))
		})
	}

	assert.True(t, DialectPostgres.IsValid())
	assert.False(t, Dialect("sqlite").IsValid())
}

func TestEnrichmentMapMerge(t *testing.T) {
	m := make(EnrichmentMap)

	m.Merge(EnrichmentAnswer{Tables: []TableDescription{
		{TableName: "users", Description: "Holds user records.",
			Columns: []ColumnDescription{{ColumnName: "id", Description: "The user id."}}},
	}})
	m.Merge(EnrichmentAnswer{Tables: []TableDescription{
		{TableName: "users", Description: "A different description.",
			Columns: []ColumnDescription{
				{ColumnName: "id", Description: "Another id description."},
				{ColumnName: "name", Description: "The display name."},
			}},
		{TableName: "", Description: "ignored"},
	}})

	require.Len(t, m, 1)
	entry := m["users"]
	// First answer wins for table and column descriptions; new columns
	// still accumulate.
	assert.Equal(t, "Holds user records.", entry.Description)
	assert.Equal(t, "The user id.", entry.Columns["id"])
	assert.Equal(t, "The display name.", entry.Columns["name"])
}
