// Package schema renders an in-memory schema into the textual forms
// injected into oracle prompts. All renderers are pure functions over
// the models types.
package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// RenderDDL renders tables as CREATE TABLE statements with column
// descriptions as trailing comments. When includeSamples is true, sample
// rows already attached to a table are appended as a comment block under
// its statement.
func RenderDDL(tables []*models.Table, includeSamples bool) string {
	statements := make([]string, 0, len(tables))

	for _, table := range tables {
		var b strings.Builder
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", table.Identifier)

		for _, col := range table.Columns {
			b.WriteString("    ")
			b.WriteString(col.Identifier)
			b.WriteByte(' ')
			b.WriteString(col.DataType)
			if col.IsPrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			b.WriteByte(',')
			if col.Description != "" {
				b.WriteString(" -- ")
				b.WriteString(col.Description)
			}
			b.WriteByte('\n')
		}
		b.WriteString(");")

		if includeSamples && len(table.SampleRows) > 0 {
			fmt.Fprintf(&b, "\n-- Sample rows for %s:\n", table.Identifier)
			for _, row := range table.SampleRows {
				b.WriteString("--   ")
				b.WriteString(row)
				b.WriteByte('\n')
			}
		}

		statements = append(statements, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(statements, "\n\n")
}

// RenderNarrative renders tables as prose blocks, one sentence per
// column. Used for enrichment prompts where the oracle reasons about
// meaning rather than syntax.
func RenderNarrative(tables []*models.Table) string {
	blocks := make([]string, 0, len(tables))

	for _, table := range tables {
		var b strings.Builder
		entity := inflection.Singular(strings.ToLower(table.Identifier))
		fmt.Fprintf(&b, "Table %s holds %s records.", table.Identifier, entity)
		if table.Description != "" {
			b.WriteByte(' ')
			b.WriteString(table.Description)
		}
		b.WriteString("\nColumns:\n")

		for _, col := range table.Columns {
			desc := col.Description
			if desc == "" {
				desc = "no description available"
			}
			fmt.Fprintf(&b, "    %s (%s): %s\n", col.Identifier, col.DataType, desc)
			for _, rel := range col.Relations {
				fmt.Fprintf(&b, "        references %s.%s (%s)\n",
					rel.TargetTable, rel.TargetColumn, rel.Kind)
			}
		}

		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(blocks, "\n\n")
}

// RenderCompact renders one line per table: the identifier followed by
// its column names. This is the cheapest form and the one used for table
// retrieval, where the whole schema must fit in a single prompt.
func RenderCompact(tables []*models.Table) string {
	lines := make([]string, 0, len(tables))

	for _, table := range tables {
		names := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			names = append(names, col.Identifier)
		}
		line := fmt.Sprintf("%s: %s", table.Identifier, strings.Join(names, ", "))
		if table.Description != "" {
			line += " -- " + table.Description
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
