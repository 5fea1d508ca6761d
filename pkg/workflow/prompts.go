package workflow

import "fmt"

// Prompt skeletons for the oracle calls. Each asks for a single JSON
// object whose keys match the response shapes in pkg/models; anything
// that comes back in another shape is a generation failure.

const questionRefinementSkeleton = `Restate the following question as one clear,
self-contained English question about the database described below. Keep every
constraint from the original phrasing and add nothing new.

Database schema:
%s

Question: %s

Answer with a JSON object: {"refined_question": "..."}`

const tableRetrievalSkeleton = `You are selecting tables for SQL generation.
Given the database description, the schema, and the question, list every table
that might be needed to answer the question. Be permissive: include any table
that could plausibly help, and do not drop ambiguous candidates. If no table is
relevant at all, return an empty list.

Database description: %s

Schema:
%s

Question: %s

Answer with a JSON object: {"relevant_tables": ["table_a", "table_b"]}`

const textToSQLSkeleton = `Write a single %s SELECT statement that answers the
question using only the tables below. Do not modify data. Use only tables and
columns that appear in the DDL.

Database description: %s

DDL statements:
%s

Question: %s

Answer with a JSON object: {"sql_query": "SELECT ..."}`

const sqlRepairSkeleton = `The following %s SQL query was generated for a
question but failed. Correct it using only the tables and columns in the DDL
below. Return the full corrected statement, not a diff.

DDL statements:
%s

Question: %s

Failing SQL: %s
Error: %s

Answer with a JSON object: {"sql_query": "SELECT ..."}`

const databaseDescriptionSkeleton = `Summarize in one short paragraph what this
database stores and what business domain it serves, based on its schema.

Schema:
%s

Answer with a JSON object: {"database_description": "..."}`

const schemaEnrichmentSkeleton = `You are documenting a database. For each table
below, write a one-sentence description of the table and of every column, using
the relational context and any sample rows shown. Describe what the data means,
not its type.

Database description: %s

Tables:
%s

Answer with a JSON object:
{"tables": [{"table_name": "...", "description": "...",
"columns": [{"column_name": "...", "description": "..."}]}]}`

func questionRefinementPrompt(schema, question string) string {
	return fmt.Sprintf(questionRefinementSkeleton, schema, question)
}

func tableRetrievalPrompt(dbDescription, schema, question string) string {
	return fmt.Sprintf(tableRetrievalSkeleton, dbDescription, schema, question)
}

func textToSQLPrompt(dialect, dbDescription, ddl, question string) string {
	return fmt.Sprintf(textToSQLSkeleton, dialect, dbDescription, ddl, question)
}

func sqlRepairPrompt(dialect, ddl, question, sql, errText string) string {
	return fmt.Sprintf(sqlRepairSkeleton, dialect, ddl, question, sql, errText)
}

func databaseDescriptionPrompt(schema string) string {
	return fmt.Sprintf(databaseDescriptionSkeleton, schema)
}

func schemaEnrichmentPrompt(dbDescription, tables string) string {
	return fmt.Sprintf(schemaEnrichmentSkeleton, dbDescription, tables)
}
