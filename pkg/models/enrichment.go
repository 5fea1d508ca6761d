package models

// TableEnrichment holds the merged candidate descriptions for one table.
type TableEnrichment struct {
	Description string
	Columns     map[string]string // column identifier -> candidate description
}

// EnrichmentMap maps table identifiers to their merged candidate
// descriptions. It is built by merging oracle answers across clusters
// before being applied back onto the schema.
type EnrichmentMap map[string]*TableEnrichment

// Merge folds one oracle answer into the map. Later answers never
// overwrite an existing table description, but column candidates
// accumulate across answers.
func (m EnrichmentMap) Merge(answer EnrichmentAnswer) {
	for _, table := range answer.Tables {
		if table.TableName == "" {
			continue
		}
		entry, ok := m[table.TableName]
		if !ok {
			entry = &TableEnrichment{Columns: make(map[string]string)}
			m[table.TableName] = entry
		}
		if entry.Description == "" {
			entry.Description = table.Description
		}
		for _, col := range table.Columns {
			if col.ColumnName == "" {
				continue
			}
			if _, exists := entry.Columns[col.ColumnName]; !exists {
				entry.Columns[col.ColumnName] = col.Description
			}
		}
	}
}

// EnrichmentStats reports how much of a schema an enrichment run filled in.
type EnrichmentStats struct {
	TotalTables     int      `json:"total_tables"`
	TotalColumns    int      `json:"total_columns"`
	EnrichedTables  int      `json:"enriched_tables"`
	EnrichedColumns int      `json:"enriched_columns"`
	FailedTables    []string `json:"failed_tables,omitempty"`
	FailedColumns   []string `json:"failed_columns,omitempty"`
	Clusters        int      `json:"clusters"`
	DurationMs      int64    `json:"duration_ms"`
}

// EnrichmentResult is the terminal value of the enrichment workflow.
type EnrichmentResult struct {
	DatabaseDescription string          `json:"database_description"`
	EnrichedSchema      Schema          `json:"enriched_schema"`
	Stats               EnrichmentStats `json:"stats"`
}
