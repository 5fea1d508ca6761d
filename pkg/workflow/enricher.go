package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/apperrors"
	"github.com/queryforge/queryforge-engine/pkg/cluster"
	"github.com/queryforge/queryforge-engine/pkg/executor"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/models"
	"github.com/queryforge/queryforge-engine/pkg/schema"
)

// maxClusterAttempts bounds the re-asks when an enrichment answer comes
// back empty or in the wrong shape.
const maxClusterAttempts = 3

// Enricher generates table and column descriptions for a schema. Tables
// are grouped into relation clusters and described one oracle call per
// cluster, fanned out through the worker pool.
type Enricher struct {
	oracle    *llm.Oracle
	exec      executor.Executor
	clusterer *cluster.Clusterer
	pool      *llm.WorkerPool
	cfg       Config
	logger    *zap.Logger
}

// NewEnricher creates an enricher bound to one oracle, one execution
// target, and one clusterer.
func NewEnricher(oracle *llm.Oracle, exec executor.Executor, clusterer *cluster.Clusterer, pool *llm.WorkerPool, cfg Config, logger *zap.Logger) *Enricher {
	return &Enricher{
		oracle:    oracle,
		exec:      exec,
		clusterer: clusterer,
		pool:      pool,
		cfg:       cfg,
		logger:    logger.Named("enricher"),
	}
}

// Run enriches the schema in place and returns the result with fill-in
// statistics. The database description is generated first; if that call
// fails there is no usable context for the per-cluster prompts and the
// run aborts.
func (e *Enricher) Run(ctx context.Context, schemaSnapshot models.Schema) (*models.EnrichmentResult, error) {
	if len(schemaSnapshot) == 0 {
		return nil, apperrors.NewOutcome(apperrors.CodeNoValidTables, "schema has no tables")
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.EnrichmentTimeout)
	defer cancel()

	start := time.Now()

	dbAnswer, err := llm.Ask[models.DatabaseDescription](runCtx, e.oracle,
		databaseDescriptionPrompt(schema.RenderCompact(schemaSnapshot)), "")
	if err != nil {
		return nil, apperrors.NewOutcomeWithCause(apperrors.CodeInternal,
			"database description generation failed", err)
	}
	dbDescription := strings.TrimSpace(dbAnswer.DatabaseDescription)
	e.logger.Info("database description generated", zap.Int("length", len(dbDescription)))

	if !e.cfg.PrivacyMode {
		e.attachSampleRows(runCtx, schemaSnapshot)
	}

	clusters := e.clusterer.Clusters(schemaSnapshot)
	e.logger.Info("schema clustered",
		zap.Int("table_count", len(schemaSnapshot)),
		zap.Int("cluster_count", len(clusters)))

	enriched := make(models.EnrichmentMap)
	for _, result := range e.describeClusters(runCtx, clusters, dbDescription) {
		if result.Err != nil {
			e.logger.Warn("cluster enrichment failed",
				zap.String("cluster", result.ID),
				zap.Error(result.Err))
			continue
		}
		enriched.Merge(result.Result)
	}

	stats := e.apply(schemaSnapshot, enriched)
	stats.Clusters = len(clusters)
	stats.DurationMs = time.Since(start).Milliseconds()

	e.logger.Info("enrichment finished",
		zap.Int("enriched_tables", stats.EnrichedTables),
		zap.Int("enriched_columns", stats.EnrichedColumns),
		zap.Int("failed_tables", len(stats.FailedTables)),
		zap.Int("failed_columns", len(stats.FailedColumns)),
		zap.Int64("duration_ms", stats.DurationMs))

	return &models.EnrichmentResult{
		DatabaseDescription: dbDescription,
		EnrichedSchema:      schemaSnapshot,
		Stats:               stats,
	}, nil
}

// describeClusters fans one oracle call per cluster through the worker
// pool. Individual cluster failures do not stop the others.
func (e *Enricher) describeClusters(ctx context.Context, clusters []cluster.Cluster, dbDescription string) []llm.WorkResult[models.EnrichmentAnswer] {
	items := make([]llm.WorkItem[models.EnrichmentAnswer], len(clusters))
	for i, cl := range clusters {
		cl := cl
		items[i] = llm.WorkItem[models.EnrichmentAnswer]{
			ID:      strings.Join(cl.TableNames(), ","),
			Execute: func(ctx context.Context) (models.EnrichmentAnswer, error) {
				return e.describeCluster(ctx, cl, dbDescription)
			},
		}
	}

	return llm.Process(ctx, e.pool, items, func(completed, total int) {
		e.logger.Debug("cluster progress", zap.Int("completed", completed), zap.Int("total", total))
	})
}

// describeCluster asks the oracle for one cluster's descriptions,
// re-asking when the answer is empty or malformed.
func (e *Enricher) describeCluster(ctx context.Context, cl cluster.Cluster, dbDescription string) (models.EnrichmentAnswer, error) {
	prompt := schemaEnrichmentPrompt(dbDescription, schema.RenderDDL(cl, !e.cfg.PrivacyMode))

	var lastErr error
	for attempt := 1; attempt <= maxClusterAttempts; attempt++ {
		answer, err := llm.Ask[models.EnrichmentAnswer](ctx, e.oracle, prompt, "")
		if err == nil && len(answer.Tables) > 0 {
			return answer, nil
		}
		if err == nil {
			err = fmt.Errorf("enrichment answer contains no tables")
		}
		lastErr = err
		e.logger.Warn("cluster answer rejected",
			zap.Strings("tables", cl.TableNames()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return models.EnrichmentAnswer{}, lastErr
}

// needsColumnDescription reports whether the current description is a
// placeholder worth replacing. Introspection services emit literal NULL
// and quoted-empty markers for undocumented columns.
func needsColumnDescription(current string) bool {
	switch current {
	case "", "NULL", "''":
		return true
	}
	return len(current) < 10
}

// apply writes merged candidate descriptions back onto the schema.
// Existing table descriptions are never overwritten; column placeholders
// are replaced only by candidates long enough to carry meaning.
func (e *Enricher) apply(schemaSnapshot models.Schema, enriched models.EnrichmentMap) models.EnrichmentStats {
	stats := models.EnrichmentStats{
		TotalTables:  len(schemaSnapshot),
		TotalColumns: schemaSnapshot.ColumnCount(),
	}

	for _, table := range schemaSnapshot {
		entry := lookupEnrichment(enriched, table.Identifier)
		if entry == nil {
			stats.FailedTables = append(stats.FailedTables, table.Identifier)
			continue
		}

		if table.Description == "" && entry.Description != "" {
			table.Description = entry.Description
			stats.EnrichedTables++
		}

		for _, col := range table.Columns {
			if !needsColumnDescription(col.Description) {
				continue
			}
			candidate := lookupColumn(entry, col.Identifier)
			if len(candidate) <= 1 {
				stats.FailedColumns = append(stats.FailedColumns,
					table.Identifier+"."+col.Identifier)
				continue
			}
			col.Description = candidate
			stats.EnrichedColumns++
		}
	}

	return stats
}

// lookupEnrichment finds a table's merged entry, tolerating oracle
// answers that change identifier casing.
func lookupEnrichment(enriched models.EnrichmentMap, identifier string) *models.TableEnrichment {
	if entry, ok := enriched[identifier]; ok {
		return entry
	}
	for name, entry := range enriched {
		if strings.EqualFold(name, identifier) {
			return entry
		}
	}
	return nil
}

// lookupColumn finds a column's candidate description, case-insensitive.
func lookupColumn(entry *models.TableEnrichment, identifier string) string {
	if desc, ok := entry.Columns[identifier]; ok {
		return desc
	}
	for name, desc := range entry.Columns {
		if strings.EqualFold(name, identifier) {
			return desc
		}
	}
	return ""
}

// attachSampleRows fetches prompt-context rows for every table that
// doesn't carry them. Failures downgrade to warnings with empty samples.
func (e *Enricher) attachSampleRows(ctx context.Context, schemaSnapshot models.Schema) {
	for _, t := range schemaSnapshot {
		if t.SampleRows != nil {
			continue
		}
		rows, err := e.exec.SampleRows(ctx, t.Identifier, e.cfg.SampleRowLimit)
		if err != nil {
			e.logger.Warn("could not fetch sample rows",
				zap.String("table", t.Identifier),
				zap.Error(err))
			t.SampleRows = []string{}
			continue
		}
		t.SampleRows = rows
	}
}
