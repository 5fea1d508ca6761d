package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/cluster"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/schemafetch"
	"github.com/queryforge/queryforge-engine/pkg/workflow"
)

// EnrichmentRequest for POST body.
type EnrichmentRequest struct {
	Connection ConnectionRequest `json:"connection"`
}

// EnrichmentHandler handles schema-enrichment requests.
type EnrichmentHandler struct {
	oracle      *llm.Oracle
	fetcher     schemafetch.Fetcher
	newExecutor ExecutorFactory
	clusterer   *cluster.Clusterer
	pool        *llm.WorkerPool
	cfg         workflow.Config
	logger      *zap.Logger
}

// NewEnrichmentHandler creates a new schema-enrichment handler.
func NewEnrichmentHandler(oracle *llm.Oracle, fetcher schemafetch.Fetcher, newExecutor ExecutorFactory, clusterer *cluster.Clusterer, pool *llm.WorkerPool, cfg workflow.Config, logger *zap.Logger) *EnrichmentHandler {
	return &EnrichmentHandler{
		oracle:      oracle,
		fetcher:     fetcher,
		newExecutor: newExecutor,
		clusterer:   clusterer,
		pool:        pool,
		cfg:         cfg,
		logger:      logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *EnrichmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/schema-enrichment", h.Enrich)
}

// Enrich handles POST /api/v1/schema-enrichment requests. The enriched
// schema is returned to the caller; persisting it is the caller's job.
func (h *EnrichmentHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	conn := req.Connection.toModel()
	if !conn.Dialect().IsValid() {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request",
			"unsupported db_type: "+req.Connection.DBType)
		return
	}

	ctx := r.Context()

	schema, err := h.fetcher.FetchSchema(ctx, conn)
	if err != nil {
		h.logger.Error("schema fetch failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "schema_fetch_failed", err.Error())
		return
	}

	exec, err := h.newExecutor(ctx, conn, h.logger)
	if err != nil {
		h.logger.Error("executor setup failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "connection_failed", err.Error())
		return
	}
	defer func() {
		if err := exec.Close(); err != nil {
			h.logger.Warn("executor close failed", zap.Error(err))
		}
	}()

	enricher := workflow.NewEnricher(h.oracle, exec, h.clusterer, h.pool, h.cfg, h.logger)

	result, err := enricher.Run(ctx, schema)
	if err != nil {
		_ = WriteOutcome(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode enrichment response", zap.Error(err))
	}
}
