package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/executor"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/models"
	"github.com/queryforge/queryforge-engine/pkg/schemafetch"
	"github.com/queryforge/queryforge-engine/pkg/workflow"
)

// ConnectionRequest is the inbound connection descriptor. It exists
// separately from models.ConnectionInfo so the password can be accepted
// on the way in without ever being serialized on the way out.
type ConnectionRequest struct {
	DBType   string `json:"db_type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

func (c ConnectionRequest) toModel() *models.ConnectionInfo {
	return &models.ConnectionInfo{
		DBType:   c.DBType,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
	}
}

// TextToSQLRequest for POST body.
type TextToSQLRequest struct {
	Question      string            `json:"question"`
	Connection    ConnectionRequest `json:"connection"`
	DBDescription string            `json:"db_description,omitempty"`
}

// TextToSQLResponse carries the validated, executed statement.
type TextToSQLResponse struct {
	SQLQuery string `json:"sql_query"`
	Dialect  string `json:"dialect"`
}

// ExecutorFactory builds an executor for one request's connection.
type ExecutorFactory func(ctx context.Context, conn *models.ConnectionInfo, logger *zap.Logger) (executor.Executor, error)

// TextToSQLHandler handles text-to-SQL generation requests.
type TextToSQLHandler struct {
	oracle      *llm.Oracle
	fetcher     schemafetch.Fetcher
	newExecutor ExecutorFactory
	cfg         workflow.Config
	logger      *zap.Logger
}

// NewTextToSQLHandler creates a new text-to-SQL handler.
func NewTextToSQLHandler(oracle *llm.Oracle, fetcher schemafetch.Fetcher, newExecutor ExecutorFactory, cfg workflow.Config, logger *zap.Logger) *TextToSQLHandler {
	return &TextToSQLHandler{
		oracle:      oracle,
		fetcher:     fetcher,
		newExecutor: newExecutor,
		cfg:         cfg,
		logger:      logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *TextToSQLHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/text-to-sql", h.Generate)
}

// Generate handles POST /api/v1/text-to-sql requests. The schema is
// fetched fresh for every request; runs never share state.
func (h *TextToSQLHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req TextToSQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question is required")
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

	agent := workflow.NewSQLAgent(h.oracle, exec, h.cfg, h.logger)

	sql, err := agent.Run(ctx, req.Question, schema, conn, req.DBDescription)
	if err != nil {
		_ = WriteOutcome(w, err)
		return
	}

	response := TextToSQLResponse{
		SQLQuery: sql,
		Dialect:  string(conn.Dialect()),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode text-to-sql response", zap.Error(err))
	}
}
