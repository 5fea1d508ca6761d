package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/cluster"
	"github.com/queryforge/queryforge-engine/pkg/config"
	"github.com/queryforge/queryforge-engine/pkg/executor"
	"github.com/queryforge/queryforge-engine/pkg/handlers"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/middleware"
	"github.com/queryforge/queryforge-engine/pkg/retry"
	"github.com/queryforge/queryforge-engine/pkg/schemafetch"
	"github.com/queryforge/queryforge-engine/pkg/workflow"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("oracle_provider", cfg.Oracle.Provider),
		zap.String("oracle_model", cfg.Oracle.Model),
		zap.String("schema_fetch_url", cfg.SchemaFetch.BaseURL))

	client, err := llm.NewOracleClient(cfg.Oracle.Provider, &llm.Config{
		Endpoint:    cfg.Oracle.Endpoint,
		Model:       cfg.Oracle.Model,
		APIKey:      cfg.Oracle.APIKey,
		Temperature: cfg.Oracle.Temperature,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create oracle client", zap.Error(err))
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Oracle.TransportRetries

	oracle := llm.NewOracle(client, retryCfg,
		llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()), logger)

	fetcher := schemafetch.NewClient(cfg.SchemaFetch.BaseURL, cfg.SchemaFetch.Timeout, logger)
	clusterer := cluster.New(cfg.Workflow.ClusterResolution, logger)
	pool := llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.Oracle.MaxConcurrent}, logger)
	wfCfg := workflow.ConfigFrom(cfg)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTextToSQLHandler(oracle, fetcher, executor.New, wfCfg, logger).RegisterRoutes(mux)
	handlers.NewEnrichmentHandler(oracle, fetcher, executor.New, clusterer, pool, wfCfg, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting queryforge-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
