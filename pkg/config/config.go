// Package config loads engine configuration from config.yaml with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for queryforge-engine. Values come from
// YAML (config.yaml) or environment variables; environment variables
// always win. Secrets (API keys) must only come from the environment.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8086"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Oracle (LLM) configuration
	Oracle OracleConfig `yaml:"oracle"`

	// Workflow tuning
	Workflow WorkflowConfig `yaml:"workflow"`

	// Upstream schema-introspection service
	SchemaFetch SchemaFetchConfig `yaml:"schema_fetch"`
}

// OracleConfig holds generation-oracle settings.
type OracleConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"ORACLE_PROVIDER" env-default:"openai"`

	// Endpoint is the base URL for openai-compatible providers.
	Endpoint string `yaml:"endpoint" env:"ORACLE_ENDPOINT" env-default:"http://localhost:11434/v1"`

	Model  string `yaml:"model" env:"ORACLE_MODEL" env-default:""`
	APIKey string `yaml:"-" env:"ORACLE_API_KEY"` // Secret - not in YAML

	Temperature float64 `yaml:"temperature" env:"ORACLE_TEMPERATURE" env-default:"0.1"`

	// Per-call timeouts. Retrieval and generation are cheap; enrichment
	// spans many clusters and gets the longest budget.
	RetrievalTimeout  time.Duration `yaml:"retrieval_timeout" env:"ORACLE_RETRIEVAL_TIMEOUT" env-default:"60s"`
	GenerationTimeout time.Duration `yaml:"generation_timeout" env:"ORACLE_GENERATION_TIMEOUT" env-default:"120s"`
	EnrichmentTimeout time.Duration `yaml:"enrichment_timeout" env:"ORACLE_ENRICHMENT_TIMEOUT" env-default:"10m"`

	// TransportRetries is the internal retry count for transient
	// transport failures (rate limits, 5xx) before an oracle error is
	// surfaced to the workflow.
	TransportRetries int `yaml:"transport_retries" env:"ORACLE_TRANSPORT_RETRIES" env-default:"3"`

	// MaxConcurrent bounds parallel oracle calls during enrichment.
	MaxConcurrent int `yaml:"max_concurrent" env:"ORACLE_MAX_CONCURRENT" env-default:"4"`
}

// WorkflowConfig holds SQL-agent and enrichment tuning.
type WorkflowConfig struct {
	// RetrievalThreshold: schemas with more tables than this go through
	// table retrieval; smaller schemas feed every table to generation.
	// 0 means retrieval is always on.
	RetrievalThreshold int `yaml:"retrieval_threshold" env:"WORKFLOW_RETRIEVAL_THRESHOLD" env-default:"0"`

	// MaxSQLRetries is the reflection budget per run.
	MaxSQLRetries int `yaml:"max_sql_retries" env:"WORKFLOW_MAX_SQL_RETRIES" env-default:"3"`

	// PrivacyMode suppresses sample-row fetching for prompt context.
	PrivacyMode bool `yaml:"privacy_mode" env:"WORKFLOW_PRIVACY_MODE" env-default:"false"`

	// ClusterResolution is the Louvain resolution for schema clustering;
	// higher values produce more, smaller clusters.
	ClusterResolution float64 `yaml:"cluster_resolution" env:"WORKFLOW_CLUSTER_RESOLUTION" env-default:"2.5"`

	// SampleRowLimit caps sample rows fetched per table.
	SampleRowLimit int `yaml:"sample_row_limit" env:"WORKFLOW_SAMPLE_ROW_LIMIT" env-default:"3"`
}

// SchemaFetchConfig holds settings for the upstream introspection service.
type SchemaFetchConfig struct {
	BaseURL string        `yaml:"base_url" env:"SCHEMA_FETCH_BASE_URL" env-default:""`
	Timeout time.Duration `yaml:"timeout" env:"SCHEMA_FETCH_TIMEOUT" env-default:"30s"`
}

// Load reads configuration from config.yaml with environment overrides.
// The version parameter is injected at build time. A missing config.yaml
// is not an error; defaults plus environment variables apply.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Oracle.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}
	if c.Workflow.MaxSQLRetries < 1 {
		return fmt.Errorf("max_sql_retries must be at least 1, got %d", c.Workflow.MaxSQLRetries)
	}
	if c.Workflow.ClusterResolution <= 0 {
		return fmt.Errorf("cluster_resolution must be positive, got %f", c.Workflow.ClusterResolution)
	}
	return nil
}
