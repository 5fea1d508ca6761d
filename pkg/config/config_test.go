package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("1.0.0")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, "8086", cfg.Port)
	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, 3, cfg.Workflow.MaxSQLRetries)
	assert.Equal(t, 0, cfg.Workflow.RetrievalThreshold)
	assert.InDelta(t, 2.5, cfg.Workflow.ClusterResolution, 0.001)
	assert.False(t, cfg.Workflow.PrivacyMode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ORACLE_PROVIDER", "anthropic")
	t.Setenv("WORKFLOW_MAX_SQL_RETRIES", "5")
	t.Setenv("WORKFLOW_PRIVACY_MODE", "true")

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Oracle.Provider)
	assert.Equal(t, 5, cfg.Workflow.MaxSQLRetries)
	assert.True(t, cfg.Workflow.PrivacyMode)
}

func TestLoadFromYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "config.yaml", `
port: "9000"
oracle:
  model: test-model
workflow:
  retrieval_threshold: 10
`)

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "test-model", cfg.Oracle.Model)
	assert.Equal(t, 10, cfg.Workflow.RetrievalThreshold)
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ORACLE_PROVIDER", "bedrock")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bedrock")
}

func TestLoadRejectsZeroRetries(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WORKFLOW_MAX_SQL_RETRIES", "0")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_sql_retries")
}
