// Package schemafetch talks to the upstream database-introspection
// service. The schema snapshot is fetched once per request, before the
// workflow starts, and never re-fetched mid-run.
package schemafetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/models"
	"github.com/queryforge/queryforge-engine/pkg/retry"
)

// Fetcher returns a schema snapshot for a connection descriptor.
type Fetcher interface {
	FetchSchema(ctx context.Context, conn *models.ConnectionInfo) (models.Schema, error)
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a schema-fetch client for the given service URL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryCfg: &retry.Config{
			MaxRetries:   2,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		logger: logger.Named("schemafetch"),
	}
}

// schemaResponse is the introspection service's payload.
type schemaResponse struct {
	Tables models.Schema `json:"tables"`
}

// FetchSchema retrieves the schema snapshot for conn. Transient HTTP
// failures are retried; the connection password never leaves this
// process (the descriptor serializes without it, and the service holds
// its own credentials).
func (c *Client) FetchSchema(ctx context.Context, conn *models.ConnectionInfo) (models.Schema, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("schema fetch service is not configured")
	}

	body, err := json.Marshal(conn)
	if err != nil {
		return nil, fmt.Errorf("encode connection descriptor: %w", err)
	}

	start := time.Now()
	schema, err := retry.DoWithResult(ctx, c.retryCfg, func() (models.Schema, error) {
		return c.fetchOnce(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("schema fetched",
		zap.String("database", conn.Database),
		zap.Int("table_count", len(schema)),
		zap.Duration("elapsed", time.Since(start)))

	return schema, nil
}

func (c *Client) fetchOnce(ctx context.Context, body []byte) (models.Schema, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/schema", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build schema request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema fetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("schema fetch returned %d: %s", resp.StatusCode, string(preview))
	}

	var payload schemaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode schema response: %w", err)
	}

	return payload.Tables, nil
}
