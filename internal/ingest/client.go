// Package ingest dispatches unit batches to the ingestion service.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// Config points the client at the ingestion endpoint.
type Config struct {
	Endpoint    string
	BearerToken string
	APIKey      string
	Timeout     time.Duration
}

// Client posts one batch per unit. Failures are isolated to the unit that
// produced them; the caller records them and moves on.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New creates a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type batchRequest struct {
	Term         string              `json:"term"`
	LocationName string              `json:"location_name"`
	LocationID   int                 `json:"location_id"`
	Records      []scraper.JobRecord `json:"records"`
}

type batchResponse struct {
	Inserted int `json:"inserted"`
}

// Ingest sends the unit's records and returns how many the service
// stored. Empty batches are skipped without a request.
func (c *Client) Ingest(ctx context.Context, unit scraper.SearchUnit, records []scraper.JobRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(batchRequest{
		Term:         unit.Term,
		LocationName: unit.LocationName,
		LocationID:   unit.LocationID,
		Records:      records,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post batch: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("ingest endpoint returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("batch ingested",
		zap.String("unit", unit.String()),
		zap.Int("sent", len(records)),
		zap.Int("inserted", out.Inserted),
	)
	return out.Inserted, nil
}
