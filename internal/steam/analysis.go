// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package steam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
)

// ErrAnalysisDisabled is returned when no analysis endpoint is configured.
var ErrAnalysisDisabled = errors.New("analysis endpoint not configured")

// AnalysisClientInterface generates a library analysis from a game sample.
type AnalysisClientInterface interface {
	Generate(ctx context.Context, games []models.GameRecord) (json.RawMessage, error)
}

var _ AnalysisClientInterface = (*AnalysisClient)(nil)

// AnalysisClient posts a playtime sample to the analysis-generation
// endpoint and returns its response verbatim. The payload is opaque to the
// server: it is cached and served as-is, validity decided only by the
// fingerprint of the sample it was derived from.
type AnalysisClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewAnalysisClient creates the analysis client. With no endpoint
// configured every Generate call returns ErrAnalysisDisabled.
func NewAnalysisClient(cfg config.StorefrontConfig) *AnalysisClient {
	return &AnalysisClient{
		endpoint: cfg.AnalysisURL,
		httpClient: &http.Client{
			// Analysis generation is slow; give it more room than the
			// storefront calls.
			Timeout: 2 * time.Minute,
		},
	}
}

type analysisRequest struct {
	Games []analysisGame `json:"games"`
}

type analysisGame struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// Generate requests an analysis for the given game sample.
func (c *AnalysisClient) Generate(ctx context.Context, games []models.GameRecord) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, ErrAnalysisDisabled
	}

	payload := analysisRequest{Games: make([]analysisGame, 0, len(games))}
	for _, g := range games {
		payload.Games = append(payload.Games, analysisGame{Name: g.Name, Hours: g.CumulativeHours()})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.StorefrontRequests.WithLabelValues("analysis", "error").Inc()
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.StorefrontRequests.WithLabelValues("analysis", metrics.StatusClass(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Endpoint: "analysis", Code: resp.StatusCode}
	}

	var result json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return result, nil
}
