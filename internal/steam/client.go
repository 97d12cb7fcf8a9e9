// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package steam

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
)

// ClientInterface defines the storefront operations the rest of the server
// depends on. Both Client and CircuitBreakerClient implement it, and tests
// substitute doubles.
type ClientInterface interface {
	GetOwnedGames(ctx context.Context) (*models.LibrarySnapshot, error)
	GetAppDetails(ctx context.Context, itemID int64) (*models.ItemMetadata, error)
	GetAppDetailsBatch(ctx context.Context, itemIDs []int64) (map[int64]models.ItemMetadata, error)
	GetOwnerReviews(ctx context.Context) (*models.ReviewSet, error)
}

var _ ClientInterface = (*Client)(nil)

// Client talks to the two storefront hosts: the community API (library and
// reviews, key-authenticated) and the store API (item details, anonymous
// but aggressively throttled).
type Client struct {
	baseURL      string
	storeBaseURL string
	apiKey       string
	ownerKey     string
	countryCode  string
	httpClient   *http.Client
}

// NewClient creates a storefront client from configuration.
func NewClient(cfg config.StorefrontConfig) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		storeBaseURL: strings.TrimSuffix(cfg.StoreBaseURL, "/"),
		apiKey:       cfg.APIKey,
		ownerKey:     cfg.OwnerKey,
		countryCode:  cfg.CountryCode,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ownedGamesEnvelope mirrors the library endpoint's wire shape.
type ownedGamesEnvelope struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []ownedGame `json:"games"`
	} `json:"response"`
}

type ownedGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int64  `json:"playtime_forever"`
	Playtime2Weeks  int64  `json:"playtime_2weeks"`
	RTimeLastPlayed int64  `json:"rtime_last_played"`
	ImgIconURL      string `json:"img_icon_url"`
}

// appDetailsEnvelope is the store details response: a map keyed by the
// string form of the item ID. Items the store knows nothing about come back
// with success=false or are omitted entirely.
type appDetailsEnvelope map[string]appDetailsEntry

type appDetailsEntry struct {
	Success bool           `json:"success"`
	Data    appDetailsData `json:"data"`
}

type appDetailsData struct {
	Genres []struct {
		Description string `json:"description"`
	} `json:"genres"`
	PriceOverview *struct {
		Currency string `json:"currency"`
		Final    int64  `json:"final"`
	} `json:"price_overview"`
	IsFree     bool     `json:"is_free"`
	Developers []string `json:"developers"`
	Metacritic *struct {
		Score int `json:"score"`
	} `json:"metacritic"`
}

// reviewsEnvelope mirrors the aggregated owner-reviews endpoint.
type reviewsEnvelope struct {
	Success    int `json:"success"`
	TotalCount int `json:"total_count"`
	Reviews    []struct {
		AppID         int64   `json:"appid"`
		Name          string  `json:"name"`
		VotedUp       bool    `json:"voted_up"`
		Review        string  `json:"review"`
		HoursAtReview float64 `json:"hours_at_review"`
	} `json:"reviews"`
}

// GetOwnedGames fetches the owner's full library with playtime.
func (c *Client) GetOwnedGames(ctx context.Context) (*models.LibrarySnapshot, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamid", c.ownerKey)
	q.Set("include_appinfo", "1")
	q.Set("include_played_free_games", "1")
	q.Set("format", "json")

	var env ownedGamesEnvelope
	if err := c.getJSON(ctx, "library", c.baseURL+"/IPlayerService/GetOwnedGames/v1/?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("owned games fetch failed: %w", err)
	}

	snap := &models.LibrarySnapshot{
		OwnerKey: c.ownerKey,
		Games:    make([]models.GameRecord, 0, len(env.Response.Games)),
	}
	for _, g := range env.Response.Games {
		snap.Games = append(snap.Games, models.GameRecord{
			ItemID:            g.AppID,
			Name:              g.Name,
			CumulativeMinutes: g.PlaytimeForever,
			RecentMinutes:     g.Playtime2Weeks,
			LastPlayed:        g.RTimeLastPlayed,
			IconRef:           g.ImgIconURL,
		})
	}
	return snap, nil
}

// GetAppDetails fetches store metadata for one item. Returns ErrNoData when
// the store has no record, a *StatusError on non-success status (throttling
// included), or a decode error on a malformed payload.
func (c *Client) GetAppDetails(ctx context.Context, itemID int64) (*models.ItemMetadata, error) {
	details, err := c.fetchDetails(ctx, "appdetails", []int64{itemID})
	if err != nil {
		return nil, err
	}

	meta, ok := details[itemID]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNoData)
	}
	return &meta, nil
}

// GetAppDetailsBatch fetches store metadata for many items in one request.
// Items the store omitted or flagged unsuccessful are simply absent from
// the result; only transport-level problems return an error.
func (c *Client) GetAppDetailsBatch(ctx context.Context, itemIDs []int64) (map[int64]models.ItemMetadata, error) {
	if len(itemIDs) == 0 {
		return map[int64]models.ItemMetadata{}, nil
	}
	return c.fetchDetails(ctx, "appdetails_batch", itemIDs)
}

func (c *Client) fetchDetails(ctx context.Context, endpoint string, itemIDs []int64) (map[int64]models.ItemMetadata, error) {
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	q := url.Values{}
	q.Set("appids", strings.Join(ids, ","))
	q.Set("cc", c.countryCode)

	var env appDetailsEnvelope
	if err := c.getJSON(ctx, endpoint, c.storeBaseURL+"/api/appdetails?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("app details fetch failed: %w", err)
	}

	result := make(map[int64]models.ItemMetadata, len(env))
	for key, entry := range env {
		if !entry.Success {
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		result[id] = buildMetadata(id, entry.Data)
	}
	return result, nil
}

// buildMetadata maps the store wire shape onto ItemMetadata. Price is kept
// in minor units. Free titles carry an explicit zero price; titles without
// any price information keep a nil price, meaning unknown.
func buildMetadata(itemID int64, data appDetailsData) models.ItemMetadata {
	meta := models.ItemMetadata{
		ItemID:     itemID,
		Developers: data.Developers,
	}

	for _, g := range data.Genres {
		meta.Genres = append(meta.Genres, g.Description)
	}
	if data.Metacritic != nil {
		score := data.Metacritic.Score
		meta.CriticScore = &score
	}

	switch {
	case data.PriceOverview != nil:
		price := data.PriceOverview.Final
		meta.PriceMinorUnits = &price
		meta.CurrencyCode = data.PriceOverview.Currency
	case data.IsFree:
		// The store omits price_overview for free titles; record the zero
		// explicitly so "free" and "unknown" stay distinguishable.
		zero := int64(0)
		meta.PriceMinorUnits = &zero
		meta.CurrencyCode = "USD"
	}

	return meta
}

// GetOwnerReviews fetches all reviews the owner has authored, with review
// text bounded before the set enters any cache.
func (c *Client) GetOwnerReviews(ctx context.Context) (*models.ReviewSet, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("steamid", c.ownerKey)
	q.Set("format", "json")

	var env reviewsEnvelope
	if err := c.getJSON(ctx, "reviews", c.baseURL+"/IUserReviews/GetAuthoredReviews/v1/?"+q.Encode(), &env); err != nil {
		return nil, fmt.Errorf("reviews fetch failed: %w", err)
	}
	if env.Success != 1 {
		return nil, fmt.Errorf("reviews endpoint reported failure (%d): %w", env.Success, ErrNoData)
	}

	set := &models.ReviewSet{
		OwnerKey:   c.ownerKey,
		TotalCount: env.TotalCount,
		Reviews:    make([]models.ReviewRecord, 0, len(env.Reviews)),
	}
	for _, r := range env.Reviews {
		rec := models.ReviewRecord{
			ItemID:        r.AppID,
			Name:          r.Name,
			Recommended:   r.VotedUp,
			Text:          r.Review,
			HoursAtReview: r.HoursAtReview,
		}
		rec.TruncateText()
		set.Reviews = append(set.Reviews, rec)
	}
	return set, nil
}

// getJSON performs a GET and decodes the response. Non-2xx responses become
// a *StatusError without touching the body; decode failures are returned
// wrapped so callers treat them as transport errors.
func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.StorefrontRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.StorefrontRequests.WithLabelValues(endpoint, metrics.StatusClass(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
