// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/akarlsen/ludograph/internal/auth"
	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/collage"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/state"
	"github.com/akarlsen/ludograph/internal/steam"
	"github.com/akarlsen/ludograph/internal/websocket"
)

const defaultTopN = 50

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	if rt.caches == nil || rt.orch == nil {
		writeError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if rt.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "authentication disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := rt.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// handleLogout resets the session state and empties every cache
// collection.
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	rt.orch.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// libraryResponse is the library view plus its load status flags.
type libraryResponse struct {
	OwnerKey   string              `json:"owner_key"`
	CapturedAt time.Time           `json:"captured_at"`
	Games      []models.GameRecord `json:"games"`
	Status     state.Status        `json:"status"`
}

func (rt *Router) handleLibrary(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"

	snap, err := rt.orch.FetchGames(r.Context(), force)
	if err != nil {
		writeError(w, http.StatusBadGateway, "library fetch failed")
		return
	}

	_, status := rt.orch.Games()
	writeJSON(w, http.StatusOK, libraryResponse{
		OwnerKey:   snap.OwnerKey,
		CapturedAt: snap.CapturedAt,
		Games:      snap.Games,
		Status:     status,
	})
}

type reviewsResponse struct {
	OwnerKey   string                `json:"owner_key"`
	CapturedAt time.Time             `json:"captured_at"`
	TotalCount int                   `json:"total_count"`
	Reviews    []models.ReviewRecord `json:"reviews"`
	Status     state.Status          `json:"status"`
}

func (rt *Router) handleReviews(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"

	set, err := rt.orch.FetchReviews(r.Context(), force)
	if err != nil {
		writeError(w, http.StatusBadGateway, "reviews fetch failed")
		return
	}

	_, status := rt.orch.Reviews()
	writeJSON(w, http.StatusOK, reviewsResponse{
		OwnerKey:   set.OwnerKey,
		CapturedAt: set.CapturedAt,
		TotalCount: set.TotalCount,
		Reviews:    set.Reviews,
		Status:     status,
	})
}

// enrichedGame pairs a library record with its store metadata. Metadata is
// null when the item did not resolve; absence means unknown, not free or
// zero.
type enrichedGame struct {
	models.GameRecord
	Metadata *models.ItemMetadata `json:"metadata,omitempty"`
}

func (rt *Router) handleEnriched(w http.ResponseWriter, r *http.Request) {
	limit := rt.parseLimit(r, defaultTopN)

	snap, err := rt.orch.FetchGames(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, "library fetch failed")
		return
	}

	top := snap.TopByPlaytime(limit)
	ids := make([]int64, len(top))
	for i, g := range top {
		ids[i] = g.ItemID
	}

	resolved := rt.enricher.Enrich(r.Context(), ids)

	items := make([]enrichedGame, len(top))
	for i, g := range top {
		items[i] = enrichedGame{GameRecord: g}
		if meta, ok := resolved[g.ItemID]; ok {
			m := meta
			items[i].Metadata = &m
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"resolved": len(resolved),
	})
}

// handleEnrichStart kicks off a background sequential enrichment of the
// top-N library items, with progress streamed over the websocket hub. Only
// one run may be active at a time.
func (rt *Router) handleEnrichStart(w http.ResponseWriter, r *http.Request) {
	limit := rt.parseLimit(r, defaultTopN)

	snap, err := rt.orch.FetchGames(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, "library fetch failed")
		return
	}

	top := snap.TopByPlaytime(limit)
	ids := make([]int64, len(top))
	for i, g := range top {
		ids[i] = g.ItemID
	}

	if !rt.startEnrichRun(ids) {
		writeError(w, http.StatusConflict, "an enrichment run is already active")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"total":  len(ids),
	})
}

// handleEnrichCancel cancels the active sequential run, if any.
func (rt *Router) handleEnrichCancel(w http.ResponseWriter, r *http.Request) {
	if !rt.cancelEnrichRun() {
		writeError(w, http.StatusNotFound, "no active enrichment run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (rt *Router) startEnrichRun(ids []int64) bool {
	rt.enrichMu.Lock()
	defer rt.enrichMu.Unlock()
	if rt.enrichCancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(rt.baseCtx)
	rt.enrichCancel = cancel

	go func() {
		defer func() {
			rt.enrichMu.Lock()
			rt.enrichCancel = nil
			rt.enrichMu.Unlock()
		}()

		results, err := rt.fetcher.FetchAll(ctx, ids, func(done, total int, itemID int64) {
			rt.hub.BroadcastProgress(done, total, itemID)
		})
		if err != nil {
			logging.Info().Err(err).Msg("Sequential enrichment ended early")
			rt.hub.BroadcastDone(0, len(ids))
			return
		}
		rt.hub.BroadcastDone(len(results), len(ids))
	}()

	return true
}

func (rt *Router) cancelEnrichRun() bool {
	rt.enrichMu.Lock()
	defer rt.enrichMu.Unlock()
	if rt.enrichCancel == nil {
		return false
	}
	rt.enrichCancel()
	return true
}

func (rt *Router) handleCollage(w http.ResponseWriter, r *http.Request) {
	limit := rt.parseLimit(r, defaultTopN)

	snap, err := rt.orch.FetchGames(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, "library fetch failed")
		return
	}

	top := snap.TopByPlaytime(limit)
	items := make([]collage.Item, len(top))
	for i, g := range top {
		items[i] = collage.Item{
			ID:       g.ItemID,
			Label:    g.Name,
			Weight:   float64(g.CumulativeMinutes),
			ImageRef: g.IconRef,
		}
	}

	writeJSON(w, http.StatusOK, rt.layout.Layout(items))
}

type analysisResponse struct {
	Payload     json.RawMessage `json:"payload"`
	Fingerprint string          `json:"fingerprint"`
	CapturedAt  time.Time       `json:"captured_at"`
	FromCache   bool            `json:"from_cache"`
}

// handleAnalysis serves the cached analysis when its fingerprint still
// matches the current library, and regenerates it otherwise.
func (rt *Router) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	snap, err := rt.orch.FetchGames(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusBadGateway, "library fetch failed")
		return
	}

	fingerprint := cache.Fingerprint(snap)
	if cached, ok := rt.caches.Analysis.Get(snap.OwnerKey, fingerprint); ok {
		writeJSON(w, http.StatusOK, analysisResponse{
			Payload:     cached.Payload,
			Fingerprint: cached.Fingerprint,
			CapturedAt:  cached.CapturedAt,
			FromCache:   true,
		})
		return
	}

	payload, err := rt.analysis.Generate(r.Context(), snap.TopByPlaytime(cache.FingerprintTopN))
	if err != nil {
		if errors.Is(err, steam.ErrAnalysisDisabled) {
			writeError(w, http.StatusServiceUnavailable, "analysis not configured")
			return
		}
		writeError(w, http.StatusBadGateway, "analysis generation failed")
		return
	}

	result := models.AnalysisResult{
		OwnerKey:    snap.OwnerKey,
		Payload:     payload,
		Fingerprint: fingerprint,
	}
	rt.caches.Analysis.Put(&result)

	writeJSON(w, http.StatusOK, analysisResponse{
		Payload:     result.Payload,
		Fingerprint: result.Fingerprint,
		CapturedAt:  result.CapturedAt,
		FromCache:   false,
	})
}

// handleCacheClear empties one collection, or all of them when no
// collection parameter is given.
func (rt *Router) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	ownerKey := rt.cfg.Storefront.OwnerKey

	switch collection := r.URL.Query().Get("collection"); collection {
	case "":
		rt.caches.Clear()
	case "games":
		rt.caches.Games.Invalidate(ownerKey)
	case "metadata":
		rt.caches.Metadata.Clear()
	case "analysis":
		rt.caches.Analysis.Invalidate(ownerKey)
	case "reviews":
		rt.caches.Reviews.Invalidate(ownerKey)
	default:
		writeError(w, http.StatusBadRequest, "unknown collection")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (rt *Router) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := websocket.NewClient(rt.hub, conn)
	rt.hub.Register <- client
	client.Start()
}

// parseLimit bounds the limit query parameter to [1, batch limit].
func (rt *Router) parseLimit(r *http.Request, fallback int) int {
	limit := fallback
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max := rt.cfg.Fetcher.BatchLimit; limit > max {
		limit = max
	}
	return limit
}
