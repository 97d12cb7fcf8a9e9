// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akarlsen/ludograph/internal/auth"
	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/collage"
	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/enrich"
	"github.com/akarlsen/ludograph/internal/state"
	"github.com/akarlsen/ludograph/internal/steam"
	"github.com/akarlsen/ludograph/internal/websocket"
)

// Router wires the HTTP surface to the application components.
type Router struct {
	cfg      *config.Config
	auth     *auth.Service // nil in auth_mode "none"
	orch     *state.Orchestrator
	enricher *enrich.Enricher
	fetcher  *enrich.Fetcher
	layout   *collage.Engine
	caches   *cache.Collections
	analysis steam.AnalysisClientInterface
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader

	// baseCtx parents background work started by handlers, so shutdown
	// cancels an active sequential run instead of abandoning it.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	enrichMu     sync.Mutex
	enrichCancel context.CancelFunc // non-nil while a sequential run is active
}

// Deps carries everything the router serves from.
type Deps struct {
	Config   *config.Config
	Auth     *auth.Service
	Orch     *state.Orchestrator
	Enricher *enrich.Enricher
	Fetcher  *enrich.Fetcher
	Layout   *collage.Engine
	Caches   *cache.Collections
	Analysis steam.AnalysisClientInterface
	Hub      *websocket.Hub
}

// NewRouter creates the API router.
func NewRouter(deps Deps) *Router {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Router{
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		cfg:      deps.Config,
		auth:     deps.Auth,
		orch:     deps.Orch,
		enricher: deps.Enricher,
		fetcher:  deps.Fetcher,
		layout:   deps.Layout,
		caches:   deps.Caches,
		analysis: deps.Analysis,
		hub:      deps.Hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer; the dashboard may be
			// served from any configured origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Close cancels background work owned by the router, including any active
// sequential enrichment run. Called during server shutdown.
func (rt *Router) Close() {
	rt.baseCancel()
}

// Handler assembles the full route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(realIP)
	r.Use(requestID)
	r.Use(recoverer)
	r.Use(rt.corsHandler())
	r.Use(instrument)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", rt.handleHealth)
		r.Get("/live", rt.handleLive)
		r.Get("/ready", rt.handleReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginRateLimit()).Post("/login", rt.handleLogin)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authenticate)
		r.Use(rt.rateLimit())

		r.Get("/library", rt.handleLibrary)
		r.Get("/library/enriched", rt.handleEnriched)
		r.Post("/library/enrich", rt.handleEnrichStart)
		r.Post("/library/enrich/cancel", rt.handleEnrichCancel)
		r.Get("/reviews", rt.handleReviews)
		r.Get("/collage", rt.handleCollage)
		r.Get("/analysis", rt.handleAnalysis)
		r.Post("/cache/clear", rt.handleCacheClear)
		r.Post("/logout", rt.handleLogout)
		r.Get("/ws", rt.handleWebSocket)
	})

	return r
}
