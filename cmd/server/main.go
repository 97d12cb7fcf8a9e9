// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package main is the entry point for the Ludograph server.
//
// Ludograph is a self-hosted analytics dashboard for a personal game
// library: it mirrors the owner's library, reviews, and store metadata
// into a durable TTL cache, enriches titles in rate-limited batches, lays
// the most-played titles out as a spiral collage, and serves everything to
// the dashboard over a JSON API with a websocket progress stream.
//
// Startup order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml,
//     environment variables)
//  2. Logging: zerolog global logger
//  3. Store: BadgerDB at STORE_PATH (in-memory when empty)
//  4. Storefront clients: community API + store API behind a circuit
//     breaker, optional analysis endpoint
//  5. Caches, orchestrator, enrichment, collage engine
//  6. Authentication: JWT or none
//  7. Supervisor tree: store GC, websocket hub, HTTP server
//
// The server shuts down gracefully on SIGINT and SIGTERM: the supervisor
// tree stops its services, the HTTP listener drains in-flight requests,
// and the store is closed last.
//
// Minimal configuration:
//
//	export OWNER_KEY=76561198000000000
//	export STOREFRONT_API_KEY=your-api-key
//	export AUTH_MODE=none  # development only
//	./ludograph
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/akarlsen/ludograph/internal/api"
	"github.com/akarlsen/ludograph/internal/auth"
	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/collage"
	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/enrich"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/state"
	"github.com/akarlsen/ludograph/internal/steam"
	"github.com/akarlsen/ludograph/internal/store"
	"github.com/akarlsen/ludograph/internal/supervisor"
	"github.com/akarlsen/ludograph/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("owner_key", cfg.Storefront.OwnerKey).Msg("Starting Ludograph")

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Msg("Store close failed")
		}
	}()

	var client steam.ClientInterface = steam.NewCircuitBreakerClient(steam.NewClient(cfg.Storefront))
	analysis := steam.NewAnalysisClient(cfg.Storefront)

	caches := cache.New(st, cfg.Cache)
	orch := state.New(client, caches, cfg.Storefront.OwnerKey)
	enricher := enrich.NewEnricher(client, caches.Metadata, cfg.Fetcher.BatchLimit)
	fetcher := enrich.NewFetcher(client, caches.Metadata, cfg.Fetcher)
	layout := collage.NewEngine(cfg.Collage)
	hub := websocket.NewHub()

	var authSvc *auth.Service
	if cfg.Security.AuthMode == "jwt" {
		authSvc, err = auth.NewService(cfg.Security)
		if err != nil {
			return fmt.Errorf("failed to initialize authentication: %w", err)
		}
	} else {
		logging.Warn().Msg("Authentication disabled, do not expose this instance")
	}

	router := api.NewRouter(api.Deps{
		Config:   cfg,
		Auth:     authSvc,
		Orch:     orch,
		Enricher: enricher,
		Fetcher:  fetcher,
		Layout:   layout,
		Caches:   caches,
		Analysis: analysis,
		Hub:      hub,
	})
	defer router.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddDataService(supervisor.NewStoreGCService(st, cfg.Store.GCInterval))
	tree.AddMessagingService(supervisor.NewHubService(hub))
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the dashboard's initial data in the background; the API serves
	// whatever is loaded so far.
	go func() {
		if err := orch.InitializeData(ctx); err != nil {
			logging.Warn().Err(err).Msg("Initial data load incomplete")
		}
	}()

	logging.Info().Str("addr", server.Addr).Msg("Serving API")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
