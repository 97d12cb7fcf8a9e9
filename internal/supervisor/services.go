// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akarlsen/ludograph/internal/store"
	"github.com/akarlsen/ludograph/internal/websocket"
)

// HTTPServer matches the *http.Server lifecycle methods the service needs,
// so tests can substitute a double.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts an HTTP server's blocking ListenAndServe to suture's
// context-aware Serve: the listener runs in a goroutine and context
// cancellation triggers a graceful Shutdown bounded by shutdownTimeout.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps an HTTP server as a supervised service.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The serve context is already cancelled; shutdown needs its own.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// HubService runs the websocket hub's broadcast loop under supervision.
type HubService struct {
	hub *websocket.Hub
}

// NewHubService wraps the hub as a supervised service.
func NewHubService(hub *websocket.Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.Run(ctx)
}

func (s *HubService) String() string { return "websocket-hub" }

// StoreGCService runs the BadgerDB value-log garbage collector on an
// interval for as long as the tree is up.
type StoreGCService struct {
	store    *store.Store
	interval time.Duration
}

// NewStoreGCService wraps the store's GC loop as a supervised service.
func NewStoreGCService(st *store.Store, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{store: st, interval: interval}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	s.store.GCLoop(ctx.Done(), s.interval)
	return ctx.Err()
}

func (s *StoreGCService) String() string { return "store-gc" }
