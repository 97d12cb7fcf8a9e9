// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
)

// requestID tags every request with an ID for log correlation, honoring an
// inbound X-Request-ID when the proxy already set one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records per-route request counts and latency, keyed by the
// Chi route pattern so path parameters do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		metrics.RecordAPIRequest(r.Method, pattern, sw.status, time.Since(start))

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Str("request_id", w.Header().Get("X-Request-ID")).
			Msg("Request handled")
	})
}

// recoverer converts handler panics into 500s instead of dropping the
// connection, mirroring chimiddleware.Recoverer but with our log format
// and JSON error body.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Handler panicked")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate gates a route group behind a Bearer session token. In
// auth_mode "none" it passes everything through.
func (rt *Router) authenticate(next http.Handler) http.Handler {
	if rt.auth == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := rt.auth.Validate(token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsHandler builds the CORS middleware from the configured dashboard
// origins.
func (rt *Router) corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})
}

// rateLimit is the default per-IP API limit.
func (rt *Router) rateLimit() func(http.Handler) http.Handler {
	return httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow)
}

// loginRateLimit is a much stricter limit for the login endpoint.
func loginRateLimit() func(http.Handler) http.Handler {
	return httprate.LimitByIP(5, 5*time.Minute)
}

// realIP resolves the client address behind a reverse proxy.
var realIP = chimiddleware.RealIP
