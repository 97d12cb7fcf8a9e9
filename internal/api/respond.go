// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/akarlsen/ludograph/internal/logging"
)

// errorResponse is the uniform error body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
