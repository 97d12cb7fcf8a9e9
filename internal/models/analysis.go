// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// AnalysisResult is a cached personality-style analysis derived from an
// owner's top games. The payload is opaque to the server; only the
// fingerprint matters for cache validity.
//
// Fingerprint is a digest of the source data sample the result was derived
// from. A stored result whose fingerprint no longer matches the freshly
// computed one for current library data is stale and must be discarded, not
// returned.
type AnalysisResult struct {
	OwnerKey    string          `json:"owner_key"`
	Payload     json.RawMessage `json:"payload"`
	Fingerprint string          `json:"fingerprint"`
	CapturedAt  time.Time       `json:"captured_at"`
}
