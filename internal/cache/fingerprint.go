// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/akarlsen/ludograph/internal/models"
)

// FingerprintTopN is how many games by playtime feed the analysis
// fingerprint. Changes below this rank do not invalidate stored results.
const FingerprintTopN = 50

// Fingerprint derives a stable content hash from the games an analysis was
// computed over. It hashes the ordered name and playtime pairs of the top
// games, so any change in ranking, naming, or hours among them produces a
// different value and forces regeneration.
func Fingerprint(snap *models.LibrarySnapshot) string {
	h := sha256.New()
	for _, g := range snap.TopByPlaytime(FingerprintTopN) {
		h.Write([]byte(g.Name))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(g.CumulativeMinutes, 10)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
