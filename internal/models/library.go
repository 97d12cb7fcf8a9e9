// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package models

import (
	"sort"
	"time"
)

// GameRecord is a single entry in an owner's library snapshot.
//
// Playtime fields come straight from the storefront and are untrusted:
// RecentMinutes counts an independent rolling window and may legitimately
// exceed CumulativeMinutes for titles whose lifetime counter was reset
// upstream. Consumers must not assume RecentMinutes <= CumulativeMinutes.
type GameRecord struct {
	ItemID            int64  `json:"item_id"`
	Name              string `json:"name"`
	CumulativeMinutes int64  `json:"cumulative_minutes"`
	RecentMinutes     int64  `json:"recent_minutes"`
	LastPlayed        int64  `json:"last_played"` // Unix seconds, 0 = never
	IconRef           string `json:"icon_ref"`
}

// CumulativeHours returns lifetime playtime in hours.
func (g GameRecord) CumulativeHours() float64 {
	return float64(g.CumulativeMinutes) / 60.0
}

// LibrarySnapshot is the full game list for one owner as returned by the
// library endpoint. Snapshots are replaced wholesale on refresh and never
// partially mutated. Item IDs are unique within a snapshot.
type LibrarySnapshot struct {
	OwnerKey   string       `json:"owner_key"`
	Games      []GameRecord `json:"games"`
	CapturedAt time.Time    `json:"captured_at"`
}

// TopByPlaytime returns up to n games ordered by descending cumulative
// playtime. The receiver's slice is not modified.
func (s *LibrarySnapshot) TopByPlaytime(n int) []GameRecord {
	if n <= 0 {
		return nil
	}

	sorted := make([]GameRecord, len(s.Games))
	copy(sorted, s.Games)

	// Stable so equal playtimes keep their snapshot order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CumulativeMinutes > sorted[j].CumulativeMinutes
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
