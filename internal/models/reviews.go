// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package models

import "time"

// MaxReviewTextLength caps stored review excerpts. Longer texts are
// truncated at fetch time before the record enters the cache.
const MaxReviewTextLength = 500

// ReviewRecord is one review authored by the library owner.
type ReviewRecord struct {
	ItemID        int64   `json:"item_id"`
	Name          string  `json:"name"`
	Recommended   bool    `json:"recommended"`
	Text          string  `json:"text"`
	HoursAtReview float64 `json:"hours_at_review"`
}

// TruncateText bounds the review excerpt to MaxReviewTextLength runes.
func (r *ReviewRecord) TruncateText() {
	runes := []rune(r.Text)
	if len(runes) > MaxReviewTextLength {
		r.Text = string(runes[:MaxReviewTextLength])
	}
}

// ReviewSet is the owner's full review list, replaced wholesale per fetch.
// TotalCount is the upstream total, which may exceed len(Reviews) when the
// upstream paginates.
type ReviewSet struct {
	OwnerKey   string         `json:"owner_key"`
	Reviews    []ReviewRecord `json:"reviews"`
	TotalCount int            `json:"total_count"`
	CapturedAt time.Time      `json:"captured_at"`
}
