// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package models

import "time"

// ItemMetadata holds store metadata for one catalog item. Metadata is
// owner-independent: one record per item ID is shared across all owners.
//
// Price semantics:
//   - PriceMinorUnits == nil: price unknown
//   - PriceMinorUnits == 0 with CurrencyCode set: free title
//   - PriceMinorUnits != nil with empty CurrencyCode: legacy-shape record
//     from before currency was stored; it must never be used for price
//     display. HasValidPrice reports this case.
type ItemMetadata struct {
	ItemID          int64     `json:"item_id"`
	Genres          []string  `json:"genres"`
	PriceMinorUnits *int64    `json:"price_minor_units,omitempty"`
	CurrencyCode    string    `json:"currency_code,omitempty"`
	Developers      []string  `json:"developers"`
	CriticScore     *int      `json:"critic_score,omitempty"`
	CapturedAt      time.Time `json:"captured_at"`
}

// HasValidPrice reports whether the record carries a price that is safe to
// render. A price without a currency code is a legacy shape that would
// misrender, so it does not count.
func (m *ItemMetadata) HasValidPrice() bool {
	return m.PriceMinorUnits != nil && m.CurrencyCode != ""
}

// IsLegacyShape reports whether the record stored a price without currency
// context. Such records are treated as cache misses and refetched.
func (m *ItemMetadata) IsLegacyShape() bool {
	return m.PriceMinorUnits != nil && m.CurrencyCode == ""
}

// PriceMajorUnits returns the price in major currency units (e.g. 9.99 for
// 999 minor units) and whether a valid price is present.
func (m *ItemMetadata) PriceMajorUnits() (float64, bool) {
	if !m.HasValidPrice() {
		return 0, false
	}
	return float64(*m.PriceMinorUnits) / 100.0, true
}
