// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package models

import (
	"strings"
	"testing"
)

func TestTopByPlaytime(t *testing.T) {
	snap := &LibrarySnapshot{
		OwnerKey: "owner-1",
		Games: []GameRecord{
			{ItemID: 1, Name: "Low", CumulativeMinutes: 10},
			{ItemID: 2, Name: "High", CumulativeMinutes: 5000},
			{ItemID: 3, Name: "Mid", CumulativeMinutes: 300},
		},
	}

	top := snap.TopByPlaytime(2)
	if len(top) != 2 {
		t.Fatalf("Expected 2 games, got %d", len(top))
	}
	if top[0].ItemID != 2 || top[1].ItemID != 3 {
		t.Errorf("Expected order [2 3], got [%d %d]", top[0].ItemID, top[1].ItemID)
	}

	// Original slice must be untouched
	if snap.Games[0].ItemID != 1 {
		t.Error("TopByPlaytime mutated the snapshot")
	}
}

func TestTopByPlaytimeStableForEqualPlaytimes(t *testing.T) {
	snap := &LibrarySnapshot{
		Games: []GameRecord{
			{ItemID: 1, Name: "First", CumulativeMinutes: 100},
			{ItemID: 2, Name: "Second", CumulativeMinutes: 100},
			{ItemID: 3, Name: "Third", CumulativeMinutes: 100},
		},
	}

	top := snap.TopByPlaytime(3)
	for i, want := range []int64{1, 2, 3} {
		if top[i].ItemID != want {
			t.Fatalf("Equal playtimes must keep snapshot order, got %v", top)
		}
	}
}

func TestTopByPlaytimeBounds(t *testing.T) {
	snap := &LibrarySnapshot{Games: []GameRecord{{ItemID: 1}}}

	if got := snap.TopByPlaytime(0); got != nil {
		t.Errorf("Expected nil for n=0, got %v", got)
	}
	if got := snap.TopByPlaytime(10); len(got) != 1 {
		t.Errorf("Expected 1 game when n exceeds length, got %d", len(got))
	}
}

func TestItemMetadataPriceValidity(t *testing.T) {
	price := int64(999)

	tests := []struct {
		name    string
		meta    ItemMetadata
		valid   bool
		legacy  bool
		wantVal float64
	}{
		{
			name:    "price with currency",
			meta:    ItemMetadata{PriceMinorUnits: &price, CurrencyCode: "USD"},
			valid:   true,
			wantVal: 9.99,
		},
		{
			name:   "legacy price without currency",
			meta:   ItemMetadata{PriceMinorUnits: &price},
			valid:  false,
			legacy: true,
		},
		{
			name:  "no price at all",
			meta:  ItemMetadata{CurrencyCode: "USD"},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.HasValidPrice(); got != tt.valid {
				t.Errorf("HasValidPrice() = %v, want %v", got, tt.valid)
			}
			if got := tt.meta.IsLegacyShape(); got != tt.legacy {
				t.Errorf("IsLegacyShape() = %v, want %v", got, tt.legacy)
			}
			if tt.valid {
				val, ok := tt.meta.PriceMajorUnits()
				if !ok || val != tt.wantVal {
					t.Errorf("PriceMajorUnits() = %v, %v, want %v, true", val, ok, tt.wantVal)
				}
			}
		})
	}
}

func TestFreeTitlePrice(t *testing.T) {
	free := int64(0)
	meta := ItemMetadata{PriceMinorUnits: &free, CurrencyCode: "EUR"}

	val, ok := meta.PriceMajorUnits()
	if !ok {
		t.Fatal("Expected free title to have a valid price")
	}
	if val != 0 {
		t.Errorf("Expected price 0 for free title, got %v", val)
	}
}

func TestTruncateText(t *testing.T) {
	r := ReviewRecord{Text: strings.Repeat("a", MaxReviewTextLength+100)}
	r.TruncateText()
	if len(r.Text) != MaxReviewTextLength {
		t.Errorf("Expected text length %d, got %d", MaxReviewTextLength, len(r.Text))
	}

	short := ReviewRecord{Text: "fine as is"}
	short.TruncateText()
	if short.Text != "fine as is" {
		t.Error("Short text should not be modified")
	}
}
