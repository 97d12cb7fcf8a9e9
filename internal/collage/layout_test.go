// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package collage

import (
	"math"
	"testing"

	"github.com/akarlsen/ludograph/internal/config"
)

func testCollageConfig() config.CollageConfig {
	return config.CollageConfig{
		CanvasSize:  4000,
		MinHeight:   50,
		MaxHeight:   250,
		AspectRatio: 0.675,
		RadiusStep:  40,
		BaseSamples: 12,
		Padding:     20,
	}
}

func placementsOverlap(a, b Placement) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

func TestLayoutEmpty(t *testing.T) {
	e := NewEngine(testCollageConfig())
	l := e.Layout(nil)
	if len(l.Placements) != 0 || l.Width != 0 || l.Height != 0 {
		t.Errorf("Empty input should give an empty layout, got %+v", l)
	}
}

func TestLayoutSingleItem(t *testing.T) {
	e := NewEngine(testCollageConfig())
	l := e.Layout([]Item{{ID: 1, Label: "Factorio", Weight: 6000}})

	if len(l.Placements) != 1 {
		t.Fatalf("Expected 1 placement, got %d", len(l.Placements))
	}
	p := l.Placements[0]

	// The single (heaviest) item gets max height and sits at the padding
	// offset after translation.
	if p.Height != 250 {
		t.Errorf("Heaviest item should get max height 250, got %v", p.Height)
	}
	if want := 250 * 0.675; math.Abs(p.Width-want) > 1e-9 {
		t.Errorf("Width should be height*aspect = %v, got %v", want, p.Width)
	}
	if p.X != 20 || p.Y != 20 {
		t.Errorf("Lone tile should sit at the padding offset, got (%v, %v)", p.X, p.Y)
	}
	if l.Width != p.Width+40 || l.Height != p.Height+40 {
		t.Errorf("Layout should be bbox + 2*padding, got %vx%v", l.Width, l.Height)
	}
}

func TestLayoutHeightScaling(t *testing.T) {
	e := NewEngine(testCollageConfig())
	l := e.Layout([]Item{
		{ID: 1, Weight: 1000},
		{ID: 2, Weight: 100},
		{ID: 3, Weight: 10},
	})

	if len(l.Placements) != 3 {
		t.Fatalf("Expected 3 placements, got %d", len(l.Placements))
	}

	heights := make(map[int64]float64)
	for _, p := range l.Placements {
		heights[p.Item.ID] = p.Height
	}

	if heights[1] != 250 {
		t.Errorf("Heaviest item should get max height, got %v", heights[1])
	}
	// sqrt scaling: h = 50 + sqrt(w/1000)*200
	for id, weight := range map[int64]float64{2: 100, 3: 10} {
		want := 50 + math.Sqrt(weight/1000)*200
		if math.Abs(heights[id]-want) > 1e-9 {
			t.Errorf("Item %d: expected height %v, got %v", id, want, heights[id])
		}
	}
	if !(heights[1] > heights[2] && heights[2] > heights[3]) {
		t.Errorf("Heights must decrease with weight: %v", heights)
	}
}

func TestLayoutNoOverlaps(t *testing.T) {
	e := NewEngine(testCollageConfig())

	items := make([]Item, 40)
	for i := range items {
		items[i] = Item{ID: int64(i), Weight: float64((i*37)%100 + 1)}
	}

	l := e.Layout(items)
	if len(l.Placements)+l.Dropped != len(items) {
		t.Fatalf("Placed %d + dropped %d != %d items", len(l.Placements), l.Dropped, len(items))
	}

	for i := 0; i < len(l.Placements); i++ {
		for j := i + 1; j < len(l.Placements); j++ {
			if placementsOverlap(l.Placements[i], l.Placements[j]) {
				t.Errorf("Placements %d and %d overlap: %+v vs %+v",
					i, j, l.Placements[i], l.Placements[j])
			}
		}
	}
}

func TestLayoutInBounds(t *testing.T) {
	e := NewEngine(testCollageConfig())

	items := make([]Item, 25)
	for i := range items {
		items[i] = Item{ID: int64(i), Weight: float64(100 - i)}
	}

	l := e.Layout(items)
	for _, p := range l.Placements {
		if p.X < 0 || p.Y < 0 || p.X+p.Width > l.Width || p.Y+p.Height > l.Height {
			t.Errorf("Placement out of layout bounds: %+v in %vx%v", p, l.Width, l.Height)
		}
	}
}

func TestLayoutDrawOrderAscendingWeight(t *testing.T) {
	e := NewEngine(testCollageConfig())
	l := e.Layout([]Item{
		{ID: 1, Weight: 10},
		{ID: 2, Weight: 1000},
		{ID: 3, Weight: 100},
	})

	if len(l.Placements) != 3 {
		t.Fatalf("Expected 3 placements, got %d", len(l.Placements))
	}
	for i := 1; i < len(l.Placements); i++ {
		if l.Placements[i].Item.Weight < l.Placements[i-1].Item.Weight {
			t.Errorf("Draw order must be ascending weight, got %v then %v",
				l.Placements[i-1].Item.Weight, l.Placements[i].Item.Weight)
		}
	}
}

func TestLayoutDropsWhenCanvasFull(t *testing.T) {
	cfg := testCollageConfig()
	// A canvas barely larger than one max-height tile: most items cannot
	// possibly fit.
	cfg.CanvasSize = 500
	e := NewEngine(cfg)

	items := make([]Item, 30)
	for i := range items {
		items[i] = Item{ID: int64(i), Weight: 1000}
	}

	l := e.Layout(items)
	if l.Dropped == 0 {
		t.Error("Expected drops on an overfull canvas")
	}
	if len(l.Placements)+l.Dropped != len(items) {
		t.Errorf("Placed %d + dropped %d != %d", len(l.Placements), l.Dropped, len(items))
	}
}

func TestLayoutDeterministic(t *testing.T) {
	e := NewEngine(testCollageConfig())
	items := []Item{
		{ID: 1, Weight: 500}, {ID: 2, Weight: 400}, {ID: 3, Weight: 300},
		{ID: 4, Weight: 200}, {ID: 5, Weight: 100},
	}

	a := e.Layout(items)
	b := e.Layout(items)

	if len(a.Placements) != len(b.Placements) {
		t.Fatalf("Layouts differ in size: %d vs %d", len(a.Placements), len(b.Placements))
	}
	for i := range a.Placements {
		if a.Placements[i] != b.Placements[i] {
			t.Errorf("Placement %d differs between runs: %+v vs %+v",
				i, a.Placements[i], b.Placements[i])
		}
	}
}

func TestLayoutEqualWeightsKeepInputOrder(t *testing.T) {
	e := NewEngine(testCollageConfig())
	l := e.Layout([]Item{
		{ID: 1, Weight: 100},
		{ID: 2, Weight: 100},
	})

	if len(l.Placements) != 2 {
		t.Fatalf("Expected 2 placements, got %d", len(l.Placements))
	}
	// Stable sorts both ways: item 1 placed first (takes the center) and
	// drawn first among equals.
	if l.Placements[0].Item.ID != 1 {
		t.Errorf("Equal weights should keep input order, got %d first", l.Placements[0].Item.ID)
	}
}

func TestLayoutZeroWeights(t *testing.T) {
	e := NewEngine(testCollageConfig())
	l := e.Layout([]Item{
		{ID: 1, Weight: 0},
		{ID: 2, Weight: 0},
	})

	if len(l.Placements) != 2 {
		t.Fatalf("All-zero weights should still place, got %d", len(l.Placements))
	}
	for _, p := range l.Placements {
		if p.Height != 50 {
			t.Errorf("Zero weight should get min height, got %v", p.Height)
		}
	}
}
