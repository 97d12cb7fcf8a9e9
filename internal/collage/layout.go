// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package collage computes the spiral poster layout: cover-art tiles sized
// by playtime, packed outward from the canvas center without overlap.
//
// The engine is pure geometry. It knows nothing about caches or the
// storefront; callers hand it (item, weight) pairs and render the result.
package collage

import (
	"math"
	"sort"
	"time"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
)

// Item is one collage candidate. Weight is typically cumulative playtime
// minutes; only its ratio to the heaviest item matters.
type Item struct {
	ID       int64   `json:"id"`
	Label    string  `json:"label"`
	Weight   float64 `json:"weight"`
	ImageRef string  `json:"image_ref"`
}

// Placement is one positioned tile. X and Y are the top-left corner in
// final layout coordinates.
type Placement struct {
	Item   Item    `json:"item"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the finished collage. Placements are in back-to-front draw
// order: ascending weight, so the heaviest tiles render on top.
type Layout struct {
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Placements []Placement `json:"placements"`
	Dropped    int         `json:"dropped"`
}

// rect is an axis-aligned box in working-canvas coordinates, stored by
// center for the radius search.
type rect struct {
	cx, cy float64
	w, h   float64
}

func (r rect) left() float64   { return r.cx - r.w/2 }
func (r rect) right() float64  { return r.cx + r.w/2 }
func (r rect) top() float64    { return r.cy - r.h/2 }
func (r rect) bottom() float64 { return r.cy + r.h/2 }

// overlaps reports whether two boxes intersect. Shared edges do not count;
// tiles may touch exactly.
func (r rect) overlaps(o rect) bool {
	return r.left() < o.right() && o.left() < r.right() &&
		r.top() < o.bottom() && o.top() < r.bottom()
}

// Engine computes spiral layouts with one set of tuned constants. The
// constants have no derivation beyond looking good at dashboard scale;
// correctness is the overlap-free property, not exact positions.
type Engine struct {
	cfg config.CollageConfig
}

// NewEngine creates a layout engine from configuration.
func NewEngine(cfg config.CollageConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Layout places items on the canvas. Items are placed heaviest first so the
// dominant titles take the center; an item that finds no valid position
// before the search leaves the canvas is dropped silently.
func (e *Engine) Layout(items []Item) *Layout {
	start := time.Now()
	defer func() {
		metrics.CollageLayoutDuration.Observe(time.Since(start).Seconds())
	}()

	if len(items) == 0 {
		return &Layout{}
	}

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Weight > ordered[j].Weight
	})

	maxWeight := ordered[0].Weight
	if maxWeight <= 0 {
		maxWeight = 1
	}

	center := e.cfg.CanvasSize / 2
	maxRadius := e.cfg.CanvasSize * math.Sqrt2

	placed := make([]rect, 0, len(ordered))
	placedItems := make([]Item, 0, len(ordered))
	dropped := 0

	for _, item := range ordered {
		h := e.tileHeight(item.Weight, maxWeight)
		w := h * e.cfg.AspectRatio

		pos, ok := e.findPosition(rect{cx: center, cy: center, w: w, h: h}, center, maxRadius, placed)
		if !ok {
			logging.Debug().Int64("item_id", item.ID).Str("label", item.Label).
				Msg("No collage position found, dropping item")
			metrics.CollageItemsDropped.Inc()
			dropped++
			continue
		}

		placed = append(placed, pos)
		placedItems = append(placedItems, item)
	}

	return e.finalize(placedItems, placed, dropped)
}

// tileHeight maps weight to tile height with square-root scaling, so a 100x
// playtime gap reads as a 10x area gap instead of dwarfing everything else.
func (e *Engine) tileHeight(weight, maxWeight float64) float64 {
	if weight < 0 {
		weight = 0
	}
	scale := math.Sqrt(weight / maxWeight)
	return e.cfg.MinHeight + scale*(e.cfg.MaxHeight-e.cfg.MinHeight)
}

// findPosition searches center-out for a spot for a tile of the candidate's
// size. The exact center is tried first; after that, rings of growing
// radius are sampled, with sample count proportional to circumference so
// angular resolution stays roughly constant. The first ring with any valid
// position wins, taking its candidate closest to the center.
func (e *Engine) findPosition(candidate rect, center, maxRadius float64, placed []rect) (rect, bool) {
	if e.valid(candidate, placed) {
		return candidate, true
	}

	for radius := e.cfg.RadiusStep; radius <= maxRadius; radius += e.cfg.RadiusStep {
		samples := int(float64(e.cfg.BaseSamples) * radius / e.cfg.RadiusStep)
		if samples < e.cfg.BaseSamples {
			samples = e.cfg.BaseSamples
		}

		best := rect{}
		bestDist := math.MaxFloat64
		found := false

		for i := 0; i < samples; i++ {
			angle := 2 * math.Pi * float64(i) / float64(samples)
			c := candidate
			c.cx = center + radius*math.Cos(angle)
			c.cy = center + radius*math.Sin(angle)

			if !e.valid(c, placed) {
				continue
			}

			dist := math.Hypot(c.cx-center, c.cy-center)
			if dist < bestDist {
				best, bestDist, found = c, dist, true
			}
		}

		if found {
			return best, true
		}
	}

	return rect{}, false
}

// valid reports whether the tile lies fully on the working canvas and
// intersects no placed tile.
func (e *Engine) valid(r rect, placed []rect) bool {
	if r.left() < 0 || r.top() < 0 || r.right() > e.cfg.CanvasSize || r.bottom() > e.cfg.CanvasSize {
		return false
	}
	for _, p := range placed {
		if r.overlaps(p) {
			return false
		}
	}
	return true
}

// finalize translates the placed tiles so their bounding box sits at the
// padding offset, sizes the layout to bbox plus padding (plus the optional
// header band), and orders placements back-to-front by ascending weight.
func (e *Engine) finalize(items []Item, placed []rect, dropped int) *Layout {
	if len(placed) == 0 {
		return &Layout{Dropped: dropped}
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, r := range placed {
		minX = math.Min(minX, r.left())
		minY = math.Min(minY, r.top())
		maxX = math.Max(maxX, r.right())
		maxY = math.Max(maxY, r.bottom())
	}

	offsetX := e.cfg.Padding - minX
	offsetY := e.cfg.Padding + e.cfg.HeaderHeight - minY

	placements := make([]Placement, len(placed))
	for i, r := range placed {
		placements[i] = Placement{
			Item:   items[i],
			X:      r.left() + offsetX,
			Y:      r.top() + offsetY,
			Width:  r.w,
			Height: r.h,
		}
	}

	// Back-to-front: the lightest tiles draw first, the heaviest last.
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].Item.Weight < placements[j].Item.Weight
	})

	return &Layout{
		Width:      (maxX - minX) + 2*e.cfg.Padding,
		Height:     (maxY - minY) + 2*e.cfg.Padding + e.cfg.HeaderHeight,
		Placements: placements,
		Dropped:    dropped,
	}
}
