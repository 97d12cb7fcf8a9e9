// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package cache

import (
	"time"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/store"
)

// Key prefixes for the durable store
const (
	gamesKeyPrefix    = "games:"
	metadataKeyPrefix = "meta:"
	analysisKeyPrefix = "analysis:"
	reviewsKeyPrefix  = "reviews:"
)

// Collections bundles the four typed cache collections. It is the single
// owner of all cached entities; everything above it holds transient copies.
type Collections struct {
	Games    *GamesCache
	Metadata *MetadataCache
	Analysis *AnalysisCache
	Reviews  *ReviewsCache
}

// New creates the cache collections over the given durable store.
func New(s *store.Store, cfg config.CacheConfig) *Collections {
	return NewWithClock(s, cfg, time.Now)
}

// NewWithClock is New with an injectable clock, used by tests to exercise
// TTL expiry without sleeping.
func NewWithClock(s *store.Store, cfg config.CacheConfig, now func() time.Time) *Collections {
	return &Collections{
		Games:    &GamesCache{col: newCollection[models.LibrarySnapshot](s, "games", gamesKeyPrefix, cfg.GamesTTL, now)},
		Metadata: newMetadataCache(s, cfg, now),
		Analysis: &AnalysisCache{col: newCollection[models.AnalysisResult](s, "analysis", analysisKeyPrefix, cfg.AnalysisTTL, now)},
		Reviews:  &ReviewsCache{col: newCollection[models.ReviewSet](s, "reviews", reviewsKeyPrefix, cfg.ReviewsTTL, now)},
	}
}

// Clear empties every collection. Used on logout.
func (c *Collections) Clear() {
	c.Games.col.clear()
	c.Metadata.Clear()
	c.Analysis.col.clear()
	c.Reviews.col.clear()
}

// GamesCache caches the library snapshot per owner.
type GamesCache struct {
	col collection[models.LibrarySnapshot]
}

// Get returns the cached snapshot for ownerKey, or absent when missing or
// past the 30 minute TTL.
func (g *GamesCache) Get(ownerKey string) (*models.LibrarySnapshot, bool) {
	snap, ok := g.col.get(ownerKey)
	if !ok {
		return nil, false
	}
	return &snap, true
}

// Put replaces the stored snapshot wholesale with a fresh capture stamp.
func (g *GamesCache) Put(snap *models.LibrarySnapshot) {
	snap.CapturedAt = g.col.now()
	g.col.put(snap.OwnerKey, *snap, snap.CapturedAt)
}

// Invalidate removes the snapshot for ownerKey.
func (g *GamesCache) Invalidate(ownerKey string) {
	g.col.invalidate(ownerKey)
}

// AnalysisCache caches the derived analysis result per owner, guarded by a
// content fingerprint in addition to its 7 day TTL.
type AnalysisCache struct {
	col collection[models.AnalysisResult]
}

// Get returns the stored result only when its fingerprint equals
// currentFingerprint. A mismatch means the library data the result was
// derived from has changed: the stale record is deleted and absence
// reported. A stale result must never be returned.
func (a *AnalysisCache) Get(ownerKey, currentFingerprint string) (*models.AnalysisResult, bool) {
	result, ok := a.col.lookup(ownerKey)
	if !ok {
		return nil, false
	}

	if result.Fingerprint != currentFingerprint {
		a.col.purge(ownerKey, "fingerprint")
		metrics.CacheMisses.WithLabelValues("analysis", "l2").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("analysis", "l2").Inc()
	return &result, true
}

// Put replaces the stored result wholesale.
func (a *AnalysisCache) Put(result *models.AnalysisResult) {
	result.CapturedAt = a.col.now()
	a.col.put(result.OwnerKey, *result, result.CapturedAt)
}

// Invalidate removes the result for ownerKey.
func (a *AnalysisCache) Invalidate(ownerKey string) {
	a.col.invalidate(ownerKey)
}

// ReviewsCache caches the owner's review set.
type ReviewsCache struct {
	col collection[models.ReviewSet]
}

// Get returns the cached review set, or absent past the 24 hour TTL.
func (r *ReviewsCache) Get(ownerKey string) (*models.ReviewSet, bool) {
	set, ok := r.col.get(ownerKey)
	if !ok {
		return nil, false
	}
	return &set, true
}

// Put replaces the stored review set wholesale.
func (r *ReviewsCache) Put(set *models.ReviewSet) {
	set.CapturedAt = r.col.now()
	r.col.put(set.OwnerKey, *set, set.CapturedAt)
}

// Invalidate removes the review set for ownerKey. Forced review refreshes
// call this before fetching, unlike Games which only bypasses the read.
func (r *ReviewsCache) Invalidate(ownerKey string) {
	r.col.invalidate(ownerKey)
}
