// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package state holds the session-scoped view of the owner's library and
// reviews: the in-memory copies the API serves from, the cache plumbing
// behind them, and the loading flags the dashboard renders.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/steam"
)

// Status describes one collection's load state for the dashboard.
type Status struct {
	// Loading is set during an initial load with no data yet.
	Loading bool `json:"loading"`

	// Refreshing is set during a reload while stale data is still served.
	Refreshing bool `json:"refreshing"`

	// FromCache reports whether the current data came from the cache
	// rather than a live fetch, with CacheAge its age at read time.
	FromCache bool          `json:"from_cache"`
	CacheAge  time.Duration `json:"cache_age"`
}

// Orchestrator coordinates fetching, caching, and serving the library and
// review collections. All exported methods are safe for concurrent use; the
// mutex is never held across a network call, so slow fetches block neither
// readers nor each other.
type Orchestrator struct {
	client   steam.ClientInterface
	caches   *cache.Collections
	ownerKey string
	now      func() time.Time

	mu            sync.Mutex
	games         *models.LibrarySnapshot
	reviews       *models.ReviewSet
	gamesStatus   Status
	reviewsStatus Status
	initialized   bool
}

// New creates an orchestrator for one owner.
func New(client steam.ClientInterface, caches *cache.Collections, ownerKey string) *Orchestrator {
	return &Orchestrator{
		client:   client,
		caches:   caches,
		ownerKey: ownerKey,
		now:      time.Now,
	}
}

// Games returns the current library snapshot and its status. The snapshot
// may be nil before the first successful load.
func (o *Orchestrator) Games() (*models.LibrarySnapshot, Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.games, o.gamesStatus
}

// Reviews returns the current review set and its status.
func (o *Orchestrator) Reviews() (*models.ReviewSet, Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reviews, o.reviewsStatus
}

// FetchGames loads the library, serving the cache unless forced. A forced
// fetch skips the cache read but still writes the result through, so the
// next unforced call hits. On failure any previously loaded data is kept
// and the error returned with the busy flags cleared.
func (o *Orchestrator) FetchGames(ctx context.Context, force bool) (*models.LibrarySnapshot, error) {
	o.beginGames()
	defer o.endGames()

	if !force {
		if snap, ok := o.caches.Games.Get(o.ownerKey); ok {
			o.mu.Lock()
			o.games = snap
			o.gamesStatus.FromCache = true
			o.gamesStatus.CacheAge = o.now().Sub(snap.CapturedAt)
			o.mu.Unlock()
			return snap, nil
		}
	}

	snap, err := o.client.GetOwnedGames(ctx)
	if err != nil {
		return nil, err
	}

	o.caches.Games.Put(snap)

	o.mu.Lock()
	o.games = snap
	o.gamesStatus.FromCache = false
	o.gamesStatus.CacheAge = 0
	o.mu.Unlock()

	return snap, nil
}

// FetchReviews loads the review set, serving the cache unless forced. A
// forced refresh invalidates the cache entry before fetching, so a failed
// fetch cannot fall back to data the user explicitly asked to replace.
func (o *Orchestrator) FetchReviews(ctx context.Context, force bool) (*models.ReviewSet, error) {
	o.beginReviews()
	defer o.endReviews()

	if force {
		o.caches.Reviews.Invalidate(o.ownerKey)
	} else if set, ok := o.caches.Reviews.Get(o.ownerKey); ok {
		o.mu.Lock()
		o.reviews = set
		o.reviewsStatus.FromCache = true
		o.reviewsStatus.CacheAge = o.now().Sub(set.CapturedAt)
		o.mu.Unlock()
		return set, nil
	}

	set, err := o.client.GetOwnerReviews(ctx)
	if err != nil {
		return nil, err
	}

	o.caches.Reviews.Put(set)

	o.mu.Lock()
	o.reviews = set
	o.reviewsStatus.FromCache = false
	o.reviewsStatus.CacheAge = 0
	o.mu.Unlock()

	return set, nil
}

// InitializeData runs the initial library and review loads concurrently.
// Only the first call does anything; later calls (including concurrent
// ones) return immediately, so a double-mounting dashboard cannot trigger
// duplicate fetch storms.
func (o *Orchestrator) InitializeData(ctx context.Context) error {
	o.mu.Lock()
	if o.initialized {
		o.mu.Unlock()
		return nil
	}
	o.initialized = true
	o.mu.Unlock()

	var wg sync.WaitGroup
	var gamesErr, reviewsErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := o.FetchGames(ctx, false); err != nil {
			gamesErr = err
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := o.FetchReviews(ctx, false); err != nil {
			reviewsErr = err
		}
	}()
	wg.Wait()

	if gamesErr != nil || reviewsErr != nil {
		logging.Warn().AnErr("games", gamesErr).AnErr("reviews", reviewsErr).
			Msg("Initial data load partially failed")
	}
	return errors.Join(gamesErr, reviewsErr)
}

// Reset drops all session state and empties every cache collection. Called
// on logout.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.games = nil
	o.reviews = nil
	o.gamesStatus = Status{}
	o.reviewsStatus = Status{}
	o.initialized = false
	o.mu.Unlock()

	o.caches.Clear()
}

func (o *Orchestrator) beginGames() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.games == nil {
		o.gamesStatus.Loading = true
	} else {
		o.gamesStatus.Refreshing = true
	}
}

func (o *Orchestrator) endGames() {
	o.mu.Lock()
	o.gamesStatus.Loading = false
	o.gamesStatus.Refreshing = false
	o.mu.Unlock()
}

func (o *Orchestrator) beginReviews() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reviews == nil {
		o.reviewsStatus.Loading = true
	} else {
		o.reviewsStatus.Refreshing = true
	}
}

func (o *Orchestrator) endReviews() {
	o.mu.Lock()
	o.reviewsStatus.Loading = false
	o.reviewsStatus.Refreshing = false
	o.mu.Unlock()
}
