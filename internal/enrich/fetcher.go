// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package enrich

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/steam"
)

// ProgressFunc reports sequential fetch progress after each item, resolved
// or not. Callers use it to stream progress to the dashboard; nil disables
// reporting.
type ProgressFunc func(done, total int, itemID int64)

// Fetcher resolves metadata item by item, pacing requests so the store
// host's throttling is never provoked. State is per instance: two fetchers
// rate-limit independently.
//
// Duplicate in-flight fetches of the same item are tolerated rather than
// deduplicated; metadata writes are idempotent last-write-wins.
type Fetcher struct {
	client   steam.ClientInterface
	metadata *cache.MetadataCache
	limiter  *rate.Limiter
	cfg      config.FetcherConfig

	// sleep is replaced in tests to run backoff without wall-clock waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a sequential fetcher. The limiter admits one request
// per MinInterval with no burst headroom, so consecutive requests are
// always at least MinInterval apart.
func NewFetcher(client steam.ClientInterface, metadata *cache.MetadataCache, cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		client:   client,
		metadata: metadata,
		limiter:  rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchOne resolves one item, waiting on the rate limiter first and
// retrying throttled responses up to MaxRetries extra times with doubling
// backoff. A still-throttled final attempt returns its *StatusError to the
// caller; other failures return immediately without retry.
func (f *Fetcher) FetchOne(ctx context.Context, itemID int64) (*models.ItemMetadata, error) {
	backoff := f.cfg.RetryBackoff

	for attempt := 0; ; attempt++ {
		start := time.Now()
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		metrics.RateLimiterWait.Observe(time.Since(start).Seconds())

		meta, err := f.client.GetAppDetails(ctx, itemID)
		if err == nil {
			return meta, nil
		}
		if !steam.IsThrottled(err) || attempt >= f.cfg.MaxRetries {
			return nil, err
		}

		logging.Warn().Err(err).Int64("item_id", itemID).Int("attempt", attempt+1).
			Dur("backoff", backoff).Msg("Storefront throttled, backing off")
		metrics.StorefrontThrottleRetries.Inc()

		if err := f.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

// FetchAll resolves metadata for itemIDs in order, serving each item from
// the cache when possible and fetching the rest sequentially. Items that
// fail to resolve are logged and skipped; they are absent from the result
// and never cached.
//
// Cancellation is cooperative, checked at the top of each iteration. On
// cancel the partial result is discarded and ctx.Err() returned; cache
// writes already committed stay.
func (f *Fetcher) FetchAll(ctx context.Context, itemIDs []int64, progress ProgressFunc) (map[int64]models.ItemMetadata, error) {
	results := make(map[int64]models.ItemMetadata, len(itemIDs))
	total := len(itemIDs)

	for i, id := range itemIDs {
		if err := ctx.Err(); err != nil {
			logging.Debug().Int("done", i).Int("total", total).Msg("Sequential fetch cancelled")
			return nil, err
		}

		if meta, ok := f.metadata.Get(id); ok {
			results[id] = *meta
			metrics.EnrichmentItems.WithLabelValues("cache_hit").Inc()
			reportProgress(progress, i+1, total, id)
			continue
		}

		meta, err := f.FetchOne(ctx, id)
		switch {
		case err == nil:
			f.metadata.Put(meta)
			results[id] = *meta
			metrics.EnrichmentItems.WithLabelValues("fetched").Inc()
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			logging.Warn().Err(err).Int64("item_id", id).Msg("Item fetch failed, skipping")
			metrics.EnrichmentItems.WithLabelValues("unresolved").Inc()
		}

		reportProgress(progress, i+1, total, id)

		// Breathing room between iterations on top of the limiter, so a
		// long run never saturates the host.
		if i < total-1 {
			if err := f.sleep(ctx, f.cfg.LoopDelay); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

func reportProgress(progress ProgressFunc, done, total int, itemID int64) {
	if progress != nil {
		progress(done, total, itemID)
	}
}
