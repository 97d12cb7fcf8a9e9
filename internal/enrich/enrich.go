// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package enrich resolves store metadata for library items, either in one
// batched storefront call (Enricher) or item by item behind a rate limiter
// (Fetcher). Both paths write resolved records through the metadata cache;
// neither ever caches an unresolved item.
package enrich

import (
	"context"

	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/steam"
)

// Enricher resolves metadata for a set of items with at most one remote
// call: cached records are served from the metadata cache, the remainder is
// fetched in a single batched request.
type Enricher struct {
	client     steam.ClientInterface
	metadata   *cache.MetadataCache
	batchLimit int
}

// NewEnricher creates a batch enricher. batchLimit caps how many uncached
// items a single call may request upstream; items beyond it stay unresolved
// for this call.
func NewEnricher(client steam.ClientInterface, metadata *cache.MetadataCache, batchLimit int) *Enricher {
	return &Enricher{client: client, metadata: metadata, batchLimit: batchLimit}
}

// Enrich returns metadata for every item in itemIDs that resolves, merging
// cache hits with freshly fetched records. Absence from the result means
// "unknown", never "zero value".
//
// An upstream failure degrades, it does not propagate: the cache hits are
// returned alone and the failure is logged. Items the upstream omitted or
// flagged unsuccessful are left out and not cached, so the next call tries
// them again.
func (e *Enricher) Enrich(ctx context.Context, itemIDs []int64) map[int64]models.ItemMetadata {
	hits := e.metadata.GetMany(itemIDs)

	missing := make([]int64, 0, len(itemIDs)-len(hits))
	for _, id := range itemIDs {
		if _, ok := hits[id]; !ok {
			missing = append(missing, id)
		}
	}

	metrics.EnrichmentItems.WithLabelValues("cache_hit").Add(float64(len(hits)))

	if len(missing) == 0 {
		metrics.EnrichmentBatches.WithLabelValues("all_cached").Inc()
		return hits
	}

	if e.batchLimit > 0 && len(missing) > e.batchLimit {
		logging.Warn().Int("missing", len(missing)).Int("limit", e.batchLimit).
			Msg("Enrichment batch truncated to limit")
		missing = missing[:e.batchLimit]
	}

	fetched, err := e.client.GetAppDetailsBatch(ctx, missing)
	if err != nil {
		logging.Warn().Err(err).Int("items", len(missing)).
			Msg("Batch enrichment upstream call failed, serving cache hits only")
		metrics.EnrichmentBatches.WithLabelValues("upstream_failed").Inc()
		return hits
	}

	for id, meta := range fetched {
		m := meta
		e.metadata.Put(&m)
		hits[id] = m
	}

	metrics.EnrichmentBatches.WithLabelValues("fetched").Inc()
	metrics.EnrichmentItems.WithLabelValues("fetched").Add(float64(len(fetched)))
	metrics.EnrichmentItems.WithLabelValues("unresolved").Add(float64(len(missing) - len(fetched)))

	return hits
}
