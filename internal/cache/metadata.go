// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package cache

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/store"
)

// MetadataCache caches per-item store metadata, keyed by item ID and shared
// across owners. It is the one collection with two tiers: a short-lived
// in-memory L1 in front of the 30 day durable L2, write-through on Put.
//
// Beyond TTL expiry, a record holding a price without a currency code is a
// legacy shape stored before currency context existed; it is treated as
// absent (and purged) so the item gets refetched with full fields.
type MetadataCache struct {
	col collection[models.ItemMetadata]
	l1  *MemoryCache
}

func newMetadataCache(s *store.Store, cfg config.CacheConfig, now func() time.Time) *MetadataCache {
	l1 := NewMemoryCache(cfg.L1TTL)
	l1.now = now
	return &MetadataCache{
		col: newCollection[models.ItemMetadata](s, "metadata", metadataKeyPrefix, cfg.MetadataTTL, now),
		l1:  l1,
	}
}

func metadataKey(itemID int64) string {
	return strconv.FormatInt(itemID, 10)
}

// Get returns the metadata for itemID, or absent when missing, expired, or
// a legacy-shape record.
func (m *MetadataCache) Get(itemID int64) (*models.ItemMetadata, bool) {
	key := metadataKey(itemID)

	if cached, ok := m.l1.Get(key); ok {
		meta := cached.(models.ItemMetadata)
		metrics.CacheHits.WithLabelValues("metadata", "l1").Inc()
		return &meta, true
	}
	metrics.CacheMisses.WithLabelValues("metadata", "l1").Inc()

	meta, ok := m.col.lookup(key)
	if !ok {
		return nil, false
	}
	if meta.IsLegacyShape() {
		m.col.purge(key, "legacy_shape")
		metrics.CacheMisses.WithLabelValues("metadata", "l2").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("metadata", "l2").Inc()
	m.l1.Set(key, meta)
	return &meta, true
}

// GetMany returns metadata for every id that has a live, valid record,
// reading the whole remainder after the L1 pass in one store transaction.
// Expired and legacy records are filtered out (and purged). An empty input
// returns an empty map without touching storage.
func (m *MetadataCache) GetMany(itemIDs []int64) map[int64]models.ItemMetadata {
	result := make(map[int64]models.ItemMetadata, len(itemIDs))
	if len(itemIDs) == 0 {
		return result
	}

	var missing [][]byte
	missingIDs := make(map[string]int64)

	for _, id := range itemIDs {
		key := metadataKey(id)
		if cached, ok := m.l1.Get(key); ok {
			result[id] = cached.(models.ItemMetadata)
			metrics.CacheHits.WithLabelValues("metadata", "l1").Inc()
			continue
		}
		storeKey := string(m.col.key(key))
		missing = append(missing, []byte(storeKey))
		missingIDs[storeKey] = id
	}

	if len(missing) == 0 {
		return result
	}

	rows, err := m.col.store.GetMany(missing)
	if err != nil {
		logging.Warn().Err(err).Int("keys", len(missing)).Msg("Metadata batch read failed, treating all as misses")
		metrics.StoreErrors.WithLabelValues("metadata", "get").Inc()
		return result
	}

	now := m.col.now()
	for storeKey, raw := range rows {
		id := missingIDs[storeKey]
		key := metadataKey(id)

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			m.col.purge(key, "manual")
			continue
		}
		if now.Sub(env.CapturedAt) > m.col.ttl {
			m.col.purge(key, "expired")
			continue
		}

		var meta models.ItemMetadata
		if err := json.Unmarshal(env.Payload, &meta); err != nil {
			m.col.purge(key, "manual")
			continue
		}
		if meta.IsLegacyShape() {
			m.col.purge(key, "legacy_shape")
			continue
		}

		metrics.CacheHits.WithLabelValues("metadata", "l2").Inc()
		m.l1.Set(key, meta)
		result[id] = meta
	}

	return result
}

// Put replaces the record for meta.ItemID wholesale in both tiers.
// Last-write-wins: concurrent writers for the same item are safe because
// no merging ever happens.
func (m *MetadataCache) Put(meta *models.ItemMetadata) {
	meta.CapturedAt = m.col.now()
	key := metadataKey(meta.ItemID)

	m.col.put(key, *meta, meta.CapturedAt)
	m.l1.Set(key, *meta)
}

// Invalidate removes the record for itemID from both tiers.
func (m *MetadataCache) Invalidate(itemID int64) {
	key := metadataKey(itemID)
	m.l1.Delete(key)
	m.col.invalidate(key)
}

// Clear empties both tiers.
func (m *MetadataCache) Clear() {
	m.l1.Clear()
	m.col.clear()
}
