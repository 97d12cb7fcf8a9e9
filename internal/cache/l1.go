// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package cache

import (
	"sync"
	"time"
)

// l1Entry is one cached item in the memory tier.
type l1Entry struct {
	data      any
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-memory TTL cache. It is the L1 tier in
// front of the durable metadata collection: reads that hit here skip the
// store entirely, and every durable write passes through it (write-through).
//
// Expiry is lazy, matching the durable tier: expired entries are removed
// when a Get encounters them.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]l1Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a memory cache with the given TTL for all entries.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]l1Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a value by key. Returns (nil, false) on miss or expiry;
// expired entries are deleted.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; another writer may have
		// replaced the entry since the read.
		if current, ok := c.entries[key]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.data, true
}

// Set stores a value, overwriting any existing entry for the key.
func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = l1Entry{
		data:      value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a key. No-op when the key is absent.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]l1Entry)
	c.mu.Unlock()
}

// Len returns the current number of entries, including any not yet lazily
// expired.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
