// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package cache

import (
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/akarlsen/ludograph/internal/logging"
	"github.com/akarlsen/ludograph/internal/metrics"
	"github.com/akarlsen/ludograph/internal/store"
)

// envelope wraps every stored record with its capture timestamp. Expiry is
// decided from the envelope so the generic machinery never needs to look
// inside the payload.
type envelope struct {
	CapturedAt time.Time       `json:"captured_at"`
	Payload    json.RawMessage `json:"payload"`
}

// collection implements the uniform per-collection contract: get with lazy
// expiry, whole-record put, invalidate, clear. Typed wrappers add the
// collection-specific validity rules on top.
type collection[T any] struct {
	store  *store.Store
	name   string
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func newCollection[T any](s *store.Store, name, prefix string, ttl time.Duration, now func() time.Time) collection[T] {
	return collection[T]{store: s, name: name, prefix: prefix, ttl: ttl, now: now}
}

func (c *collection[T]) key(k string) []byte {
	return []byte(c.prefix + k)
}

// get returns the record for k, treating missing, expired, and undecodable
// records as misses. Expired records are purged as a side effect. Storage
// errors are swallowed: logged, counted, reported as a miss.
func (c *collection[T]) get(k string) (T, bool) {
	value, ok := c.lookup(k)
	if ok {
		metrics.CacheHits.WithLabelValues(c.name, "l2").Inc()
	}
	return value, ok
}

// lookup is get without the hit accounting. Wrappers that apply an extra
// validity check on the decoded record use it so each read counts exactly
// one hit or one miss, never both.
func (c *collection[T]) lookup(k string) (T, bool) {
	var zero T

	raw, err := c.store.Get(c.key(k))
	if errors.Is(err, store.ErrKeyNotFound) {
		metrics.CacheMisses.WithLabelValues(c.name, "l2").Inc()
		return zero, false
	}
	if err != nil {
		logging.Warn().Err(err).Str("collection", c.name).Str("key", k).Msg("Cache read failed, treating as miss")
		metrics.StoreErrors.WithLabelValues(c.name, "get").Inc()
		return zero, false
	}

	env, value, ok := c.decode(k, raw)
	if !ok {
		return zero, false
	}

	if c.now().Sub(env.CapturedAt) > c.ttl {
		c.purge(k, "expired")
		metrics.CacheMisses.WithLabelValues(c.name, "l2").Inc()
		return zero, false
	}

	return value, true
}

// decode unmarshals the envelope and payload. A record that fails to decode
// is purged and treated as a miss; it would otherwise wedge the key forever.
func (c *collection[T]) decode(k string, raw []byte) (envelope, T, bool) {
	var env envelope
	var value T

	if err := json.Unmarshal(raw, &env); err != nil {
		logging.Warn().Err(err).Str("collection", c.name).Str("key", k).Msg("Undecodable cache envelope, purging")
		c.purge(k, "manual")
		metrics.CacheMisses.WithLabelValues(c.name, "l2").Inc()
		return env, value, false
	}
	if err := json.Unmarshal(env.Payload, &value); err != nil {
		logging.Warn().Err(err).Str("collection", c.name).Str("key", k).Msg("Undecodable cache payload, purging")
		c.purge(k, "manual")
		metrics.CacheMisses.WithLabelValues(c.name, "l2").Inc()
		return env, value, false
	}

	return env, value, true
}

// put stores value wholesale under k with the given capture stamp. Write
// failures are dropped silently apart from a log line; the caller keeps its
// in-memory copy either way.
func (c *collection[T]) put(k string, value T, capturedAt time.Time) {
	payload, err := json.Marshal(value)
	if err != nil {
		logging.Error().Err(err).Str("collection", c.name).Str("key", k).Msg("Cache write marshal failed, dropping")
		return
	}

	data, err := json.Marshal(envelope{CapturedAt: capturedAt, Payload: payload})
	if err != nil {
		logging.Error().Err(err).Str("collection", c.name).Str("key", k).Msg("Cache envelope marshal failed, dropping")
		return
	}

	if err := c.store.Set(c.key(k), data); err != nil {
		logging.Warn().Err(err).Str("collection", c.name).Str("key", k).Msg("Cache write failed, dropping")
		metrics.StoreErrors.WithLabelValues(c.name, "put").Inc()
	}
}

// invalidate removes the record for k.
func (c *collection[T]) invalidate(k string) {
	c.purge(k, "manual")
}

// clear removes every record in the collection.
func (c *collection[T]) clear() {
	if err := c.store.DeletePrefix([]byte(c.prefix)); err != nil {
		logging.Warn().Err(err).Str("collection", c.name).Msg("Cache clear failed")
		metrics.StoreErrors.WithLabelValues(c.name, "delete").Inc()
	}
}

// purge deletes a record and records the eviction reason.
func (c *collection[T]) purge(k, reason string) {
	if err := c.store.Delete(c.key(k)); err != nil {
		logging.Warn().Err(err).Str("collection", c.name).Str("key", k).Msg("Cache purge failed")
		metrics.StoreErrors.WithLabelValues(c.name, "delete").Inc()
		return
	}
	metrics.CacheEvictions.WithLabelValues(c.name, reason).Inc()
}
