// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package cache implements the typed cache collections over the durable
// store, plus the in-memory L1 tier that fronts the metadata collection.
//
// Four collections exist, each with its own TTL measured from the record's
// capture time:
//
//	Games    (key: owner key)  30 minutes
//	Metadata (key: item ID)    30 days
//	Analysis (key: owner key)  7 days
//	Reviews  (key: owner key)  24 hours
//
// Expiry is lazy: a read past TTL behaves as a miss and purges the stale
// record as a side effect. There is no background sweep over collections.
//
// Two collections carry extra validity rules beyond TTL:
//
//   - Metadata: a record holding a price without a currency code is a
//     legacy shape from before currency was stored; it is treated as
//     absent and deleted so it gets refetched.
//   - Analysis: reads supply the fingerprint of the current source data;
//     a stored result with a different fingerprint is stale, deleted, and
//     reported absent.
//
// Every storage failure is swallowed at this boundary - logged, counted,
// and converted to a miss on read or a dropped write. Callers above this
// package never see a storage error; the system degrades to "no cache"
// rather than failing the view.
package cache
