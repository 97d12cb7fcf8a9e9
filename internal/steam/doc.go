// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package steam implements the storefront API clients: owned-games library,
// per-item and batched store details, the owner's review feed, and the
// opaque analysis-generation endpoint.
//
// All clients return typed errors: a non-success HTTP status surfaces as a
// *StatusError (throttling detectable via IsThrottled), a malformed payload
// as a wrapped decode error. Neither is retried here; retry policy belongs
// to the callers in the enrich package.
package steam
