// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package api serves the dashboard's JSON API over a Chi router: session
// login, the library and review views, batch enrichment, the collage
// layout, the analysis endpoint, cache administration, health, metrics,
// and the websocket progress stream.
package api
