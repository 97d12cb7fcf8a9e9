// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package models defines the core data types shared across the Ludograph
// server: the owner's library snapshot, per-title store metadata, authored
// reviews, and cached analysis results.
//
// All types are plain data carriers with no behavior beyond small validity
// helpers. Relations between entities are by key only (item ID, owner key);
// no type holds a reference to another entity. Records are created and
// replaced wholesale - there is no field-by-field merging anywhere in the
// system, which is what makes last-write-wins concurrent cache writes safe.
package models
