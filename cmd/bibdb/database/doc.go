// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package database implements the commands that build and inspect the
// references database: build, stats, show, entry, and trickle.
package database
