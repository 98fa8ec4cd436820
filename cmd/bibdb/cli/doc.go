// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-tree framework for the bibdb
// binary: command dispatch with typo suggestions, struct-tag flag
// binding over pflag, JSON output support, and exit-code errors.
package cli
