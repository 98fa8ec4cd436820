// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for bibdb packages.
package testutil

import (
	"io"
	"log/slog"
)

// Logger returns a logger that discards all output, for tests that
// only need to satisfy a *slog.Logger parameter.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
