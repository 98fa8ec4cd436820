// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Bibdb is the CLI for the bibliography references database. It
// provides subcommands for building the database from cataloged .bib
// files (build), inspecting the grouping outcome (stats, show, entry),
// exporting the merged bibliography (export), writing assigned ids
// back into the source files (trickle), and checking CI workflow
// manifests (ci).
package main
