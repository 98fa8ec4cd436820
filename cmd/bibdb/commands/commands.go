// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete bibdb CLI command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	cicmd "github.com/bibliobase/bibdb/cmd/bibdb/ci"
	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/cmd/bibdb/database"
	exportcmd "github.com/bibliobase/bibdb/cmd/bibdb/export"
	"github.com/bibliobase/bibdb/lib/version"
)

// Root builds and returns the complete bibdb CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bibdb",
		Description: `bibdb: bibliography references database.

Load cataloged .bib files into SQLite, group entries that denote the
same publication, assign stable reference ids across file changes, and
export the merged bibliography.`,
		Subcommands: []*cli.Command{
			database.BuildCommand(),
			database.StatsCommand(),
			database.ShowCommand(),
			database.EntryCommand(),
			database.TrickleCommand(),
			exportcmd.Command(),
			cicmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("bibdb %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Build the database from the catalog",
				Command:     "bibdb build --catalog bibfiles.yaml --db references.sqlite3",
			},
			{
				Description: "See how grouping keys relate to carried ids",
				Command:     "bibdb stats",
			},
			{
				Description: "Export the merged bibliography",
				Command:     "bibdb export bib --out monster.bib --sort-key bibkey",
			},
			{
				Description: "Write assigned ids back into the .bib files",
				Command:     "bibdb trickle",
			},
			{
				Description: "Validate the CI workflow manifest",
				Command:     "bibdb ci validate .github/workflows/tests.yml",
			},
		},
	}
}
