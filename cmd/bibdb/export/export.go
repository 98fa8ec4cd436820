// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package export implements the commands that write the merged view
// of the database to external formats.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/refdb"
)

// Command returns the "export" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "export",
		Summary: "Export the merged database",
		Description: `Export the merged view of the database: one entry per assigned
reference id, with field conflicts resolved by file priority.`,
		Subcommands: []*cli.Command{
			bibCommand(),
			csvCommand(),
			replacementsCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Write the merged .bib file sorted by citation key",
				Command:     "bibdb export bib --out monster.bib --sort-key bibkey",
			},
			{
				Description: "Write the per-entry grouping as CSV",
				Command:     "bibdb export csv --out monster.csv",
			},
		},
	}
}

// bibParams holds the parameters for export bib.
type bibParams struct {
	Database string `flag:"db"       desc:"SQLite database file" default:"references.sqlite3"`
	Out      string `flag:"out"      desc:"output .bib file (required)"`
	SortKey  string `flag:"sort-key" desc:"field to sort entries by (default: id order)"`
}

func bibCommand() *cli.Command {
	var params bibParams

	return &cli.Command{
		Name:    "bib",
		Summary: "Write the merged entries as a single .bib file",
		Usage:   "bibdb export bib --out <file> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Out == "" {
				return fmt.Errorf("--out is required")
			}
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.WriteBibfile(ctx, params.Out, params.SortKey)
		},
	}
}

// csvParams holds the parameters for export csv.
type csvParams struct {
	Database string `flag:"db"  desc:"SQLite database file" default:"references.sqlite3"`
	Out      string `flag:"out" desc:"output CSV file (default: stdout)"`
}

func csvCommand() *cli.Command {
	var params csvParams

	return &cli.Command{
		Name:    "csv",
		Summary: "Write one row per entry: filename, bibkey, hash, id",
		Usage:   "bibdb export csv [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if params.Out == "" {
				return db.WriteCSV(ctx, os.Stdout)
			}
			out, err := os.Create(params.Out)
			if err != nil {
				return err
			}
			if err := db.WriteCSV(ctx, out); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
}

// replacementsParams holds the parameters for export replacements.
type replacementsParams struct {
	Database string `flag:"db"  desc:"SQLite database file" default:"references.sqlite3"`
	Out      string `flag:"out" desc:"replacements JSON file (appended to; required)"`
}

func replacementsCommand() *cli.Command {
	var params replacementsParams

	return &cli.Command{
		Name:    "replacements",
		Summary: "Append superseded id pairs to a JSON history file",
		Description: `Append the current build's superseded id pairs (carried id differs
from assigned id) to a JSON array file, so the id history accumulates
across builds. The file is created when missing.`,
		Usage:  "bibdb export replacements --out <file> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Out == "" {
				return fmt.Errorf("--out is required")
			}
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.WriteReplacements(ctx, params.Out)
		},
	}
}

// openDatabase opens an existing database file, with a build hint when
// it is missing.
func openDatabase(path string, logger *slog.Logger) (*refdb.Database, error) {
	db, err := refdb.Open(path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s (run 'bibdb build' first if it does not exist): %w", path, err)
	}
	return db, nil
}
