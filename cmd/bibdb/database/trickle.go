// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/bibfiles"
)

// trickleParams holds the parameters for the trickle command.
type trickleParams struct {
	Catalog  string `flag:"catalog" desc:"catalog YAML listing the .bib files" default:"bibfiles.yaml"`
	Database string `flag:"db"      desc:"SQLite database file"                default:"references.sqlite3"`
}

// TrickleCommand returns the "trickle" command.
func TrickleCommand() *cli.Command {
	var params trickleParams

	return &cli.Command{
		Name:    "trickle",
		Summary: "Write assigned ids back into the .bib files",
		Description: `Write the assigned reference ids back into the cataloged .bib
files. Entries whose carried id differs from the assigned one are
updated; entries without one get the field added. Files already
carrying the right ids are left untouched.

Refuses to run when the database no longer matches the files on disk:
rebuild first, otherwise stale ids would be written.`,
		Usage: "bibdb trickle [flags]",
		Examples: []cli.Example{
			{
				Description: "Trickle ids after a build",
				Command:     "bibdb trickle --catalog bibfiles.yaml --db references.sqlite3",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			catalog, err := bibfiles.Load(params.Catalog)
			if err != nil {
				return err
			}
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Trickle(ctx, catalog, os.Stdout)
		},
	}
}
