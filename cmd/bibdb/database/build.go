// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/bibfiles"
	"github.com/bibliobase/bibdb/lib/refdb"
)

// buildParams holds the parameters for the build command.
type buildParams struct {
	Catalog  string `flag:"catalog" desc:"catalog YAML listing the .bib files" default:"bibfiles.yaml"`
	Database string `flag:"db"      desc:"SQLite database file"                default:"references.sqlite3"`
	Rebuild  bool   `flag:"rebuild" desc:"rebuild even when the database matches the files"`
	Verbose  bool   `flag:"verbose,v" desc:"print every split and merge group during id assignment"`
}

// BuildCommand returns the "build" command.
func BuildCommand() *cli.Command {
	var params buildParams

	return &cli.Command{
		Name:    "build",
		Summary: "Build the references database from the catalog",
		Description: `Build the references database: parse every cataloged .bib file,
compute grouping keys, and assign stable reference ids.

When the database file already exists and the cataloged files have not
changed (same names, sizes, and mtimes), the existing database is
reused and nothing is parsed. --rebuild forces a full rebuild.`,
		Usage: "bibdb build [flags]",
		Examples: []cli.Example{
			{
				Description: "Build (or reuse) the database",
				Command:     "bibdb build --catalog bibfiles.yaml --db references.sqlite3",
			},
			{
				Description: "Force a rebuild and show conflict resolution",
				Command:     "bibdb build --rebuild --verbose",
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
			db, err := refdb.Build(ctx, refdb.BuildConfig{
				Catalog:  catalog,
				Path:     params.Database,
				Rebuild:  params.Rebuild,
				Verbose:  params.Verbose,
				Progress: os.Stdout,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

// openDatabase opens an existing database file, with a build hint when
// it is missing.
func openDatabase(path string, logger *slog.Logger) (*refdb.Database, error) {
	db, err := refdb.Open(path, logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database %s does not exist (run 'bibdb build' first)", path)
		}
		return nil, err
	}
	return db, nil
}
