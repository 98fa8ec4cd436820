// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
)

// statsParams holds the parameters for the stats command.
type statsParams struct {
	Database   string `flag:"db"          desc:"SQLite database file" default:"references.sqlite3"`
	FieldFiles bool   `flag:"field-files" desc:"list which files use each field"`
}

// StatsCommand returns the "stats" command.
func StatsCommand() *cli.Command {
	var params statsParams

	return &cli.Command{
		Name:    "stats",
		Summary: "Print entry, field, and grouping statistics",
		Description: `Print statistics over the built database: entry counts per file,
field usage, grouping-key counts, and the split/merge histograms
relating grouping keys to the ids carried in the source files.`,
		Usage:  "bibdb stats [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Stats(ctx, params.FieldFiles, os.Stdout)
		},
	}
}
