// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/refdb"
)

// ShowCommand returns the "show" command group: reports over the
// grouping outcome.
func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:    "show",
		Summary: "Show split, merge, and identification groups",
		Description: `Show the groups where the current grouping disagrees with the ids
carried in the source files, or where entries were matched without
any carried id.`,
		Subcommands: []*cli.Command{
			showCommand("splits", "Carried ids that now span several groups",
				func(ctx context.Context, db *refdb.Database, out io.Writer) error {
					return db.ShowSplits(ctx, out)
				}),
			showCommand("merges", "Groups that collect several carried ids",
				func(ctx context.Context, db *refdb.Database, out io.Writer) error {
					return db.ShowMerges(ctx, out)
				}),
			showCommand("identified", "Uncarried entries matched to carried ones",
				func(ctx context.Context, db *refdb.Database, out io.Writer) error {
					return db.ShowIdentified(ctx, out)
				}),
			showCommand("combined", "Groups matched purely by grouping key",
				func(ctx context.Context, db *refdb.Database, out io.Writer) error {
					return db.ShowCombined(ctx, out)
				}),
			showCommand("new", "Groups that got a fresh id",
				func(ctx context.Context, db *refdb.Database, out io.Writer) error {
					return db.ShowNew(ctx, out)
				}),
		},
		Examples: []cli.Example{
			{
				Description: "List the groups that were merged under one id",
				Command:     "bibdb show merges --db references.sqlite3",
			},
		},
	}
}

func showCommand(name, summary string, report func(context.Context, *refdb.Database, io.Writer) error) *cli.Command {
	params := &struct {
		Database string `flag:"db" desc:"SQLite database file" default:"references.sqlite3"`
	}{}

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   "bibdb show " + name + " [flags]",
		Params:  func() any { return params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return report(ctx, db, os.Stdout)
		},
	}
}
