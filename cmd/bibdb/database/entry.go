// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/bibtex"
	"github.com/bibliobase/bibdb/lib/refdb"
)

// entryParams holds the parameters for the entry command.
type entryParams struct {
	cli.JSONOutput
	Database string `flag:"db"    desc:"SQLite database file" default:"references.sqlite3"`
	RefID    int64  `flag:"refid" desc:"look up the merged entry for a carried id"`
	Hash     string `flag:"hash"  desc:"look up the merged entry for a grouping key"`
}

// entryResult is the JSON output for a single source entry.
type entryResult struct {
	File   string            `json:"file"`
	Bibkey string            `json:"bibkey"`
	RefID  int64             `json:"refid,omitempty"`
	Hash   string            `json:"hash"`
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

// EntryCommand returns the "entry" command.
func EntryCommand() *cli.Command {
	var params entryParams

	return &cli.Command{
		Name:    "entry",
		Summary: "Look up a source entry or a merged group",
		Description: `Look up one entry. With a file name and citation key, prints the
stored source entry. With --refid or --hash, prints the merged entry
for the whole group.`,
		Usage: "bibdb entry (<filename> <bibkey> | --refid <id> | --hash <key>) [flags]",
		Examples: []cli.Example{
			{
				Description: "Show a source entry as stored",
				Command:     "bibdb entry hh.bib abadi:1974",
			},
			{
				Description: "Show the merged entry for a carried id",
				Command:     "bibdb entry --refid 12345",
			},
			{
				Description: "Show the merged entry for a grouping key",
				Command:     "bibdb entry --hash smith:2000:warlpiri",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			db, err := openDatabase(params.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			switch {
			case params.RefID != 0:
				merged, err := db.MergedByRefID(ctx, params.RefID)
				if err != nil {
					return err
				}
				return printMerged(&params, merged)
			case params.Hash != "":
				merged, err := db.MergedByHash(ctx, params.Hash)
				if err != nil {
					return err
				}
				return printMerged(&params, merged)
			case len(args) == 2:
				record, err := db.EntryByKey(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printRecord(&params, record)
			}
			return fmt.Errorf("expected <filename> <bibkey>, --refid, or --hash\n\nUsage: bibdb entry (<filename> <bibkey> | --refid <id> | --hash <key>) [flags]")
		},
	}
}

func printRecord(params *entryParams, record *refdb.EntryRecord) error {
	result := entryResult{
		File:   record.File,
		Bibkey: record.Bibkey,
		RefID:  record.RefID,
		Hash:   record.Hash,
		ID:     record.ID,
		Type:   record.Type,
		Fields: record.Fields.Map(),
	}
	if done, err := params.EmitJSON(result); done {
		return err
	}

	fmt.Printf("%% %s / %s -> %s (id %d)\n", record.File, record.Bibkey, record.Hash, record.ID)
	return bibtex.Write(os.Stdout, []bibtex.Entry{{
		Key:    record.Bibkey,
		Type:   record.Type,
		Fields: record.Fields,
	}})
}

func printMerged(params *entryParams, merged refdb.MergedEntry) error {
	if done, err := params.EmitJSON(struct {
		Type   string            `json:"type"`
		Fields map[string]string `json:"fields"`
	}{merged.Type, merged.Fields.Map()}); done {
		return err
	}

	id, _ := merged.Fields.Get(refdb.RefIDField)
	return bibtex.Write(os.Stdout, []bibtex.Entry{{
		Key:    "v" + id,
		Type:   merged.Type,
		Fields: merged.Fields,
	}})
}
