// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bibliobase/bibdb/lib/bibtex"
)

// EntryRecord is one source entry as stored, with its grouping state.
type EntryRecord struct {
	File   string
	Bibkey string
	RefID  int64 // carried id from the source file, 0 when absent
	Hash   string
	ID     int64 // assigned id, 0 before assignment
	Type   string
	Fields bibtex.Fields
}

// EntryByKey looks up a single source entry by file name and citation
// key.
func (d *Database) EntryByKey(ctx context.Context, filename, bibkey string) (*EntryRecord, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("refdb: entry lookup: %w", err)
	}
	defer d.pool.Put(conn)

	record := &EntryRecord{File: filename, Bibkey: bibkey}
	var entryPK int64
	found := false
	err = sqlitex.Execute(conn, `
		SELECT entry.pk, entry.refid, entry.hash, entry.id
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE file.name = ? AND entry.bibkey = ?`,
		&sqlitex.ExecOptions{
			Args: []any{filename, bibkey},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				entryPK = stmt.ColumnInt64(0)
				record.RefID = stmt.ColumnInt64(1)
				record.Hash = stmt.ColumnText(2)
				record.ID = stmt.ColumnInt64(3)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("refdb: entry lookup: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("refdb: no entry %s in %s", bibkey, filename)
	}

	err = sqlitex.Execute(conn,
		"SELECT field, value FROM value WHERE entry_pk = ? ORDER BY field",
		&sqlitex.ExecOptions{
			Args: []any{entryPK},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				field, value := stmt.ColumnText(0), stmt.ColumnText(1)
				if field == entryTypeField {
					record.Type = value
					return nil
				}
				record.Fields = append(record.Fields, bibtex.Field{Name: field, Value: value})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("refdb: entry lookup: %w", err)
	}
	return record, nil
}

// MergedByRefID returns the merged entry for the group that carried
// the given id in its source files.
func (d *Database) MergedByRefID(ctx context.Context, refid int64) (MergedEntry, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return MergedEntry{}, fmt.Errorf("refdb: merged lookup: %w", err)
	}
	defer d.pool.Put(conn)

	groups, err := mergedGroupBy(conn, "refid", refid)
	if err != nil {
		return MergedEntry{}, err
	}
	return mergedEntry(groups, refid)
}

// MergedByHash returns the merged entry for the group with the given
// grouping key, under its assigned id.
func (d *Database) MergedByHash(ctx context.Context, hash string) (MergedEntry, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return MergedEntry{}, fmt.Errorf("refdb: merged lookup: %w", err)
	}
	defer d.pool.Put(conn)

	var id int64
	found := false
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT id FROM entry WHERE hash = ?",
		&sqlitex.ExecOptions{
			Args: []any{hash},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				id = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return MergedEntry{}, fmt.Errorf("refdb: merged lookup: %w", err)
	}
	if !found {
		return MergedEntry{}, fmt.Errorf("refdb: no entries with grouping key %q", hash)
	}

	groups, err := mergedGroupBy(conn, "hash", hash)
	if err != nil {
		return MergedEntry{}, err
	}
	return mergedEntry(groups, id)
}
