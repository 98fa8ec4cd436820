// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"context"
	"fmt"
	"io"
	"sort"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bibliobase/bibdb/lib/bibfiles"
)

// fileState is the identity of a .bib file for up-to-date checks.
type fileState struct {
	size  int64
	mtime int64
}

// IsUpToDate reports whether the database was built from exactly the
// catalog's current files: same names, sizes, and mtimes. When report
// is non-nil, the differences are written to it (files missing from
// the database, files missing on disk, files that changed).
func (d *Database) IsUpToDate(ctx context.Context, catalog *bibfiles.Catalog, report io.Writer) (bool, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("refdb: up-to-date check: %w", err)
	}
	defer d.pool.Put(conn)

	return upToDate(conn, catalog, report)
}

func upToDate(conn *sqlite.Conn, catalog *bibfiles.Catalog, report io.Writer) (bool, error) {
	onDisk := make(map[string]fileState, len(catalog.Files))
	for _, file := range catalog.Files {
		onDisk[file.Name] = fileState{size: file.Size, mtime: file.ModTime.Unix()}
	}

	inDB := make(map[string]fileState)
	err := sqlitex.Execute(conn, "SELECT name, size, mtime FROM file ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				inDB[stmt.ColumnText(0)] = fileState{
					size:  stmt.ColumnInt64(1),
					mtime: stmt.ColumnInt64(2),
				}
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("refdb: up-to-date check: %w", err)
	}

	if statesEqual(onDisk, inDB) {
		return true, nil
	}

	if report != nil {
		missingInDB := missingKeys(onDisk, inDB)
		missingOnDisk := missingKeys(inDB, onDisk)
		var differing []string
		for name, disk := range onDisk {
			if db, ok := inDB[name]; ok && db != disk {
				differing = append(differing, name)
			}
		}
		sort.Strings(differing)

		fmt.Fprintf(report, "missing in db: %v\n", missingInDB)
		fmt.Fprintf(report, "missing on disk: %v\n", missingOnDisk)
		fmt.Fprintf(report, "differing in size/mtime: %v\n", differing)
	}
	return false, nil
}

func statesEqual(left, right map[string]fileState) bool {
	if len(left) != len(right) {
		return false
	}
	for name, state := range left {
		if other, ok := right[name]; !ok || other != state {
			return false
		}
	}
	return true
}

func missingKeys(in, notIn map[string]fileState) []string {
	var missing []string
	for name := range in {
		if _, ok := notIn[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
