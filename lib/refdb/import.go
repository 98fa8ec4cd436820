// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"fmt"
	"log/slog"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bibliobase/bibdb/lib/bibfiles"
	"github.com/bibliobase/bibdb/lib/bibtex"
)

// importCatalog parses every cataloged .bib file and inserts its
// entries and field values. Runs inside the bulk-load connection, so
// no explicit transaction is needed — journal_mode=MEMORY already
// batches the writes, and a failed import discards the whole file.
func importCatalog(conn *sqlite.Conn, catalog *bibfiles.Catalog, logger *slog.Logger) error {
	logger.Info("importing catalog", "files", len(catalog.Files))

	for _, file := range catalog.Files {
		entries, err := file.Entries()
		if err != nil {
			return fmt.Errorf("refdb: importing %s: %w", file.Name, err)
		}

		err = sqlitex.Execute(conn,
			"INSERT INTO file (name, size, mtime, priority) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{file.Name, file.Size, file.ModTime.Unix(), file.Priority},
			})
		if err != nil {
			return fmt.Errorf("refdb: inserting file %s: %w", file.Name, err)
		}
		filePK := conn.LastInsertRowID()

		for i := range entries {
			if err := importEntry(conn, filePK, &entries[i]); err != nil {
				return fmt.Errorf("refdb: importing %s/%s: %w", file.Name, entries[i].Key, err)
			}
		}

		logger.Info("file imported", "file", file.Name, "entries", len(entries))
	}
	return nil
}

func importEntry(conn *sqlite.Conn, filePK int64, entry *bibtex.Entry) error {
	err := sqlitex.Execute(conn,
		"INSERT INTO entry (file_pk, bibkey, refid) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{filePK, entry.Key, parseRefID(entry.Fields)},
		})
	if err != nil {
		return err
	}
	entryPK := conn.LastInsertRowID()

	insertValue := func(field, value string) error {
		return sqlitex.Execute(conn,
			"INSERT INTO value (entry_pk, field, value) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{entryPK, field, value},
			})
	}

	if err := insertValue(entryTypeField, entry.Type); err != nil {
		return err
	}
	for _, field := range entry.Fields {
		if field.Name == entryTypeField {
			// A curated field squatting on the reserved name would
			// collide with the type row; first insert wins.
			continue
		}
		if err := insertValue(field.Name, field.Value); err != nil {
			return err
		}
	}
	return nil
}

// parseRefID extracts the previously assigned reference id, or nil
// when the entry has none (or carries a malformed one, which is
// treated as absent rather than failing the whole import).
func parseRefID(fields bibtex.Fields) any {
	raw, ok := fields.Get(RefIDField)
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return id
}

// entryStats logs per-file and total entry counts after import.
func entryStats(conn *sqlite.Conn, logger *slog.Logger) error {
	err := sqlitex.Execute(conn, `
		SELECT file.name, COUNT(*) FROM entry
		JOIN file ON file.pk = entry.file_pk
		GROUP BY entry.file_pk ORDER BY file.name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				logger.Info("entries",
					"file", stmt.ColumnText(0),
					"count", stmt.ColumnInt64(1),
				)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: entry stats: %w", err)
	}

	var total int64
	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM entry", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			total = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("refdb: entry stats: %w", err)
	}
	logger.Info("entries total", "count", total)
	return nil
}
