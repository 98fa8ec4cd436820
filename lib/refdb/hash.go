// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"fmt"
	"io"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bibliobase/bibdb/lib/keyid"
)

// generateHashes computes the grouping key for every entry and stores
// it in entry.hash. Title-word frequencies are accumulated over the
// whole corpus first, because key generation picks each title's rarest
// word.
func generateHashes(conn *sqlite.Conn, logger *slog.Logger, progress io.Writer) error {
	frequencies := keyid.NewFrequencies()
	err := sqlitex.Execute(conn, "SELECT value FROM value WHERE field = 'title'",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				frequencies.Add(stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: collecting title words: %w", err)
	}
	fmt.Fprintf(progress, "%6d\ttitle words (from %d tokens)\n",
		frequencies.Distinct(), frequencies.Tokens())

	// One ordered scan over the value table, grouped by entry. The
	// updates are collected and applied after the scan so the cursor
	// never races its own writes.
	type entryHash struct {
		pk   int64
		hash string
	}
	var updates []entryHash

	currentPK := int64(-1)
	fields := make(map[string]string)

	flush := func() {
		if currentPK < 0 {
			return
		}
		updates = append(updates, entryHash{
			pk:   currentPK,
			hash: keyid.Key(fields, frequencies),
		})
		fields = make(map[string]string)
	}

	err = sqlitex.Execute(conn,
		"SELECT entry_pk, field, value FROM value ORDER BY entry_pk",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				pk := stmt.ColumnInt64(0)
				if pk != currentPK {
					flush()
					currentPK = pk
				}
				field := stmt.ColumnText(1)
				// The previously assigned id must never influence the
				// grouping key, or renumbering would reshuffle groups.
				if field != RefIDField {
					fields[field] = stmt.ColumnText(2)
				}
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: scanning entry fields: %w", err)
	}
	flush()

	for _, update := range updates {
		err := sqlitex.Execute(conn, "UPDATE entry SET hash = ? WHERE pk = ?",
			&sqlitex.ExecOptions{
				Args: []any{update.hash, update.pk},
			})
		if err != nil {
			return fmt.Errorf("refdb: storing hash for entry %d: %w", update.pk, err)
		}
	}

	logger.Info("grouping keys generated", "entries", len(updates))
	return hashStats(conn, progress)
}

// hashStats prints distinct/total grouping-key counts, per file and
// overall, plus the number of keys shared across files.
func hashStats(conn *sqlite.Conn, out io.Writer) error {
	err := sqlitex.Execute(conn,
		"SELECT COUNT(DISTINCT hash), COUNT(hash) FROM entry",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fmt.Fprintf(out, "%6d\tdistinct keyids (from %d total)\n",
					stmt.ColumnInt64(0), stmt.ColumnInt64(1))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: hash stats: %w", err)
	}

	err = sqlitex.Execute(conn, `
		SELECT COALESCE(u.unique_count, 0), t.name, t.distinct_count, t.total_count
		FROM (
			SELECT file.name AS name,
			       COUNT(DISTINCT entry.hash) AS distinct_count,
			       COUNT(entry.hash) AS total_count
			FROM entry JOIN file ON file.pk = entry.file_pk
			GROUP BY entry.file_pk
		) AS t
		LEFT JOIN (
			SELECT file.name AS name,
			       COUNT(DISTINCT entry.hash) AS unique_count
			FROM entry JOIN file ON file.pk = entry.file_pk
			WHERE NOT EXISTS (
				SELECT 1 FROM entry AS other
				WHERE other.hash = entry.hash AND other.file_pk != entry.file_pk
			)
			GROUP BY entry.file_pk
		) AS u ON u.name = t.name
		ORDER BY t.name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fmt.Fprintf(out, "%6d\t%s (from %d distinct of %d total)\n",
					stmt.ColumnInt64(0), stmt.ColumnText(1),
					stmt.ColumnInt64(2), stmt.ColumnInt64(3))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: hash stats: %w", err)
	}

	err = sqlitex.Execute(conn, `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM entry
			GROUP BY hash
			HAVING COUNT(DISTINCT file_pk) > 1
		)`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fmt.Fprintf(out, "%6d\tin multiple files\n", stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: hash stats: %w", err)
	}
	return nil
}
