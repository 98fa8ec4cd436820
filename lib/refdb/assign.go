// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"fmt"
	"io"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// assignIDs gives every entry a stable reference id, reconciling the
// grouping keys computed by generateHashes with the ids the entries
// carried in their source files:
//
//  1. reset: id := NULL, srefid := refid
//  2. splits: a carried id spanning several grouping keys keeps the
//     most similar group, the rest lose their srefid
//  3. merges: a grouping key spanning several carried ids adopts the
//     most similar one
//  4. unchanged entries keep their carried id
//  5. entries without a carried id join an identified group when one
//     shares their grouping key
//  6. remaining groups get fresh ids above the highest carried id
//  7. verify: every entry has an id, id↔grouping key is one-to-one
func assignIDs(conn *sqlite.Conn, verbose bool, progress io.Writer, logger *slog.Logger) error {
	if err := exec(conn, "UPDATE entry SET id = NULL, srefid = refid", nil); err != nil {
		return fmt.Errorf("refdb: resetting ids: %w", err)
	}
	fmt.Fprintf(progress, "%d entries\n", conn.Changes())

	if err := resolveSplits(conn, verbose, progress); err != nil {
		return err
	}
	if err := resolveMerges(conn, verbose, progress); err != nil {
		return err
	}

	if err := exec(conn,
		"UPDATE entry SET id = srefid WHERE id IS NULL AND srefid IS NOT NULL", nil); err != nil {
		return fmt.Errorf("refdb: keeping unchanged ids: %w", err)
	}
	fmt.Fprintf(progress, "%d unchanged\n", conn.Changes())

	consistent, err := queryBool(conn, `
		SELECT NOT EXISTS (
			SELECT 1 FROM entry WHERE id IS NOT NULL
			GROUP BY hash HAVING COUNT(DISTINCT id) > 1
		)`)
	if err != nil {
		return err
	}
	if !consistent {
		return fmt.Errorf("refdb: grouping key mapped to multiple ids after merge resolution")
	}

	err = exec(conn, `
		UPDATE entry SET id = (
			SELECT DISTINCT id FROM entry AS other
			WHERE other.hash = entry.hash AND other.id IS NOT NULL
		)
		WHERE id IS NULL AND EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.hash = entry.hash AND other.id IS NOT NULL
		)`, nil)
	if err != nil {
		return fmt.Errorf("refdb: identifying entries: %w", err)
	}
	fmt.Fprintf(progress, "%d identified (new/separated)\n", conn.Changes())

	if err := assignNewIDs(conn, progress); err != nil {
		return err
	}

	if err := checkAssigned(conn); err != nil {
		return err
	}

	var supersede int64
	err = sqlitex.Execute(conn, `
		SELECT COUNT(*) FROM (
			SELECT DISTINCT srefid, id FROM entry
			WHERE srefid IS NOT NULL AND srefid != id
		)`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				supersede = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: counting supersede pairs: %w", err)
	}
	fmt.Fprintf(progress, "%d supersede pairs\n", supersede)

	logger.Info("ids assigned")
	return nil
}

// conflictRow is one entry inside a split or merge conflict group.
type conflictRow struct {
	key    int64 // the refid (splits) or srefid (merges) of the row
	hash   string
	file   string
	bibkey string
}

// resolveSplits handles carried ids whose entries now fall into more
// than one grouping key: the most similar group keeps the id (as
// srefid), every other entry has its srefid cleared so later steps
// treat it as new or separated.
func resolveSplits(conn *sqlite.Conn, verbose bool, progress io.Writer) error {
	groups, err := conflictGroups(conn, `
		SELECT entry.refid, entry.hash, file.name, entry.bibkey
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.refid = entry.refid AND other.hash != entry.hash
		)
		ORDER BY entry.refid, entry.hash, file.name, entry.bibkey`)
	if err != nil {
		return fmt.Errorf("refdb: finding splits: %w", err)
	}

	split := 0
	for _, group := range groups {
		refid := group[0].key
		oldGroups, err := mergedGroupBy(conn, "refid", refid)
		if err != nil {
			return err
		}
		old := mergedFieldMap(oldGroups)

		winner, err := closestHash(conn, old, distinctHashes(group))
		if err != nil {
			return err
		}
		if verbose {
			showConflict(progress, fmt.Sprintf("split %d", refid), group, winner)
		}

		err = exec(conn, "UPDATE entry SET srefid = NULL WHERE refid = ? AND hash != ?",
			[]any{refid, winner})
		if err != nil {
			return fmt.Errorf("refdb: resolving split %d: %w", refid, err)
		}
		split += conn.Changes()
	}
	fmt.Fprintf(progress, "%d split\n", split)

	clean, err := queryBool(conn, `
		SELECT NOT EXISTS (
			SELECT 1 FROM entry WHERE srefid IS NOT NULL
			GROUP BY srefid HAVING COUNT(DISTINCT hash) > 1
		)`)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("refdb: carried id still spans multiple grouping keys after split resolution")
	}
	return nil
}

// resolveMerges handles grouping keys whose entries carry more than
// one id: the whole group adopts the id of the most similar carried
// group. On a similarity tie the highest id wins (the query orders
// candidates descending).
func resolveMerges(conn *sqlite.Conn, verbose bool, progress io.Writer) error {
	groups, err := conflictGroupsByHash(conn, `
		SELECT entry.srefid, entry.hash, file.name, entry.bibkey
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.hash = entry.hash AND other.srefid != entry.srefid
		)
		ORDER BY entry.hash, entry.srefid DESC, file.name, entry.bibkey`)
	if err != nil {
		return fmt.Errorf("refdb: finding merges: %w", err)
	}

	merged := 0
	for _, group := range groups {
		hash := group[0].hash
		newGroups, err := mergedGroupBy(conn, "hash", hash)
		if err != nil {
			return err
		}
		newFields := mergedFieldMap(newGroups)

		winner, err := closestRefid(conn, newFields, distinctKeys(group))
		if err != nil {
			return err
		}
		if verbose {
			showConflict(progress, "merge "+hash, group, fmt.Sprintf("%d", winner))
		}

		err = exec(conn, "UPDATE entry SET id = ? WHERE hash = ?", []any{winner, hash})
		if err != nil {
			return fmt.Errorf("refdb: resolving merge %s: %w", hash, err)
		}
		merged += conn.Changes()
	}
	fmt.Fprintf(progress, "%d merged\n", merged)
	return nil
}

// assignNewIDs hands out fresh ids, above the highest id ever carried
// in the source files, to the grouping keys that remain unidentified.
// Groups are numbered in grouping-key order so rebuilds from identical
// inputs assign identical ids.
func assignNewIDs(conn *sqlite.Conn, progress io.Writer) error {
	var nextID int64
	err := sqlitex.Execute(conn,
		"SELECT COALESCE(MAX(refid), 0) + 1 FROM entry",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				nextID = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: finding highest carried id: %w", err)
	}

	var hashes []string
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT hash FROM entry WHERE id IS NULL ORDER BY hash",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				hashes = append(hashes, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: finding unidentified groups: %w", err)
	}

	assigned := 0
	for _, hash := range hashes {
		err := exec(conn, "UPDATE entry SET id = ? WHERE hash = ?", []any{nextID, hash})
		if err != nil {
			return fmt.Errorf("refdb: assigning new id %d: %w", nextID, err)
		}
		assigned += conn.Changes()
		nextID++
	}
	fmt.Fprintf(progress, "%d new ids (new/separated)\n", assigned)
	return nil
}

// closestHash returns the candidate grouping key whose merged fields
// are most similar to old. Ties keep the first candidate.
func closestHash(conn *sqlite.Conn, old map[string]string, candidates []string) (string, error) {
	winner := ""
	best := 2.0
	for _, hash := range candidates {
		groups, err := mergedGroupBy(conn, "hash", hash)
		if err != nil {
			return "", err
		}
		if d := distance(old, mergedFieldMap(groups)); d < best {
			winner, best = hash, d
		}
	}
	return winner, nil
}

// closestRefid returns the candidate carried id whose merged fields
// are most similar to newFields. Candidates are ranked by their full
// carried group, including entries a split separated from the id this
// build. Ties keep the first candidate.
func closestRefid(conn *sqlite.Conn, newFields map[string]string, candidates []int64) (int64, error) {
	var winner int64
	best := 2.0
	for _, refid := range candidates {
		groups, err := mergedGroupBy(conn, "refid", refid)
		if err != nil {
			return 0, err
		}
		if d := distance(newFields, mergedFieldMap(groups)); d < best {
			winner, best = refid, d
		}
	}
	return winner, nil
}

// conflictGroups materializes the query's rows grouped by their first
// column (an id). The query must be ordered by that column first, and
// materializing means the updates that follow never race a cursor.
func conflictGroups(conn *sqlite.Conn, query string) ([][]conflictRow, error) {
	var groups [][]conflictRow
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row := conflictRow{
				key:    stmt.ColumnInt64(0),
				hash:   stmt.ColumnText(1),
				file:   stmt.ColumnText(2),
				bibkey: stmt.ColumnText(3),
			}
			if len(groups) == 0 || groups[len(groups)-1][0].key != row.key {
				groups = append(groups, nil)
			}
			groups[len(groups)-1] = append(groups[len(groups)-1], row)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// conflictGroupsByHash is conflictGroups with the grouping key as the
// group discriminator instead of the id column.
func conflictGroupsByHash(conn *sqlite.Conn, query string) ([][]conflictRow, error) {
	var groups [][]conflictRow
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row := conflictRow{
				key:    stmt.ColumnInt64(0),
				hash:   stmt.ColumnText(1),
				file:   stmt.ColumnText(2),
				bibkey: stmt.ColumnText(3),
			}
			if len(groups) == 0 || groups[len(groups)-1][0].hash != row.hash {
				groups = append(groups, nil)
			}
			groups[len(groups)-1] = append(groups[len(groups)-1], row)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func distinctHashes(group []conflictRow) []string {
	var hashes []string
	for _, row := range group {
		if len(hashes) == 0 || hashes[len(hashes)-1] != row.hash {
			hashes = append(hashes, row.hash)
		}
	}
	return hashes
}

func distinctKeys(group []conflictRow) []int64 {
	var keys []int64
	for _, row := range group {
		if len(keys) == 0 || keys[len(keys)-1] != row.key {
			keys = append(keys, row.key)
		}
	}
	return keys
}

// showConflict prints one conflict group and the chosen resolution.
func showConflict(out io.Writer, label string, group []conflictRow, winner string) {
	fmt.Fprintf(out, "%s -> %s\n", label, winner)
	for _, row := range group {
		fmt.Fprintf(out, "\t%d\t%s\t%s\t%s\n", row.key, row.hash, row.file, row.bibkey)
	}
}

func exec(conn *sqlite.Conn, query string, args []any) error {
	return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args})
}
