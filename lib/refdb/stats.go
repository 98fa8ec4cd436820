// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Stats writes entry, field, and grouping statistics to out. With
// fieldFiles, the field table also lists which files use each field.
func (d *Database) Stats(ctx context.Context, fieldFiles bool, out io.Writer) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: stats: %w", err)
	}
	defer d.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		SELECT file.name, COUNT(*) FROM entry
		JOIN file ON file.pk = entry.file_pk
		GROUP BY entry.file_pk ORDER BY file.name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fmt.Fprintf(out, "%6d\t%s\n", stmt.ColumnInt64(1), stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: stats: %w", err)
	}
	err = sqlitex.Execute(conn, "SELECT COUNT(*) FROM entry", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			fmt.Fprintf(out, "%6d\tentries total\n\n", stmt.ColumnInt64(0))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("refdb: stats: %w", err)
	}

	if err := fieldStats(conn, fieldFiles, out); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := hashStats(conn, out); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return hashIDStats(conn, out)
}

// fieldStats prints per-field value counts, most frequent first.
func fieldStats(conn *sqlite.Conn, withFiles bool, out io.Writer) error {
	query := `
		SELECT value.field, COUNT(*) AS n
		FROM value GROUP BY value.field ORDER BY n DESC, value.field`
	if withFiles {
		query = `
			SELECT value.field, COUNT(*) AS n,
			       REPLACE(GROUP_CONCAT(DISTINCT file.name), ',', ', ')
			FROM value
			JOIN entry ON entry.pk = value.entry_pk
			JOIN file  ON file.pk = entry.file_pk
			GROUP BY value.field ORDER BY n DESC, value.field`
	}

	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if withFiles {
				fmt.Fprintf(out, "%6d\t%s\t%s\n",
					stmt.ColumnInt64(1), stmt.ColumnText(0), stmt.ColumnText(2))
			} else {
				fmt.Fprintf(out, "%6d\t%s\n", stmt.ColumnInt64(1), stmt.ColumnText(0))
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("refdb: field stats: %w", err)
	}
	return nil
}

// hashIDStats prints the two histograms relating grouping keys to the
// ids carried in the source files: how many carried ids span several
// grouping keys (split pressure), and how many grouping keys collect
// several carried ids (merge pressure).
func hashIDStats(conn *sqlite.Conn, out io.Writer) error {
	err := sqlitex.Execute(conn, `
		SELECT hash_count, COUNT(*) FROM (
			SELECT COUNT(DISTINCT hash) AS hash_count
			FROM entry WHERE refid IS NOT NULL GROUP BY refid
		) GROUP BY hash_count ORDER BY hash_count`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fmt.Fprintf(out, "%6d\t%s with %d keyids\n",
					stmt.ColumnInt64(1), RefIDField, stmt.ColumnInt64(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: hash/id stats: %w", err)
	}

	err = sqlitex.Execute(conn, `
		SELECT refid_count, COUNT(*) FROM (
			SELECT COUNT(DISTINCT refid) AS refid_count
			FROM entry WHERE refid IS NOT NULL GROUP BY hash
		) GROUP BY refid_count ORDER BY refid_count`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fmt.Fprintf(out, "%6d\tkeyids with %d %ss\n",
					stmt.ColumnInt64(1), stmt.ColumnInt64(0), RefIDField)
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: hash/id stats: %w", err)
	}
	return nil
}

// ShowSplits writes the groups where a carried id spans several
// grouping keys: the entries once filed together that the current
// grouping separates, with a trailing line naming the grouping key
// that keeps the id.
func (d *Database) ShowSplits(ctx context.Context, out io.Writer) error {
	return d.showGroups(ctx, out, `
		SELECT entry.refid, entry.hash, file.name, entry.bibkey, entry.pk
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.refid = entry.refid AND other.hash != entry.hash
		)
		ORDER BY entry.refid, entry.hash, file.name, entry.bibkey`,
		splitResolution)
}

// ShowMerges writes the groups where one grouping key collects
// entries that carried different ids, with a trailing line naming the
// id the group adopts.
func (d *Database) ShowMerges(ctx context.Context, out io.Writer) error {
	return d.showGroups(ctx, out, `
		SELECT entry.hash, entry.refid, file.name, entry.bibkey, entry.pk
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.hash = entry.hash AND other.refid != entry.refid
		)
		ORDER BY entry.hash, entry.refid DESC, file.name, entry.bibkey`,
		mergeResolution)
}

// ShowIdentified writes the groups where entries without a carried id
// were matched to entries that have one.
func (d *Database) ShowIdentified(ctx context.Context, out io.Writer) error {
	return d.showGroups(ctx, out, `
		SELECT entry.hash, entry.refid, file.name, entry.bibkey, entry.pk
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.hash = entry.hash
			  AND (other.refid IS NULL) != (entry.refid IS NULL)
		)
		ORDER BY entry.hash, entry.refid IS NULL, entry.refid, file.name, entry.bibkey`,
		nil)
}

// ShowCombined writes the groups of two or more entries none of which
// carried an id: matches found purely by grouping key.
func (d *Database) ShowCombined(ctx context.Context, out io.Writer) error {
	return d.showGroups(ctx, out, `
		SELECT entry.hash, entry.refid, file.name, entry.bibkey, entry.pk
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE entry.refid IS NULL
		  AND EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.hash = entry.hash AND other.pk != entry.pk
			  AND other.refid IS NULL
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM entry AS other
			WHERE other.hash = entry.hash AND other.refid IS NOT NULL
		  )
		ORDER BY entry.hash, file.name, entry.bibkey`,
		nil)
}

// ShowNew writes the groups whose assigned id is fresh: no source
// entry ever carried it.
func (d *Database) ShowNew(ctx context.Context, out io.Writer) error {
	return d.showGroups(ctx, out, `
		SELECT entry.id, entry.hash, file.name, entry.bibkey, entry.pk
		FROM entry JOIN file ON file.pk = entry.file_pk
		WHERE NOT EXISTS (
			SELECT 1 FROM entry AS other WHERE other.refid = entry.id
		)
		ORDER BY entry.id, file.name, entry.bibkey`,
		nil)
}

// reportRow is one entry inside an inspection-report group. key and
// detail hold the first two query columns in both text and integer
// form; which form is meaningful depends on the report.
type reportRow struct {
	key      string
	keyID    int64
	detail   string
	detailID int64
	file     string
	bibkey   string
	pk       int64
}

// splitResolution names the grouping key that keeps a split group's
// carried id, by the same similarity choice the build makes.
func splitResolution(conn *sqlite.Conn, group []reportRow) (string, error) {
	oldGroups, err := mergedGroupBy(conn, "refid", group[0].keyID)
	if err != nil {
		return "", err
	}
	var hashes []string
	for _, row := range group {
		if len(hashes) == 0 || hashes[len(hashes)-1] != row.detail {
			hashes = append(hashes, row.detail)
		}
	}
	return closestHash(conn, mergedFieldMap(oldGroups), hashes)
}

// mergeResolution names the carried id a merge group adopts, by the
// same similarity choice the build makes.
func mergeResolution(conn *sqlite.Conn, group []reportRow) (string, error) {
	newGroups, err := mergedGroupBy(conn, "hash", group[0].key)
	if err != nil {
		return "", err
	}
	var refids []int64
	for _, row := range group {
		if len(refids) == 0 || refids[len(refids)-1] != row.detailID {
			refids = append(refids, row.detailID)
		}
	}
	winner, err := closestRefid(conn, mergedFieldMap(newGroups), refids)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(winner, 10), nil
}

// showGroups prints the query's rows grouped by their first column:
// one header line per group, one indented line per member carrying
// the entry's creator, year, and title values. The query must select
// five columns (key, detail, filename, bibkey, entry.pk) ordered by
// the first. With a resolver, each group gets a trailing "-> winner"
// line. Rows are materialized before the resolver runs its own
// queries on the connection.
func (d *Database) showGroups(ctx context.Context, out io.Writer, query string,
	resolve func(*sqlite.Conn, []reportRow) (string, error)) error {

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: show: %w", err)
	}
	defer d.pool.Put(conn)

	var groups [][]reportRow
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row := reportRow{
				key:      stmt.ColumnText(0),
				keyID:    stmt.ColumnInt64(0),
				detail:   stmt.ColumnText(1),
				detailID: stmt.ColumnInt64(1),
				file:     stmt.ColumnText(2),
				bibkey:   stmt.ColumnText(3),
				pk:       stmt.ColumnInt64(4),
			}
			if stmt.ColumnType(1) == sqlite.TypeNull {
				row.detail = "-"
			}
			if len(groups) == 0 || groups[len(groups)-1][0].key != row.key {
				groups = append(groups, nil)
			}
			groups[len(groups)-1] = append(groups[len(groups)-1], row)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("refdb: show: %w", err)
	}

	for _, group := range groups {
		fmt.Fprintf(out, "%s\n", group[0].key)
		for _, row := range group {
			fields, err := entryKeyFields(conn, row.pk)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\t%s\t%s\t%s\t%s\n",
				row.detail, row.file, row.bibkey, fields)
		}
		if resolve != nil {
			winner, err := resolve(conn, group)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\t-> %s\n", winner)
		}
	}
	fmt.Fprintf(out, "%d groups\n", len(groups))
	return nil
}

// entryKeyFields returns the entry's creator, year, and title values
// tab-separated, for the inspection-report member lines.
func entryKeyFields(conn *sqlite.Conn, pk int64) (string, error) {
	fields := make(map[string]string)
	err := sqlitex.Execute(conn, `
		SELECT field, value FROM value
		WHERE entry_pk = ? AND field IN ('author', 'editor', 'year', 'title')`,
		&sqlitex.ExecOptions{
			Args: []any{pk},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				fields[stmt.ColumnText(0)] = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("refdb: show: key fields for entry %d: %w", pk, err)
	}
	creator := fields["author"]
	if creator == "" {
		creator = fields["editor"]
	}
	return fmt.Sprintf("%s\t%s\t%s", creator, fields["year"], fields["title"]), nil
}
