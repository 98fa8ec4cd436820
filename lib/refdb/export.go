// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bibliobase/bibdb/lib/bibfiles"
	"github.com/bibliobase/bibdb/lib/bibtex"
)

// WriteBibfile writes the merged view of the whole database as a
// single .bib file: one entry per assigned id, keyed by its grouping
// key. sortKey names a field to sort by; empty keeps id order.
func (d *Database) WriteBibfile(ctx context.Context, path, sortKey string) error {
	var entries []bibtex.Entry
	err := d.EachMerged(ctx, func(id int64, hash string, merged MergedEntry) error {
		entries = append(entries, bibtex.Entry{
			Key:    hash,
			Type:   merged.Type,
			Fields: merged.Fields,
		})
		return nil
	})
	if err != nil {
		return err
	}
	if sortKey != "" {
		bibtex.SortByField(entries, sortKey)
	}

	if err := bibtex.WriteFile(path, entries); err != nil {
		return err
	}
	d.logger.Info("merged bibfile written", "path", path, "entries", len(entries))
	return nil
}

// WriteCSV writes one row per entry (filename, bibkey, hash, id),
// ordered case-insensitively by filename then bibkey. This is the
// compact form of the full grouping, suitable for diffing two builds.
func (d *Database) WriteCSV(ctx context.Context, w io.Writer) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: csv export: %w", err)
	}
	defer d.pool.Put(conn)

	if err := checkAssigned(conn); err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{"filename", "bibkey", "hash", "id"}); err != nil {
		return fmt.Errorf("refdb: csv export: %w", err)
	}

	err = sqlitex.Execute(conn, `
		SELECT file.name, entry.bibkey, entry.hash, entry.id
		FROM entry JOIN file ON file.pk = entry.file_pk
		ORDER BY LOWER(file.name), LOWER(entry.bibkey), entry.hash, entry.id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				return out.Write([]string{
					stmt.ColumnText(0),
					stmt.ColumnText(1),
					stmt.ColumnText(2),
					strconv.FormatInt(stmt.ColumnInt64(3), 10),
				})
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: csv export: %w", err)
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return fmt.Errorf("refdb: csv export: %w", err)
	}
	return nil
}

// Replacement records that the id an entry carried in its source file
// was superseded by the assigned one.
type Replacement struct {
	ID          int64 `json:"id"`
	Replacement int64 `json:"replacement"`
}

// WriteReplacements appends the current build's supersede pairs to the
// JSON array at path (created when missing), so the file accumulates
// the id history across builds.
func (d *Database) WriteReplacements(ctx context.Context, path string) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: replacements export: %w", err)
	}
	defer d.pool.Put(conn)

	if err := checkAssigned(conn); err != nil {
		return err
	}

	var replacements []Replacement
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &replacements); err != nil {
			return fmt.Errorf("refdb: reading existing replacements: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("refdb: reading existing replacements: %w", err)
	}

	added := 0
	err = sqlitex.Execute(conn, `
		SELECT DISTINCT refid, id FROM entry
		WHERE refid IS NOT NULL AND refid != id
		ORDER BY id, refid`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				replacements = append(replacements, Replacement{
					ID:          stmt.ColumnInt64(0),
					Replacement: stmt.ColumnInt64(1),
				})
				added++
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: replacements export: %w", err)
	}

	sort.Slice(replacements, func(i, j int) bool {
		if replacements[i].Replacement != replacements[j].Replacement {
			return replacements[i].Replacement < replacements[j].Replacement
		}
		return replacements[i].ID < replacements[j].ID
	})

	raw, err := json.MarshalIndent(replacements, "", "  ")
	if err != nil {
		return fmt.Errorf("refdb: replacements export: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("refdb: replacements export: %w", err)
	}
	d.logger.Info("replacements written", "path", path, "added", added)
	return nil
}

// Trickle writes the assigned ids back into the cataloged .bib files:
// every entry whose carried id differs from its assigned one gets the
// id field set (or added), and the file is rewritten in canonical
// form. Refuses to run when the database no longer matches the files
// on disk, since that would write stale ids.
func (d *Database) Trickle(ctx context.Context, catalog *bibfiles.Catalog, progress io.Writer) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: trickle: %w", err)
	}
	defer d.pool.Put(conn)

	if err := checkAssigned(conn); err != nil {
		return err
	}
	upToDate, err := upToDate(conn, catalog, progress)
	if err != nil {
		return err
	}
	if !upToDate {
		return fmt.Errorf("refdb: database out of date with catalog, rebuild before trickling")
	}

	for _, file := range catalog.Files {
		// Assigned ids for this file's entries, keyed by bibkey.
		ids := make(map[string]int64)
		err := sqlitex.Execute(conn, `
			SELECT entry.bibkey, entry.id
			FROM entry JOIN file ON file.pk = entry.file_pk
			WHERE file.name = ?`,
			&sqlitex.ExecOptions{
				Args: []any{file.Name},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					ids[stmt.ColumnText(0)] = stmt.ColumnInt64(1)
					return nil
				},
			})
		if err != nil {
			return fmt.Errorf("refdb: trickle %s: %w", file.Name, err)
		}

		entries, err := file.Entries()
		if err != nil {
			return fmt.Errorf("refdb: trickle %s: %w", file.Name, err)
		}

		changed, added := 0, 0
		for i := range entries {
			id, ok := ids[entries[i].Key]
			if !ok {
				return fmt.Errorf("refdb: trickle %s: entry %s not in database", file.Name, entries[i].Key)
			}
			value := strconv.FormatInt(id, 10)
			if current, ok := entries[i].Fields.Get(RefIDField); ok {
				if current != value {
					entries[i].Fields.Set(RefIDField, value)
					changed++
				}
			} else {
				entries[i].Fields.Set(RefIDField, value)
				added++
			}
		}

		if changed == 0 && added == 0 {
			continue
		}
		if err := file.Save(entries); err != nil {
			return fmt.Errorf("refdb: trickle %s: %w", file.Name, err)
		}
		fmt.Fprintf(progress, "%d changed %d added in %s\n", changed, added, file.ID())
	}
	return nil
}
