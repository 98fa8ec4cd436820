// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bibliobase/bibdb/lib/bibtex"
)

// MergedEntry is one publication assembled from all entries in its
// group: per field the highest-priority value (union fields join all
// distinct values), plus src/srctrickle provenance fields.
type MergedEntry struct {
	// Type is the BibTeX entry type of the winning value.
	Type string

	// Fields holds the merged fields: alphabetical, with provenance
	// fields and the reference id in their stable positions.
	Fields bibtex.Fields
}

// valueSource is one field value with its provenance.
type valueSource struct {
	value    string
	filename string
	bibkey   string
}

// fieldGroup holds all values contributed for one field, ordered by
// file priority (descending), then filename, then bibkey — so the
// first value is the winner for non-union fields.
type fieldGroup struct {
	field  string
	values []valueSource
}

// mergedGroupBy fetches the priority-ordered field groups for all
// entries whose keyColumn equals key. keyColumn must be a trusted
// identifier ("refid", "hash", or "id"), never user input.
func mergedGroupBy(conn *sqlite.Conn, keyColumn string, key any) ([]fieldGroup, error) {
	query := `
		SELECT value.field, value.value, file.name, entry.bibkey
		FROM entry
		JOIN file  ON file.pk = entry.file_pk
		JOIN value ON value.entry_pk = entry.pk
		WHERE entry.` + keyColumn + ` = ?
		ORDER BY value.field, file.priority DESC, file.name, entry.bibkey`

	var groups []fieldGroup
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			field := stmt.ColumnText(0)
			source := valueSource{
				value:    stmt.ColumnText(1),
				filename: stmt.ColumnText(2),
				bibkey:   stmt.ColumnText(3),
			}
			if len(groups) == 0 || groups[len(groups)-1].field != field {
				groups = append(groups, fieldGroup{field: field})
			}
			groups[len(groups)-1].values = append(groups[len(groups)-1].values, source)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("refdb: merged group %s=%v: %w", keyColumn, key, err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("refdb: no entries with %s=%v", keyColumn, key)
	}
	return groups, nil
}

// mergedFieldMap flattens field groups into a plain field→value map,
// applying union joins and dropping ignored fields. The entry type
// stays in the map — this is the raw form used by the similarity
// measure and by inspection reports.
func mergedFieldMap(groups []fieldGroup) map[string]string {
	fields := make(map[string]string, len(groups)+2)
	for _, group := range groups {
		if ignoreFields[group.field] {
			continue
		}
		if unionFields[group.field] {
			fields[group.field] = joinDistinct(group.values)
		} else {
			fields[group.field] = group.values[0].value
		}
	}
	fields["src"], fields["srctrickle"] = provenance(groups)
	return fields
}

// mergedEntry assembles the ordered merged entry for export: fields
// alphabetically (the query order), ignored fields dropped, union
// fields joined, provenance appended, and the reference id field set
// to the assigned id.
func mergedEntry(groups []fieldGroup, id int64) (MergedEntry, error) {
	merged := MergedEntry{}
	for _, group := range groups {
		if ignoreFields[group.field] {
			continue
		}
		if group.field == entryTypeField {
			merged.Type = group.values[0].value
			continue
		}
		value := group.values[0].value
		if unionFields[group.field] {
			value = joinDistinct(group.values)
		}
		merged.Fields = append(merged.Fields, bibtex.Field{Name: group.field, Value: value})
	}
	if merged.Type == "" {
		return merged, fmt.Errorf("refdb: merged group %d has no entry type", id)
	}

	src, srctrickle := provenance(groups)
	merged.Fields.Set("src", src)
	merged.Fields.Set("srctrickle", srctrickle)
	merged.Fields.Set(RefIDField, fmt.Sprintf("%d", id))
	return merged, nil
}

// joinDistinct joins the distinct values of a union field with ", ",
// keeping first-seen order (priority order).
func joinDistinct(values []valueSource) string {
	seen := make(map[string]bool, len(values))
	var distinct []string
	for _, source := range values {
		if !seen[source.value] {
			seen[source.value] = true
			distinct = append(distinct, source.value)
		}
	}
	return strings.Join(distinct, ", ")
}

// provenance derives the src (contributing files) and srctrickle
// (file#bibkey pairs) fields, each sorted and ", "-joined.
func provenance(groups []fieldGroup) (src, srctrickle string) {
	files := make(map[string]bool)
	trickles := make(map[string]bool)
	for _, group := range groups {
		for _, source := range group.values {
			id := strings.TrimSuffix(source.filename, ".bib")
			files[id] = true
			trickles[id+"#"+source.bibkey] = true
		}
	}
	return joinSorted(files), joinSorted(trickles)
}

func joinSorted(set map[string]bool) string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return strings.Join(values, ", ")
}

// EachMerged calls fn once per assigned id, in id order, with the
// merged entry for that group. It verifies first that id assignment
// has completed (every entry has an id, id↔hash one-to-one).
func (d *Database) EachMerged(ctx context.Context, fn func(id int64, hash string, entry MergedEntry) error) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: merged iteration: %w", err)
	}
	defer d.pool.Put(conn)

	if err := checkAssigned(conn); err != nil {
		return err
	}

	// The group keys first; per-group field fetches reuse the cached
	// mergedGroupBy statement.
	type group struct {
		id   int64
		hash string
	}
	var groups []group
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT id, hash FROM entry ORDER BY id",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				groups = append(groups, group{
					id:   stmt.ColumnInt64(0),
					hash: stmt.ColumnText(1),
				})
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("refdb: merged iteration: %w", err)
	}

	for _, g := range groups {
		fieldGroups, err := mergedGroupBy(conn, "id", g.id)
		if err != nil {
			return err
		}
		entry, err := mergedEntry(fieldGroups, g.id)
		if err != nil {
			return err
		}
		if err := fn(g.id, g.hash, entry); err != nil {
			return err
		}
	}
	return nil
}

// checkAssigned verifies the post-assignment invariants.
func checkAssigned(conn *sqlite.Conn) error {
	allID, err := queryBool(conn,
		"SELECT NOT EXISTS (SELECT 1 FROM entry WHERE id IS NULL)")
	if err != nil {
		return err
	}
	if !allID {
		return fmt.Errorf("refdb: database has entries without an assigned id (incomplete build?)")
	}

	oneToOne, err := queryBool(conn, `
		SELECT NOT EXISTS (
			SELECT 1 FROM entry
			WHERE EXISTS (
				SELECT 1 FROM entry AS other
				WHERE (other.hash = entry.hash AND other.id != entry.id)
				   OR (other.id = entry.id AND other.hash != entry.hash)
			)
		)`)
	if err != nil {
		return err
	}
	if !oneToOne {
		return fmt.Errorf("refdb: id↔hash mapping is not one-to-one (corrupt assignment)")
	}
	return nil
}

func queryBool(conn *sqlite.Conn, query string) (bool, error) {
	var result bool
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			result = stmt.ColumnInt(0) != 0
			return nil
		},
	})
	if err != nil {
		return false, fmt.Errorf("refdb: %w", err)
	}
	return result, nil
}
