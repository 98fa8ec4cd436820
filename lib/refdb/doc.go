// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package refdb maintains the references database: every entry of
// every cataloged .bib file loaded into SQLite, grouped into
// publications, and assigned a stable reference id.
//
// # Model
//
// Three tables mirror the source files. `file` holds one row per .bib
// file with its size, mtime, and merge priority. `entry` holds one row
// per citation key per file, carrying the grouping state: `refid` is
// the reference id recorded in the file before this build (the old
// grouping), `hash` is the grouping key computed from the entry's
// fields (the new grouping), and `id` is the assigned reference id
// that reconciles the two. `value` holds the field contents, with the
// BibTeX entry type stored under the reserved field name `entry_type`.
//
// # Build pipeline
//
// A build runs import → hash → assign inside one bulk-load connection:
// parse and insert every file, compute each entry's grouping key (see
// the keyid package), then reconcile old and new groupings. Groups
// that split keep the old id on their closest fragment; groups that
// merge adopt the id of the closest old group; everything genuinely
// new counts up from the highest id ever used. The similarity measure
// is a weighted per-field string similarity — it only ranks
// candidates, so it needs to be sensible, not perfect.
//
// After assignment two invariants hold and are verified with SQL
// existence checks: every entry has an id, and id↔hash is one-to-one.
//
// # Derived state
//
// The database file is a cache. It is rebuilt from the .bib files
// whenever their names, sizes, or mtimes change, and the only data
// that flows back to the files is the assigned id (see
// [Database.Trickle]).
package refdb
