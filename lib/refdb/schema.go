// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// RefIDField is the .bib field that carries an entry's assigned
// reference id across builds.
const RefIDField = "glottolog_ref_id"

// entryTypeField is the reserved value-table field name holding the
// BibTeX entry type. Real BibTeX field names are lowercase identifiers
// chosen by curators; the leading reservation is documented in the
// package comment.
const entryTypeField = "entry_type"

// unionFields are merged by joining all distinct values, instead of
// taking the highest-priority one.
var unionFields = map[string]bool{
	"fn":        true,
	"asjp_name": true,
	"isbn":      true,
}

// ignoreFields are dropped from merged entries.
var ignoreFields = map[string]bool{
	"crossref":  true,
	"numnote":   true,
	"glotto_id": true,
}

// pageSize is the SQLite page size for new database files. The value
// table is written once and scanned in bulk, which favors large pages.
const pageSize = 32768

const schema = `
CREATE TABLE file (
	pk       INTEGER PRIMARY KEY,
	name     TEXT    NOT NULL UNIQUE CHECK (name != ''),
	size     INTEGER NOT NULL CHECK (size > 0),
	mtime    INTEGER NOT NULL,
	priority INTEGER NOT NULL
);

CREATE TABLE entry (
	pk      INTEGER PRIMARY KEY,
	file_pk INTEGER NOT NULL REFERENCES file(pk),
	bibkey  TEXT    NOT NULL CHECK (bibkey != ''),
	-- reference id recorded in the source file (previous grouping)
	refid   INTEGER CHECK (refid > 0),
	-- current grouping key: m:n with refid (splits/merges)
	hash    TEXT    CHECK (hash != ''),
	-- split-resolved refid: every srefid maps to exactly one hash
	srefid  INTEGER CHECK (srefid > 0),
	-- assigned reference id to trickle back (current grouping)
	id      INTEGER CHECK (id > 0),
	UNIQUE (file_pk, bibkey)
);

CREATE INDEX idx_entry_refid  ON entry(refid);
CREATE INDEX idx_entry_hash   ON entry(hash);
CREATE INDEX idx_entry_srefid ON entry(srefid);
CREATE INDEX idx_entry_id     ON entry(id);

CREATE TABLE value (
	entry_pk INTEGER NOT NULL REFERENCES entry(pk),
	field    TEXT    NOT NULL CHECK (field != ''),
	value    TEXT    NOT NULL,
	PRIMARY KEY (entry_pk, field)
) WITHOUT ROWID;
`

func createSchema(conn *sqlite.Conn) error {
	return sqlitex.ExecuteScript(conn, schema, nil)
}
