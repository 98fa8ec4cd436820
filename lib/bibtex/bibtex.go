// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package bibtex parses and writes BibTeX bibliography files.
//
// The parser handles the subset of BibTeX that bibliography curation
// needs: regular entries with braced, quoted, or bare values, nested
// braces, `#` concatenation, @string abbreviations, and skipped
// @comment/@preamble blocks. It does not interpret LaTeX markup inside
// values — values are opaque strings to this package.
//
// The writer produces one canonical layout so that a parse→write round
// trip is idempotent and diffs against curated files stay minimal.
package bibtex

import "strings"

// Entry is a single BibTeX entry. Field order is preserved from the
// source file; duplicate field names keep the first occurrence.
type Entry struct {
	// Key is the citation key (the text between '{' and the first ',').
	Key string

	// Type is the lowercased entry type ("book", "article", ...).
	Type string

	// Fields holds the entry's fields in source order.
	Fields Fields
}

// Field is one name/value pair of an entry. Names are lowercased
// during parsing; values have their surrounding delimiters removed and
// runs of whitespace collapsed to single spaces.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered field list with map-like accessors.
type Fields []Field

// Get returns the value of the named field and whether it is present.
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// Set replaces the value of the named field in place, or appends the
// field if it is not present.
func (f *Fields) Set(name, value string) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Name: name, Value: value})
}

// Delete removes the named field. Returns the removed value and
// whether the field was present.
func (f *Fields) Delete(name string) (string, bool) {
	for i := range *f {
		if (*f)[i].Name == name {
			value := (*f)[i].Value
			*f = append((*f)[:i], (*f)[i+1:]...)
			return value, true
		}
	}
	return "", false
}

// Map returns the fields as a name→value map. Order is lost; duplicate
// names cannot occur (the parser keeps first occurrences only).
func (f Fields) Map() map[string]string {
	m := make(map[string]string, len(f))
	for _, field := range f {
		m[field.Name] = field.Value
	}
	return m
}

// normalizeValue collapses internal whitespace runs (including
// newlines from wrapped source lines) into single spaces and trims the
// ends. BibTeX treats all whitespace inside values as a single space.
func normalizeValue(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
