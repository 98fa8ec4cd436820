// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package bibtex

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseBasicEntry(t *testing.T) {
	source := `
@book{doe2001,
    author = {Doe, John},
    title  = {A Grammar of Examples},
    year   = {2001},
}
`
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	entry := entries[0]
	if entry.Key != "doe2001" {
		t.Errorf("Key = %q, want %q", entry.Key, "doe2001")
	}
	if entry.Type != "book" {
		t.Errorf("Type = %q, want %q", entry.Type, "book")
	}
	if got, _ := entry.Fields.Get("author"); got != "Doe, John" {
		t.Errorf("author = %q, want %q", got, "Doe, John")
	}
	if got, _ := entry.Fields.Get("year"); got != "2001" {
		t.Errorf("year = %q, want %q", got, "2001")
	}
}

func TestParseValueForms(t *testing.T) {
	source := `
@string{jlang = {Journal of Languages}}

@article{a1,
    title   = "Quoted {Title} Here",
    journal = jlang,
    year    = 1999,
    note    = {first} # { } # {second},
}
`
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	tests := []struct {
		field string
		want  string
	}{
		{"title", "Quoted {Title} Here"},
		{"journal", "Journal of Languages"},
		{"year", "1999"},
		{"note", "first second"},
	}
	for _, test := range tests {
		if got, _ := entries[0].Fields.Get(test.field); got != test.want {
			t.Errorf("%s = %q, want %q", test.field, got, test.want)
		}
	}
}

func TestParseNestedBraces(t *testing.T) {
	source := `@misc{m1, title = {The {IPA} and {{nested} groups}}}`
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "The {IPA} and {{nested} groups}"
	if got, _ := entries[0].Fields.Get("title"); got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
}

func TestParseSkipsCommentAndPreamble(t *testing.T) {
	source := `
@comment{This @misc{fake} entry is not parsed}
@preamble{"\newcommand{\noop}[1]{#1}"}
@misc{real, note = {kept}}
`
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "real" {
		t.Fatalf("entries = %+v, want the single 'real' entry", entries)
	}
}

func TestParseWrappedValueWhitespace(t *testing.T) {
	source := "@misc{m1, title = {A title\n        wrapped over lines}}"
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "A title wrapped over lines"
	if got, _ := entries[0].Fields.Get("title"); got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
}

func TestParseDuplicateFieldKeepsFirst(t *testing.T) {
	source := `@misc{m1, note = {first}, note = {second}}`
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, _ := entries[0].Fields.Get("note"); got != "first" {
		t.Errorf("note = %q, want %q", got, "first")
	}
}

func TestParseDuplicateKeyRejected(t *testing.T) {
	source := `
@misc{m1, note = {a}}
@misc{m1, note = {b}}
`
	_, err := Parse("test.bib", []byte(source))
	if err == nil {
		t.Fatal("expected error for duplicate key")
	}
	if !strings.Contains(err.Error(), "m1") {
		t.Errorf("error %q does not name the duplicate key", err)
	}
}

func TestParseErrorsCarryPosition(t *testing.T) {
	source := "@book{broken,\n    title = {unclosed"
	_, err := Parse("bad.bib", []byte(source))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "bad.bib:") {
		t.Errorf("error %q does not carry the file name", err)
	}
}

func TestParseParenthesesDelimiters(t *testing.T) {
	source := `@misc(m1, note = {parenthesized})`
	entries, err := Parse("test.bib", []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, _ := entries[0].Fields.Get("note"); got != "parenthesized" {
		t.Errorf("note = %q, want %q", got, "parenthesized")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	entries := []Entry{
		{
			Key:  "doe2001",
			Type: "book",
			Fields: Fields{
				{Name: "author", Value: "Doe, John"},
				{Name: "title", Value: "A Grammar of {Examples}"},
				{Name: "year", Value: "2001"},
			},
		},
		{
			Key:  "roe1987",
			Type: "article",
			Fields: Fields{
				{Name: "author", Value: "Roe, Richard"},
				{Name: "title", Value: "Notes"},
			},
		},
	}

	var buffer bytes.Buffer
	if err := Write(&buffer, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	parsed, err := Parse("roundtrip.bib", buffer.Bytes())
	if err != nil {
		t.Fatalf("Parse after Write: %v", err)
	}
	if len(parsed) != len(entries) {
		t.Fatalf("got %d entries after round trip, want %d", len(parsed), len(entries))
	}
	for i := range entries {
		if parsed[i].Key != entries[i].Key || parsed[i].Type != entries[i].Type {
			t.Errorf("entry %d = %s/%s, want %s/%s",
				i, parsed[i].Type, parsed[i].Key, entries[i].Type, entries[i].Key)
		}
		for _, field := range entries[i].Fields {
			if got, _ := parsed[i].Fields.Get(field.Name); got != field.Value {
				t.Errorf("entry %s field %s = %q, want %q", entries[i].Key, field.Name, got, field.Value)
			}
		}
	}

	// A second write of the parsed entries must be byte-identical.
	var second bytes.Buffer
	if err := Write(&second, parsed); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if !bytes.Equal(buffer.Bytes(), second.Bytes()) {
		t.Error("write → parse → write is not idempotent")
	}
}

func TestSortByKey(t *testing.T) {
	entries := []Entry{
		{Key: "Zulu1999", Type: "misc"},
		{Key: "alpha2001", Type: "misc"},
		{Key: "Beta1987", Type: "misc"},
	}
	SortByKey(entries)

	want := []string{"alpha2001", "Beta1987", "Zulu1999"}
	for i, key := range want {
		if entries[i].Key != key {
			t.Errorf("entries[%d].Key = %q, want %q", i, entries[i].Key, key)
		}
	}
}

func TestFieldsSetAndDelete(t *testing.T) {
	fields := Fields{{Name: "author", Value: "Doe"}}

	fields.Set("year", "2001")
	if got, ok := fields.Get("year"); !ok || got != "2001" {
		t.Errorf("year = %q (%v), want 2001", got, ok)
	}

	fields.Set("author", "Roe")
	if got, _ := fields.Get("author"); got != "Roe" {
		t.Errorf("author = %q after Set, want Roe", got)
	}
	if len(fields) != 2 {
		t.Errorf("len = %d after Set of existing field, want 2", len(fields))
	}

	value, ok := fields.Delete("author")
	if !ok || value != "Roe" {
		t.Errorf("Delete = %q (%v), want Roe, true", value, ok)
	}
	if _, ok := fields.Get("author"); ok {
		t.Error("author still present after Delete")
	}
}
