// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package bibtex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Write writes entries in the canonical layout: four-space indent,
// field names padded so the '=' signs align within an entry, braced
// values, a trailing comma after every field, and one blank line
// between entries. Entry order is the slice order — callers sort
// first if they want sorted output.
func Write(w io.Writer, entries []Entry) error {
	buffered := bufio.NewWriter(w)
	for i, entry := range entries {
		if i > 0 {
			if _, err := buffered.WriteString("\n"); err != nil {
				return fmt.Errorf("bibtex: write: %w", err)
			}
		}
		if err := writeEntry(buffered, entry); err != nil {
			return fmt.Errorf("bibtex: write %s: %w", entry.Key, err)
		}
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("bibtex: write: %w", err)
	}
	return nil
}

// WriteFile writes entries to path, replacing any existing file. The
// write goes through a temporary file in the same directory followed
// by a rename, so a crash never leaves a truncated .bib file.
func WriteFile(path string, entries []Entry) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), ".bibdb-*.bib")
	if err != nil {
		return fmt.Errorf("bibtex: write %s: %w", path, err)
	}
	defer os.Remove(temporary.Name())

	if err := Write(temporary, entries); err != nil {
		temporary.Close()
		return err
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("bibtex: write %s: %w", path, err)
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		return fmt.Errorf("bibtex: write %s: %w", path, err)
	}
	return nil
}

// SortByKey sorts entries by citation key, case-insensitively, with
// the raw key as tie-break so the order is total.
func SortByKey(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		left, right := strings.ToLower(entries[i].Key), strings.ToLower(entries[j].Key)
		if left != right {
			return left < right
		}
		return entries[i].Key < entries[j].Key
	})
}

// SortByField sorts entries by the named field's value (entries
// missing the field sort first), with the citation key as tie-break.
func SortByField(entries []Entry, field string) {
	sort.Slice(entries, func(i, j int) bool {
		left, _ := entries[i].Fields.Get(field)
		right, _ := entries[j].Fields.Get(field)
		if left != right {
			return left < right
		}
		return entries[i].Key < entries[j].Key
	})
}

func writeEntry(w *bufio.Writer, entry Entry) error {
	width := 0
	for _, field := range entry.Fields {
		if len(field.Name) > width {
			width = len(field.Name)
		}
	}

	if _, err := fmt.Fprintf(w, "@%s{%s,\n", entry.Type, entry.Key); err != nil {
		return err
	}
	for _, field := range entry.Fields {
		padding := strings.Repeat(" ", width-len(field.Name))
		if _, err := fmt.Fprintf(w, "    %s%s = {%s},\n", field.Name, padding, field.Value); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("}\n"); err != nil {
		return err
	}
	return nil
}
