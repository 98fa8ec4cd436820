// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package bibfiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCatalog = `
files:
  - name: hh.bib
    description: primary bibliography
    priority: 10
  - name: extra.bib
    priority: 5
    encoding: utf-8
`

func writeTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"hh.bib": `@book{doe2001,
    author = {Doe, John},
    title  = {A Grammar of Examples},
    year   = {2001},
}
`,
		"extra.bib": `@misc{roe1987, author = {Roe, Richard}, year = {1987}}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	catalogPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	return catalogPath
}

func TestLoad(t *testing.T) {
	catalog, err := Load(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(catalog.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(catalog.Files))
	}

	hh := catalog.Files[0]
	if hh.Name != "hh.bib" || hh.Priority != 10 {
		t.Errorf("first file = %s priority %d, want hh.bib priority 10", hh.Name, hh.Priority)
	}
	if hh.ID() != "hh" {
		t.Errorf("ID = %q, want %q", hh.ID(), "hh")
	}
	if hh.Size == 0 || hh.ModTime.IsZero() {
		t.Errorf("stat metadata not populated: size=%d mtime=%v", hh.Size, hh.ModTime)
	}
	if hh.Encoding != "utf-8" {
		t.Errorf("default encoding = %q, want utf-8", hh.Encoding)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	content := "files:\n  - name: absent.bib\n    priority: 1\n"
	if err := os.WriteFile(catalogPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(catalogPath); err == nil {
		t.Fatal("expected error for missing .bib file")
	}
}

func TestLoadDuplicateName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bib"), []byte("@misc{x, year={1}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	catalogPath := filepath.Join(dir, "catalog.yaml")
	content := "files:\n  - name: a.bib\n  - name: a.bib\n"
	if err := os.WriteFile(catalogPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(catalogPath)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate-file error", err)
	}
}

func TestEntriesAndSave(t *testing.T) {
	catalog, err := Load(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	file, err := catalog.ByName("hh.bib")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}

	entries, err := file.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "doe2001" {
		t.Fatalf("entries = %+v, want the doe2001 entry", entries)
	}

	entries[0].Fields.Set("glottolog_ref_id", "42")
	before := file.ModTime
	if err := file.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if file.ModTime.Before(before) {
		t.Error("ModTime not refreshed after Save")
	}

	reloaded, err := file.Entries()
	if err != nil {
		t.Fatalf("Entries after Save: %v", err)
	}
	if got, _ := reloaded[0].Fields.Get("glottolog_ref_id"); got != "42" {
		t.Errorf("glottolog_ref_id = %q after save/reload, want 42", got)
	}
}

func TestByNameUnknown(t *testing.T) {
	catalog, err := Load(writeTestCatalog(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := catalog.ByName("nope.bib"); err == nil {
		t.Fatal("expected error for unknown file name")
	}
}
