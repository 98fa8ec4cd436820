// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package bibfiles loads the catalog of .bib source files.
//
// The catalog is a single YAML file listing each .bib file with its
// merge priority and optional description. There is no directory
// scanning or discovery: files absent from the catalog do not exist as
// far as bibdb is concerned, and a catalog entry whose file is missing
// on disk is an error. This keeps database builds deterministic and
// auditable.
//
// Priorities drive field-level conflict resolution when entries from
// several files are merged: the value from the highest-priority file
// wins. Ties are broken by file name, then citation key.
package bibfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bibliobase/bibdb/lib/bibtex"
)

// Catalog is the ordered collection of .bib source files.
type Catalog struct {
	// Dir is the directory the file paths are resolved against
	// (the catalog file's directory unless the catalog overrides it).
	Dir string

	// Files holds the catalog entries in declaration order.
	Files []*BibFile
}

// BibFile is one .bib source file with its catalog metadata and
// filesystem state at load time.
type BibFile struct {
	// Name is the file name within the catalog directory, e.g.
	// "hh.bib". Unique within a catalog.
	Name string

	// Description is free-form catalog documentation.
	Description string

	// Priority ranks this file for merge conflicts. Higher wins.
	Priority int

	// Encoding is informational; files are read as UTF-8.
	Encoding string

	// Size and ModTime are the file's stat values at catalog load,
	// used for database up-to-date checks.
	Size    int64
	ModTime time.Time

	path string
}

// catalogFile is the on-disk YAML shape.
type catalogFile struct {
	Dir   string `yaml:"dir"`
	Files []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Priority    int    `yaml:"priority"`
		Encoding    string `yaml:"encoding"`
	} `yaml:"files"`
}

// Load reads the catalog at path and stats every listed file. The
// files are resolved against the catalog's `dir` field (relative to
// the catalog file) or the catalog file's directory when `dir` is
// empty.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bibfiles: %w", err)
	}

	var parsed catalogFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("bibfiles: parsing %s: %w", path, err)
	}
	if len(parsed.Files) == 0 {
		return nil, fmt.Errorf("bibfiles: %s lists no files", path)
	}

	dir := filepath.Dir(path)
	if parsed.Dir != "" {
		if filepath.IsAbs(parsed.Dir) {
			dir = parsed.Dir
		} else {
			dir = filepath.Join(dir, parsed.Dir)
		}
	}

	catalog := &Catalog{Dir: dir}
	seen := make(map[string]bool, len(parsed.Files))

	for _, file := range parsed.Files {
		if file.Name == "" {
			return nil, fmt.Errorf("bibfiles: %s: file entry without a name", path)
		}
		if seen[file.Name] {
			return nil, fmt.Errorf("bibfiles: %s: duplicate file %q", path, file.Name)
		}
		seen[file.Name] = true

		encoding := file.Encoding
		if encoding == "" {
			encoding = "utf-8"
		}

		bibFile := &BibFile{
			Name:        file.Name,
			Description: file.Description,
			Priority:    file.Priority,
			Encoding:    encoding,
			path:        filepath.Join(dir, file.Name),
		}
		if err := bibFile.Refresh(); err != nil {
			return nil, err
		}
		catalog.Files = append(catalog.Files, bibFile)
	}

	return catalog, nil
}

// ByName returns the catalog entry with the given file name, or an
// error if the catalog does not list it.
func (c *Catalog) ByName(name string) (*BibFile, error) {
	for _, file := range c.Files {
		if file.Name == name {
			return file, nil
		}
	}
	return nil, fmt.Errorf("bibfiles: no catalog entry %q", name)
}

// ID is the file name without the .bib suffix, used in src/srctrickle
// fields of merged entries.
func (f *BibFile) ID() string {
	return strings.TrimSuffix(f.Name, ".bib")
}

// Path is the resolved filesystem path.
func (f *BibFile) Path() string {
	return f.path
}

// Refresh re-stats the file, updating Size and ModTime. SQLite stores
// timestamps at second precision, so ModTime is truncated accordingly
// — otherwise a round trip through the database would always look
// out of date on filesystems with nanosecond mtimes.
func (f *BibFile) Refresh() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("bibfiles: %w", err)
	}
	f.Size = info.Size()
	f.ModTime = info.ModTime().UTC().Truncate(time.Second)
	return nil
}

// Entries parses the file and returns its entries in source order.
func (f *BibFile) Entries() ([]bibtex.Entry, error) {
	return bibtex.ParseFile(f.path)
}

// Save writes entries back to the file sorted by citation key, then
// refreshes the filesystem metadata.
func (f *BibFile) Save(entries []bibtex.Entry) error {
	bibtex.SortByKey(entries)
	if err := bibtex.WriteFile(f.path, entries); err != nil {
		return err
	}
	return f.Refresh()
}
