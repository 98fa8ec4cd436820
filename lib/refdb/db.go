// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package refdb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bibliobase/bibdb/lib/bibfiles"
	"github.com/bibliobase/bibdb/lib/sqlitepool"
)

// Database is the references database backed by a SQLite file.
type Database struct {
	pool   *sqlitepool.Pool
	path   string
	logger *slog.Logger
}

// BuildConfig holds the parameters for building or reusing a database.
type BuildConfig struct {
	// Catalog is the loaded .bib file catalog. Required.
	Catalog *bibfiles.Catalog

	// Path is the SQLite database file path. Required.
	Path string

	// Rebuild forces a rebuild even when the existing database
	// matches the catalog files.
	Rebuild bool

	// Verbose makes id assignment print every affected group to
	// Progress.
	Verbose bool

	// Progress receives human-readable build progress (group counts,
	// per-file statistics). If nil, progress goes to os.Stdout — the
	// build command's contract is that this output IS the result.
	Progress io.Writer

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Build loads the catalog's .bib files into the database at
// cfg.Path if needed and returns the opened database.
//
// If the file exists and its recorded file names, sizes, and mtimes
// match the catalog (and Rebuild is false), the existing database is
// reused without touching the .bib files. Otherwise the file is
// deleted and rebuilt from scratch: schema, bulk import, grouping-key
// generation, id assignment.
func Build(ctx context.Context, cfg BuildConfig) (*Database, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("refdb: Catalog is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("refdb: Path is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("refdb: Logger is required")
	}
	progress := cfg.Progress
	if progress == nil {
		progress = os.Stdout
	}

	if _, err := os.Stat(cfg.Path); err == nil {
		db, err := Open(cfg.Path, cfg.Logger)
		if err != nil {
			return nil, err
		}
		if !cfg.Rebuild {
			upToDate, err := db.IsUpToDate(ctx, cfg.Catalog, nil)
			if err != nil {
				db.Close()
				return nil, err
			}
			if upToDate {
				cfg.Logger.Info("database up to date", "path", cfg.Path)
				return db, nil
			}
		}
		if err := db.Close(); err != nil {
			return nil, err
		}
		if err := os.Remove(cfg.Path); err != nil {
			return nil, fmt.Errorf("refdb: removing stale database: %w", err)
		}
		cfg.Logger.Info("rebuilding database", "path", cfg.Path, "forced", cfg.Rebuild)
	}

	if err := build(ctx, cfg, progress); err != nil {
		return nil, err
	}
	return Open(cfg.Path, cfg.Logger)
}

// build creates the database file and runs the import → hash → assign
// pipeline on a single bulk-load connection.
func build(ctx context.Context, cfg BuildConfig, progress io.Writer) error {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: 1,
		PageSize: pageSize,
		BulkLoad: true,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("refdb: %w", err)
	}
	defer pool.Close()

	conn, err := pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("refdb: %w", err)
	}
	defer pool.Put(conn)

	if err := createSchema(conn); err != nil {
		return fmt.Errorf("refdb: creating schema: %w", err)
	}

	if err := importCatalog(conn, cfg.Catalog, cfg.Logger); err != nil {
		return err
	}
	if err := entryStats(conn, cfg.Logger); err != nil {
		return err
	}
	if err := generateHashes(conn, cfg.Logger, progress); err != nil {
		return err
	}
	if err := assignIDs(conn, cfg.Verbose, progress, cfg.Logger); err != nil {
		return err
	}
	return nil
}

// Open opens an existing database file for queries and exports.
func Open(path string, logger *slog.Logger) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("refdb: %w", err)
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("refdb: %w", err)
	}
	return &Database{pool: pool, path: path, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.pool.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}
