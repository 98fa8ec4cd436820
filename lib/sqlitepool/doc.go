// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the standard SQLite connection pool used
// by bibdb's storage layer.
//
// It wraps zombiezen.com/go/sqlite with defaults tuned for a local,
// rebuildable database: WAL journal mode, NORMAL synchronous, memory-
// mapped I/O for read performance, and a busy timeout to handle write
// contention gracefully. The database file is derived state — the
// source of truth is always the .bib files on disk — so durability
// across power failure is deliberately not a goal.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use — each goroutine must hold its own connection for the
// duration of its work.
//
// # Bulk load mode
//
// Rebuilding the database imports hundreds of thousands of rows in one
// burst. Setting [Config].BulkLoad trades crash safety for import
// throughput on every connection: synchronous=OFF and
// journal_mode=MEMORY. A crash mid-import leaves a corrupt file, which
// is fine — the next build deletes and recreates it.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:     "/var/lib/bibdb/refs.db",
//	    PoolSize: 4,
//	    Logger:   logger,
//	    OnConnect: func(conn *sqlite.Conn) error {
//	        return sqlitex.ExecuteScript(conn, schema, nil)
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
// # Design
//
// This package is intentionally thin: it applies standard pragmas and
// exposes the underlying zombiezen types directly. There is no attempt
// to abstract away SQLite's connection model or invent a query builder.
// The refdb package writes SQL, uses sqlitex.Execute for cached
// statements, and manages transactions with
// sqlitex.ImmediateTransaction.
package sqlitepool
