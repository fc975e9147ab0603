// Package postgresengine provides the PostgreSQL implementation of the
// lending storage interfaces.
//
// The engine supports multiple database libraries through a common adapter
// interface: pgxpool.Pool, database/sql, and sqlx.DB. Queries are built with
// goqu and executed as plain SQL strings, so all three adapters behave
// identically.
//
// Copy-count mutation is implemented as a single conditional UPDATE
// (bounds-checked in the statement itself), which makes the availability
// invariant hold even when several processes share the database.
//
// Expected schema:
//
//	CREATE TABLE books (
//	    id               TEXT PRIMARY KEY,
//	    isbn             TEXT NOT NULL,
//	    title            TEXT NOT NULL,
//	    is_active        BOOLEAN NOT NULL,
//	    total_copies     INTEGER NOT NULL,
//	    available_copies INTEGER NOT NULL
//	);
//
//	CREATE TABLE transactions (
//	    id         TEXT PRIMARY KEY,
//	    book_id    TEXT NOT NULL,
//	    user_id    TEXT NOT NULL,
//	    tx_type    TEXT NOT NULL,
//	    status     TEXT NOT NULL,
//	    closed_at  TIMESTAMP WITH TIME ZONE,
//	    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
//	    updated_at TIMESTAMP WITH TIME ZONE NOT NULL
//	);
package postgresengine
