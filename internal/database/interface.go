package database

import "context"

// Conn is one borrowed database session. The truncation engine issues
// every metadata query and DELETE through a single Conn, one statement at
// a time; it never closes it.
type Conn interface {
	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// Exec executes a statement and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Metadata reads the live catalog of one database dialect.
// Implementations hold the Conn they query; nothing is cached between calls.
type Metadata interface {
	// ListTables returns every base table visible to the session across all
	// catalogs and schemas, excluding views and system schemas.
	ListTables(ctx context.Context) ([]Table, error)

	// ExportedKeys returns the child table of every foreign key whose target
	// is t. A child with several foreign keys into t appears once per key.
	ExportedKeys(ctx context.Context, t Table) ([]Table, error)

	// QuoteTable renders t as a fully qualified, quoted identifier.
	QuoteTable(t Table) string
}
