// Package catalog is the data access layer for dbnav. It exposes the
// three listing operations the browser needs (databases, tables, rows)
// behind a small interface so the UI can be driven by a fake in tests.
package catalog

import "context"

// Document is one row rendered as an opaque single-line JSON object.
type Document string

// Store lists the remote catalog one level at a time.
type Store interface {
	// ListDatabases returns the top-level database (schema) names in
	// display order.
	ListDatabases(ctx context.Context) ([]string, error)
	// ListTables returns the table and view names of db in display order.
	ListTables(ctx context.Context, db string) ([]string, error)
	// FetchRows reads every row of db.table and returns them in arrival
	// order. A failure after the cursor opened degrades to an empty
	// result; only a cursor that cannot be opened is an error.
	FetchRows(ctx context.Context, db, table string) ([]Document, error)
	Close() error
}

// ConnectError reports a connection that could not be established.
// It is fatal: dbnav only connects once, at startup.
type ConnectError struct {
	URI string
	Err error
}

func (e *ConnectError) Error() string {
	return "connect " + e.URI + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }

// QueryError reports a failed listing or fetch. It is recoverable: the
// browser stays at its current level and shows the message inline.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }
