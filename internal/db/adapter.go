// Package db opens database connections and hides the differences between the
// pgx pool and database/sql drivers behind one small adapter interface.
package db

import (
	"context"
	"errors"
)

// Dialect names, shared with the goqu dialect registry.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing, whatever the driver.
var ErrNoRows = errors.New("no rows in result set")

// Querier runs statements written with '?' placeholders. Implementations
// rebind them for their driver.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

// Rows is the iterator over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...any) error
}

// Result describes an executed statement.
type Result interface {
	RowsAffected() (int64, error)
}

// Tx is a database transaction.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Adapter is an open connection pool.
type Adapter interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
	Dialect() string
	Ping(ctx context.Context) error
	Close() error
}
