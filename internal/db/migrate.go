package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// schemaVersion is bumped whenever a statement is appended to a migration list.
const schemaVersion = 1

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'librarian', 'admin')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		copies_total INTEGER NOT NULL CHECK (copies_total >= 0),
		copies_available INTEGER NOT NULL,
		published_date DATE,
		cover_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (copies_available >= 0 AND copies_available <= copies_total)
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		book_id BIGINT NOT NULL REFERENCES books(id),
		borrow_date TIMESTAMPTZ NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		return_date TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'returned')),
		CHECK ((status = 'returned') = (return_date IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_user_borrow ON loans (user_id, borrow_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_active_due ON loans (due_date) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books (category)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'librarian', 'admin')),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		isbn TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		copies_total INTEGER NOT NULL CHECK (copies_total >= 0),
		copies_available INTEGER NOT NULL,
		published_date DATE,
		cover_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (copies_available >= 0 AND copies_available <= copies_total)
	)`,
	`CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		book_id INTEGER NOT NULL REFERENCES books(id),
		borrow_date TIMESTAMP NOT NULL,
		due_date TIMESTAMP NOT NULL,
		return_date TIMESTAMP,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'returned')),
		CHECK ((status = 'returned') = (return_date IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_user_borrow ON loans (user_id, borrow_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_active_due ON loans (due_date) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books (category)`,
}

// Migrate brings the schema up to date. All statements run in one transaction
// and the applied version is recorded in the meta table.
func Migrate(ctx context.Context, a Adapter) error {
	var stmts []string
	switch a.Dialect() {
	case DialectPostgres:
		stmts = postgresSchema
	case DialectSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported dialect %q", a.Dialect())
	}

	if _, err := a.Exec(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	current, err := SchemaVersion(ctx, a)
	if err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := a.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	version := strconv.Itoa(schemaVersion)
	if _, err := tx.Exec(ctx,
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, version); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit(ctx)
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
func SchemaVersion(ctx context.Context, a Adapter) (int, error) {
	var value string
	err := a.QueryRow(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&value)
	if errors.Is(err, ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid schema version %q: %w", value, err)
	}
	return v, nil
}
