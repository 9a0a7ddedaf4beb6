package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempSQLite(t *testing.T) *SQLXAdapter {
	t.Helper()
	a, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := tempSQLite(t)

	v, err := SchemaVersion(ctx, a)
	require.Error(t, err, "meta table does not exist before the first migration")
	assert.Zero(t, v)

	require.NoError(t, Migrate(ctx, a))
	require.NoError(t, Migrate(ctx, a))

	v, err = SchemaVersion(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	var n int
	require.NoError(t, a.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLiteUniqueViolation(t *testing.T) {
	ctx := context.Background()
	a := tempSQLite(t)
	require.NoError(t, Migrate(ctx, a))

	insert := `INSERT INTO users (email, password) VALUES (?, ?)`
	_, err := a.Exec(ctx, insert, "dup@example.com", "x")
	require.NoError(t, err)
	_, err = a.Exec(ctx, insert, "dup@example.com", "y")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestSQLiteForeignKeyViolation(t *testing.T) {
	ctx := context.Background()
	a := tempSQLite(t)
	require.NoError(t, Migrate(ctx, a))

	_, err := a.Exec(ctx, `INSERT INTO books (title, author, copies_total, copies_available) VALUES (?, ?, ?, ?)`, "T", "A", 1, 1)
	require.NoError(t, err)
	_, err = a.Exec(ctx, `INSERT INTO loans (user_id, book_id, borrow_date, due_date) VALUES (?, ?, ?, ?)`,
		42, 1, "2025-01-01 00:00:00", "2025-01-15 00:00:00")
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))
}

func TestSchemaRejectsInventoryOutOfBounds(t *testing.T) {
	ctx := context.Background()
	a := tempSQLite(t)
	require.NoError(t, Migrate(ctx, a))

	_, err := a.Exec(ctx, `INSERT INTO books (title, author, copies_total, copies_available) VALUES (?, ?, ?, ?)`, "T", "A", 1, 2)
	assert.Error(t, err)
	_, err = a.Exec(ctx, `INSERT INTO books (title, author, copies_total, copies_available) VALUES (?, ?, ?, ?)`, "T", "A", 1, -1)
	assert.Error(t, err)
}

func TestRowScanNormalizesNoRows(t *testing.T) {
	ctx := context.Background()
	a := tempSQLite(t)
	require.NoError(t, Migrate(ctx, a))

	var id int64
	err := a.QueryRow(ctx, `SELECT id FROM books WHERE id = ?`, 42).Scan(&id)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestTxRollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	a := tempSQLite(t)
	require.NoError(t, Migrate(ctx, a))

	tx, err := a.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO users (email, password) VALUES (?, ?)`, "a@example.com", "x")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"pgx", &pgconn.PgError{Code: "23505"}, true},
		{"pgx other", &pgconn.PgError{Code: "23503"}, false},
		{"lib/pq", &pq.Error{Code: "23505"}, true},
		{"wrapped", errors.Join(errors.New("insert"), &pq.Error{Code: "23505"}), true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"pgx", &pgconn.PgError{Code: "23503"}, true},
		{"pgx unique", &pgconn.PgError{Code: "23505"}, false},
		{"lib/pq", &pq.Error{Code: "23503"}, true},
		{"wrapped", fmt.Errorf("insert loan: %w", &pq.Error{Code: "23503"}), true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsForeignKeyViolation(tc.err))
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN("data/library.db")
	assert.Contains(t, dsn, "file:data/library.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=1")
}
