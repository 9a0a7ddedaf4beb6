package sqlstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/store/sqlstore"
	"github.com/arzan03/LibraryHub/internal/store/storetest"
)

func TestSQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		a, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "library.db"))
		require.NoError(t, err)
		return migrated(t, sqlstore.New(a))
	})
}

// The Postgres runs share one database, so each subtest starts from empty tables.
func TestPostgresPGX(t *testing.T) {
	dsn := postgresDSN(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		a, err := db.OpenPGX(context.Background(), db.PoolConfig{URL: dsn, MaxConns: 10})
		require.NoError(t, err)
		return truncated(t, migrated(t, sqlstore.New(a)), a)
	})
}

func TestPostgresSQLX(t *testing.T) {
	dsn := postgresDSN(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		a, err := db.OpenPostgresSQLX(context.Background(), db.PoolConfig{URL: dsn, MaxConns: 10})
		require.NoError(t, err)
		return truncated(t, migrated(t, sqlstore.New(a)), a)
	})
}

func postgresDSN(t *testing.T) string {
	dsn := os.Getenv("LIBRARY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIBRARY_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func migrated(t *testing.T, s *sqlstore.Store) *sqlstore.Store {
	t.Helper()
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func truncated(t *testing.T, s *sqlstore.Store, a db.Adapter) *sqlstore.Store {
	t.Helper()
	_, err := a.Exec(context.Background(), `TRUNCATE loans, books, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return s
}
