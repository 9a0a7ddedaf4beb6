// Package sqlstore implements store.Store on Postgres (pgx or sqlx/lib/pq) and SQLite.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration

	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/store"
)

const (
	logMsgRollbackFailed = "transaction rollback failed"
	logAttrError         = "error"
)

// Store runs every query through a db.Adapter, so the same code serves the pgx
// pool, database/sql with lib/pq, and SQLite.
type Store struct {
	db      db.Adapter
	builder goqu.DialectWrapper
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for failures that cannot be returned to the caller.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store over adapter, building queries in the adapter's dialect.
func New(adapter db.Adapter, opts ...Option) *Store {
	s := &Store{
		db:      adapter,
		builder: goqu.Dialect(adapter.Dialect()),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error    { return s.db.Ping(ctx) }
func (s *Store) Migrate(ctx context.Context) error { return db.Migrate(ctx, s.db) }
func (s *Store) Close() error                      { return s.db.Close() }

// WithinTx commits when fn returns nil and rolls back on error or panic.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.LoanTx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.rollback(ctx, tx)
			panic(p)
		}
		if err != nil {
			s.rollback(ctx, tx)
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)
		}
	}()

	return fn(&sqlTx{q: tx})
}

func (s *Store) rollback(ctx context.Context, tx db.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error(logMsgRollbackFailed, logAttrError, err.Error())
	}
}

// exists reports whether a row with id is present in table.
func exists(ctx context.Context, q db.Querier, table string, id int64) (bool, error) {
	var one int
	err := q.QueryRow(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, db.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
