package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// OpenPostgresSQLX opens Postgres through database/sql with the lib/pq driver.
func OpenPostgresSQLX(ctx context.Context, cfg PoolConfig) (*SQLXAdapter, error) {
	conn, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		conn.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.IdleTimeout > 0 {
		conn.SetConnMaxIdleTime(cfg.IdleTimeout)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(cfg.ConnectTimeout))
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewSQLXAdapter(conn, DialectPostgres), nil
}

// SQLiteDSN is the connection string used for a database file at path.
// Write transactions take the lock up front so concurrent borrowers queue
// on busy_timeout instead of failing on lock upgrade.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL&_txlock=immediate", path)
}

// OpenSQLite opens (and creates if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLXAdapter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite3", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return NewSQLXAdapter(conn, DialectSQLite), nil
}

// SQLXAdapter implements Adapter for sqlx.DB.
type SQLXAdapter struct {
	db      *sqlx.DB
	dialect string
}

func NewSQLXAdapter(conn *sqlx.DB, dialect string) *SQLXAdapter {
	return &SQLXAdapter{db: conn, dialect: dialect}
}

func (s *SQLXAdapter) Dialect() string { return s.dialect }

func (s *SQLXAdapter) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLXAdapter) Close() error { return s.db.Close() }

func (s *SQLXAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SQLXAdapter) QueryRow(ctx context.Context, query string, args ...any) Row {
	return stdRow{row: s.db.QueryRowContext(ctx, s.db.Rebind(query), args...)}
}

func (s *SQLXAdapter) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return s.db.ExecContext(ctx, s.db.Rebind(query), args...)
}

func (s *SQLXAdapter) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlxTx{tx: tx}, nil
}

type sqlxTx struct {
	tx *sqlx.Tx
}

func (t *sqlxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := t.tx.QueryContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *sqlxTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return stdRow{row: t.tx.QueryRowContext(ctx, t.tx.Rebind(query), args...)}
}

func (t *sqlxTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
}

func (t *sqlxTx) Commit(context.Context) error { return t.tx.Commit() }

func (t *sqlxTx) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type stdRow struct {
	row *sql.Row
}

func (s stdRow) Scan(dest ...any) error {
	err := s.row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}
