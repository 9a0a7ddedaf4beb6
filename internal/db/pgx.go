package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// PoolConfig sizes and times a Postgres connection pool.
type PoolConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
}

// OpenPGX creates a pgx pool and verifies it with a ping.
func OpenPGX(ctx context.Context, cfg PoolConfig) (*PGXAdapter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(cfg.ConnectTimeout))
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPGXAdapter(pool), nil
}

func pingTimeout(connect time.Duration) time.Duration {
	if connect <= 0 {
		return 5 * time.Second
	}
	return connect
}

// PGXAdapter implements Adapter for pgxpool.Pool.
type PGXAdapter struct {
	pool *pgxpool.Pool
}

func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

func (p *PGXAdapter) Dialect() string { return DialectPostgres }

func (p *PGXAdapter) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *PGXAdapter) Close() error {
	p.pool.Close()
	return nil
}

func (p *PGXAdapter) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgxQuery(ctx, p.pool, query, args)
}

func (p *PGXAdapter) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgxRow{row: p.pool.QueryRow(ctx, rebindDollar(query), args...)}
}

func (p *PGXAdapter) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return pgxExec(ctx, p.pool, query, args)
}

func (p *PGXAdapter) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

// pgxTx wraps pgx.Tx to implement Tx.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgxQuery(ctx, t.tx, query, args)
}

func (t *pgxTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return pgxRow{row: t.tx.QueryRow(ctx, rebindDollar(query), args...)}
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return pgxExec(ctx, t.tx, query, args)
}

func (t *pgxTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *pgxTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func pgxQuery(ctx context.Context, q pgxQuerier, query string, args []any) (Rows, error) {
	rows, err := q.Query(ctx, rebindDollar(query), args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

func pgxExec(ctx context.Context, q pgxQuerier, query string, args []any) (Result, error) {
	tag, err := q.Exec(ctx, rebindDollar(query), args...)
	if err != nil {
		return nil, err
	}
	return pgxResult{tag: tag}, nil
}

// goqu output for the postgres dialect already uses $n and passes through unchanged.
func rebindDollar(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

type pgxRows struct {
	rows pgx.Rows
}

func (p *pgxRows) Next() bool             { return p.rows.Next() }
func (p *pgxRows) Scan(dest ...any) error { return p.rows.Scan(dest...) }
func (p *pgxRows) Err() error             { return p.rows.Err() }

func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

type pgxRow struct {
	row pgx.Row
}

func (p pgxRow) Scan(dest ...any) error {
	err := p.row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

type pgxResult struct {
	tag pgconn.CommandTag
}

func (p pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}
