// Package pool wraps *pgxpool.Pool behind a small interface so the
// per-entity packages (experiment, deployment, ...) can be tested
// against a fake. Modeled on the teacher's pkg/db/postgres/pool.
package pool

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (Tx, error)
	Close()
}

type wrapped struct {
	pool *pgxpool.Pool
}

func Wrap(p *pgxpool.Pool) Pool {
	return &wrapped{pool: p}
}

func (w *wrapped) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return w.pool.Exec(ctx, sql, args...)
}

func (w *wrapped) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return w.pool.Query(ctx, sql, args...)
}

func (w *wrapped) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return w.pool.QueryRow(ctx, sql, args...)
}

func (w *wrapped) Begin(ctx context.Context) (Tx, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return wrappedTx{tx}, nil
}

func (w *wrapped) Close() {
	w.pool.Close()
}

type wrappedTx struct {
	tx pgx.Tx
}

func (t wrappedTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}

func (t wrappedTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t wrappedTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t wrappedTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t wrappedTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
