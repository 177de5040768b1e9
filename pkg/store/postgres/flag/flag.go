// Package flag implements store.FlagInterface over Postgres: a per-row
// locked (text, int) pair experiments use for cross-node barriers
// (spec.md §4.9).
package flag

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/pool"
)

type pg struct {
	pool pool.Pool
}

func New(p pool.Pool) *pg {
	return &pg{pool: p}
}

// Update applies op under the row's lock, creating the flag at zero
// value on first use, and returns the resulting value.
func (m *pg) Update(ctx context.Context, experimentID, key string, op domain.FlagOp) (domain.Flag, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Flag{}, err
	}
	defer tx.Rollback(ctx)

	f := domain.Flag{ExperimentID: experimentID, Key: key}
	err = tx.QueryRow(
		ctx,
		`select "text_value", "int_value" from "flag" where "experiment_id" = $1 and "key" = $2 for update`,
		experimentID, key,
	).Scan(&f.TextValue, &f.IntValue)
	switch {
	case err == pgx.ErrNoRows:
		if _, err := tx.Exec(
			ctx, `insert into "flag" ("experiment_id", "key") values ($1, $2)`, experimentID, key,
		); err != nil {
			return domain.Flag{}, err
		}
	case err != nil:
		return domain.Flag{}, err
	}

	switch {
	case op.Set != nil:
		if op.Set.Text != nil {
			f.TextValue = *op.Set.Text
		}
		if op.Set.Int != nil {
			f.IntValue = *op.Set.Int
		}
	case op.Inc:
		f.IntValue++
	case op.Dec:
		f.IntValue--
	case op.Get:
		// no mutation
	}

	if op.Set != nil || op.Inc || op.Dec {
		if _, err := tx.Exec(
			ctx,
			`update "flag" set "text_value" = $1, "int_value" = $2 where "experiment_id" = $3 and "key" = $4`,
			f.TextValue, f.IntValue, experimentID, key,
		); err != nil {
			return domain.Flag{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Flag{}, err
	}
	return f, nil
}
