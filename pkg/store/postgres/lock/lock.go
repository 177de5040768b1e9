// Package lock implements store.LockInterface over Postgres: exclusive
// per-node claims so two experiments can't be deployed onto the same
// node at once (spec.md §5).
package lock

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

// ClaimLocks is all-or-nothing: it locks every requested node's row (or
// absence of one), and if any node is already held by someone else, it
// rolls back and returns every conflict found rather than the first.
func (m *pg) ClaimLocks(ctx context.Context, username, experimentID string, nodes []domain.NodeRef) ([]domain.LockConflict, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var conflicts []domain.LockConflict
	for _, n := range nodes {
		var heldBy string
		err := tx.QueryRow(
			ctx,
			`select "username" from "lock_" where "node_name" = $1 and "connector" = $2 for update`,
			n.Name, n.Connector,
		).Scan(&heldBy)
		if err != nil {
			if err == pgx.ErrNoRows {
				continue
			}
			return nil, err
		}
		if heldBy != username {
			conflicts = append(conflicts, domain.LockConflict{Node: n, HeldBy: heldBy})
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	for _, n := range nodes {
		if _, err := tx.Exec(
			ctx,
			`insert into "lock_" ("node_name", "connector", "username", "experiment_id")
			values ($1, $2, $3, $4)
			on conflict ("node_name", "connector") do update set "username" = excluded."username", "experiment_id" = excluded."experiment_id"`,
			n.Name, n.Connector, username, experimentID,
		); err != nil {
			return nil, err
		}
	}
	return nil, tx.Commit(ctx)
}

func (m *pg) ReleaseAll(ctx context.Context, experimentID string) error {
	_, err := m.pool.Exec(ctx, `delete from "lock_" where "experiment_id" = $1`, experimentID)
	return err
}

func (m *pg) ListHeld(ctx context.Context) ([]domain.Lock, error) {
	rows, err := m.pool.Query(ctx, `select "node_name", "connector", "username", "experiment_id" from "lock_"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lock
	for rows.Next() {
		var l domain.Lock
		if err := rows.Scan(&l.Node.Name, &l.Node.Connector, &l.Username, &l.Experiment); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
