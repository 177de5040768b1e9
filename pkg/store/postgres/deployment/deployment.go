// Package deployment implements store.DeploymentInterface over Postgres.
package deployment

import (
	"context"
	"encoding/json"
	"fmt"

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

func (m *pg) Put(ctx context.Context, experimentID string, deployments []domain.Deployment) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `delete from "deployment" where "experiment_id" = $1`, experimentID); err != nil {
		return err
	}
	for _, d := range deployments {
		env, err := json.Marshal(d.Environment)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx,
			`insert into "deployment"
			("experiment_id", "node_name", "connector", "pipeline_id", "pipeline_blob", "environment", "architecture", "keep_alive_timeout_minutes")
			values ($1, $2, $3, $4, $5, $6, $7, $8)`,
			experimentID, d.Node.Name, d.Node.Connector, d.PipelineID, d.Pipeline, env, d.Architecture, d.KeepAliveTimeoutMinutes,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const selectColumns = `"experiment_id", "node_name", "connector", "pipeline_id", "pipeline_blob", "environment", "architecture", "prepared", "executor_id", "error", "keep_alive_timeout_minutes"`

func scan(row pgx.Row) (domain.Deployment, error) {
	var d domain.Deployment
	var env []byte
	if err := row.Scan(
		&d.ExperimentID, &d.Node.Name, &d.Node.Connector, &d.PipelineID, &d.Pipeline,
		&env, &d.Architecture, &d.Prepared, &d.ExecutorID, &d.Error, &d.KeepAliveTimeoutMinutes,
	); err != nil {
		return domain.Deployment{}, err
	}
	if len(env) > 0 {
		if err := json.Unmarshal(env, &d.Environment); err != nil {
			return domain.Deployment{}, err
		}
	}
	return d, nil
}

func (m *pg) List(ctx context.Context, experimentID string) ([]domain.Deployment, error) {
	rows, err := m.pool.Query(
		ctx, fmt.Sprintf(`select %s from "deployment" where "experiment_id" = $1`, selectColumns), experimentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Deployment
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (m *pg) update(ctx context.Context, experimentID string, node domain.NodeRef, set string, args []any) error {
	args = append(args, experimentID, node.Name, node.Connector)
	sql := fmt.Sprintf(
		`update "deployment" set %s where "experiment_id" = $%d and "node_name" = $%d and "connector" = $%d`,
		set, len(args)-2, len(args)-1, len(args),
	)
	tag, err := m.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMissing{Table: "deployment", Identity: fmt.Sprintf("%s/%s/%s", experimentID, node.Connector, node.Name)}
	}
	return nil
}

func (m *pg) SetPrepared(ctx context.Context, experimentID string, node domain.NodeRef, environment domain.EnvironmentDefinition) error {
	return m.update(ctx, experimentID, node, `"prepared" = true`, nil)
}

func (m *pg) SetError(ctx context.Context, experimentID string, node domain.NodeRef, reason string) error {
	return m.update(ctx, experimentID, node, `"error" = $1`, []any{reason})
}

func (m *pg) SetExecutor(ctx context.Context, experimentID string, node domain.NodeRef, executorID string) error {
	return m.update(ctx, experimentID, node, `"executor_id" = $1`, []any{executorID})
}
