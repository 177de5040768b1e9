// Package executor implements store.ExecutorInterface over Postgres.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

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

func (m *pg) Create(ctx context.Context, e domain.Executor) error {
	_, err := m.pool.Exec(
		ctx,
		`insert into "executor"
		("experiment_id", "executor_id", "node_name", "connector", "pipeline_blob", "keepalive_time", "started_at", "state", "keep_alive_timeout_minutes")
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ExperimentID, e.ExecutorID, e.Node.Name, e.Node.Connector, e.PipelineBlob,
		e.KeepaliveTime, e.StartedAt, string(e.State), e.KeepAliveTimeoutMinutes,
	)
	return err
}

const selectColumns = `"experiment_id", "executor_id", "node_name", "connector", "pipeline_blob", "result_blob", "keepalive_time", "started_at", "error", "finished", "state", "keep_alive_timeout_minutes"`

func scan(row pgx.Row) (domain.Executor, error) {
	var e domain.Executor
	var state string
	if err := row.Scan(
		&e.ExperimentID, &e.ExecutorID, &e.Node.Name, &e.Node.Connector, &e.PipelineBlob,
		&e.ResultBlob, &e.KeepaliveTime, &e.StartedAt, &e.Error, &e.Finished, &state,
		&e.KeepAliveTimeoutMinutes,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Executor{}, domain.ErrMissing{Table: "executor"}
		}
		return domain.Executor{}, err
	}
	e.Connector = e.Node.Connector
	e.State = domain.ExecutorState(state)
	return e, nil
}

// Get looks up an executor by id. experimentID is an additional filter
// when non-empty; executor_id is globally unique (spec.md §3 invariant
// (b)), so callers that don't yet know the owning experiment (e.g. the
// gateway's token-verification middleware) may pass "".
func (m *pg) Get(ctx context.Context, experimentID, executorID string) (domain.Executor, error) {
	sql := fmt.Sprintf(`select %s from "executor" where "executor_id" = $1`, selectColumns)
	args := []any{executorID}
	if experimentID != "" {
		sql += ` and "experiment_id" = $2`
		args = append(args, experimentID)
	}
	row := m.pool.QueryRow(ctx, sql, args...)
	e, err := scan(row)
	if err != nil {
		if me, ok := err.(domain.ErrMissing); ok {
			me.Identity = experimentID + "/" + executorID
			return domain.Executor{}, me
		}
		return domain.Executor{}, err
	}
	return e, nil
}

func (m *pg) ListByExperiment(ctx context.Context, experimentID string) ([]domain.Executor, error) {
	rows, err := m.pool.Query(
		ctx, fmt.Sprintf(`select %s from "executor" where "experiment_id" = $1`, selectColumns), experimentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Executor
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetPipeline returns the pipeline blob an executor fetches at startup.
// A missing row, or one already finished, reports domain.ErrMissing so
// the gateway answers 404 either way (spec.md §7.2 avoids distinguishing
// "never existed" from "already done").
func (m *pg) GetPipeline(ctx context.Context, executorID string) ([]byte, error) {
	var blob []byte
	var finished bool
	err := m.pool.QueryRow(
		ctx, `select "pipeline_blob", "finished" from "executor" where "executor_id" = $1`, executorID,
	).Scan(&blob, &finished)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMissing{Table: "executor", Identity: executorID}
		}
		return nil, err
	}
	if finished {
		return nil, domain.ErrMissing{Table: "executor", Identity: executorID}
	}
	return blob, nil
}

func (m *pg) Heartbeat(ctx context.Context, executorID string, state domain.ExecutorState) error {
	tag, err := m.pool.Exec(
		ctx,
		`update "executor" set "keepalive_time" = $1, "state" = $2 where "executor_id" = $3 and not "finished"`,
		time.Now(), string(state), executorID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMissing{Table: "executor", Identity: executorID}
	}
	return nil
}

// SetResult records the first /result POST for this executor and ignores
// any later one (spec.md §4.5): the update only fires while not finished.
func (m *pg) SetResult(ctx context.Context, executorID string, result []byte) error {
	_, err := m.pool.Exec(
		ctx,
		`update "executor" set "result_blob" = $1, "finished" = true, "state" = $2, "keepalive_time" = $3
		where "executor_id" = $4 and not "finished"`,
		result, string(domain.ExecutorReporting), time.Now(), executorID,
	)
	return err
}

func (m *pg) SetLivenessError(ctx context.Context, executorID, reason string) error {
	_, err := m.pool.Exec(
		ctx,
		`update "executor" set "error" = $1, "finished" = true, "state" = $2
		where "executor_id" = $3 and not "finished"`,
		reason, string(domain.ExecutorFailed), executorID,
	)
	return err
}
