// Package compilation implements store.CompilationInterface over Postgres.
//
// Compilation rows are keyed by (experiment_id, compilation_id), but the
// fingerprint used to detect a shared build -- (environment, pipeline,
// architecture), spec.md §4.5 -- is not part of that key: two experiments
// requesting the same image share a compilation_id computed from the
// fingerprint hash. EnsureCompilation reuses a row only within one
// experiment; rows of different experiments with the same id that are
// pending together are built once by ClaimPending, and SetResult gives
// the outcome to all of them.
package compilation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/netunicorn/netunicorn/pkg/domain"
	pgerr "github.com/netunicorn/netunicorn/pkg/store/postgres/errors"
	"github.com/netunicorn/netunicorn/pkg/store/postgres/pool"
)

type pg struct {
	pool pool.Pool
}

func New(p pool.Pool) *pg {
	return &pg{pool: p}
}

// EnsureCompilation returns the compilation id for fp, creating a new
// pending row only if this experiment has none for fp yet. created
// reports whether this call is the one that created it, so only one
// caller enqueues the actual build.
func (m *pg) EnsureCompilation(ctx context.Context, experimentID string, fp domain.CompilationFingerprint) (string, bool, error) {
	id, err := fp.ID()
	if err != nil {
		return "", false, err
	}

	env, err := json.Marshal(fp.Environment)
	if err != nil {
		return "", false, err
	}

	_, err = m.pool.Exec(
		ctx,
		`insert into "compilation"
		("experiment_id", "compilation_id", "architecture", "pipeline_blob", "environment")
		values ($1, $2, $3, $4, $5)`,
		experimentID, id, fp.Architecture, fp.Pipeline, env,
	)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return id, false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

const selectColumns = `"experiment_id", "compilation_id", "status", "result_log", "architecture", "pipeline_blob", "environment", "image", extract(epoch from "created_at")::bigint`

func scan(row pgx.Row) (domain.Compilation, error) {
	var c domain.Compilation
	var status *string
	var env []byte
	var created int64
	if err := row.Scan(
		&c.ExperimentID, &c.CompilationID, &status, &c.ResultLog, &c.Architecture,
		&c.PipelineBlob, &env, &c.Image, &created,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Compilation{}, domain.ErrMissing{Table: "compilation"}
		}
		return domain.Compilation{}, err
	}
	if status != nil {
		s := domain.CompilationStatus(*status)
		c.Status = &s
	}
	if len(env) > 0 {
		if err := json.Unmarshal(env, &c.Environment); err != nil {
			return domain.Compilation{}, err
		}
	}
	c.CreatedAt = created
	return c, nil
}

func (m *pg) Get(ctx context.Context, experimentID, compilationID string) (domain.Compilation, error) {
	row := m.pool.QueryRow(
		ctx,
		fmt.Sprintf(`select %s from "compilation" where "experiment_id" = $1 and "compilation_id" = $2`, selectColumns),
		experimentID, compilationID,
	)
	c, err := scan(row)
	if err != nil {
		if me, ok := err.(domain.ErrMissing); ok {
			me.Identity = experimentID + "/" + compilationID
			return domain.Compilation{}, me
		}
		return domain.Compilation{}, err
	}
	return c, nil
}

func (m *pg) ListByExperiment(ctx context.Context, experimentID string) ([]domain.Compilation, error) {
	rows, err := m.pool.Query(
		ctx, fmt.Sprintf(`select %s from "compilation" where "experiment_id" = $1`, selectColumns), experimentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Compilation
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClaimPending compare-and-sets up to limit distinct pending fingerprints
// from status-null to status-running and returns the claimed rows, so two
// compiler replicas polling concurrently never both start the same build.
// A fingerprint shared across experiments only needs one representative
// row claimed; the rest settle when SetResult fans the outcome out.
func (m *pg) ClaimPending(ctx context.Context, limit int) ([]domain.Compilation, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`select distinct on ("compilation_id") "compilation_id" from "compilation"
		where "status" is null
		order by "compilation_id", "created_at" asc
		limit $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	// Re-check status is still null under row locks before claiming, so a
	// concurrent replica that raced us onto the same ids backs off instead
	// of double-claiming.
	tag, err := tx.Exec(
		ctx,
		`update "compilation" set "status" = $1 where "compilation_id" = any($2) and "status" is null`,
		string(domain.CompilationRunning), ids,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, tx.Commit(ctx)
	}

	claimed, err := tx.Query(
		ctx,
		fmt.Sprintf(`select distinct on ("compilation_id") %s from "compilation" where "compilation_id" = any($1)`, selectColumns),
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer claimed.Close()

	var out []domain.Compilation
	for claimed.Next() {
		c, err := scan(claimed)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := claimed.Err(); err != nil {
		return nil, err
	}
	return out, tx.Commit(ctx)
}

// SetResult records the outcome of a build and fans it out to every
// compilation row sharing the same fingerprint id, since EnsureCompilation
// may have attached several experiments to one in-flight build.
func (m *pg) SetResult(ctx context.Context, experimentID, compilationID string, status domain.CompilationStatus, resultLog, image string) error {
	tag, err := m.pool.Exec(
		ctx,
		`update "compilation" set "status" = $1, "result_log" = $2, "image" = $3 where "compilation_id" = $4`,
		string(status), resultLog, image, compilationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMissing{Table: "compilation", Identity: compilationID}
	}
	return nil
}
