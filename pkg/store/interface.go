// Package store is the thin adapter over the relational substrate
// specified in spec.md §4.1/§6: it persists experiments, deployments,
// compilations, executors, locks and flags, and hosts the two compound
// primitives (ClaimLocks, flag update) that must be atomic.
//
// The only concrete implementation in this repository is
// pkg/store/postgres; pkg/store/mock exists for tests and local
// development without a database.
package store

import (
	"context"

	"github.com/netunicorn/netunicorn/pkg/domain"
)

type Interface interface {
	Experiments() ExperimentInterface
	Deployments() DeploymentInterface
	Compilations() CompilationInterface
	Executors() ExecutorInterface
	Locks() LockInterface
	Flags() FlagInterface

	Ping(ctx context.Context) error
	Close() error
}

type ExperimentInterface interface {
	// Create persists a new experiment in CREATED status. Returns
	// domain.ErrNameConflict if (username, name) already exists among
	// non-deleted experiments (spec.md §3 invariant (a)).
	Create(ctx context.Context, username, name string) (domain.Experiment, error)

	Get(ctx context.Context, id string) (domain.Experiment, error)
	GetByName(ctx context.Context, username, name string) (domain.Experiment, error)
	Find(ctx context.Context, query domain.ExperimentFindQuery) ([]domain.Experiment, error)

	// SetStatus enforces ExperimentStatus.CanTransitionTo; returns
	// domain.ErrInvalidTransition otherwise.
	SetStatus(ctx context.Context, id string, next domain.ExperimentStatus) error

	MarkCancelled(ctx context.Context, id string) error

	// Finish writes the terminal results snapshot and transitions to
	// FINISHED in one call, used by the processor.
	Finish(ctx context.Context, id string, results []domain.DeploymentResult) error

	SetCleanupDone(ctx context.Context, id string) error

	// SoftDelete renames the owning username to deleted_<uuid>
	// (spec.md §6). Fails if the experiment is not terminal.
	SoftDelete(ctx context.Context, id string) error

	// WithAdvisoryLock runs fn while holding a Postgres advisory lock
	// keyed on id, serializing lifecycle transitions across processor
	// replicas (spec.md §4.7, §5).
	WithAdvisoryLock(ctx context.Context, id string, fn func(domain.Experiment) error) error
}

type DeploymentInterface interface {
	// Put replaces the full set of deployments for an experiment. The
	// mediator calls it at submit, and again at prepare once each
	// deployment's node architecture is known.
	Put(ctx context.Context, experimentID string, deployments []domain.Deployment) error

	List(ctx context.Context, experimentID string) ([]domain.Deployment, error)

	SetPrepared(ctx context.Context, experimentID string, node domain.NodeRef, environment domain.EnvironmentDefinition) error
	SetError(ctx context.Context, experimentID string, node domain.NodeRef, reason string) error
	SetExecutor(ctx context.Context, experimentID string, node domain.NodeRef, executorID string) error
}

type CompilationInterface interface {
	// EnsureCompilation returns the compilation id for fp, creating a
	// new pending row iff none with the same fingerprint exists yet
	// for this experiment (spec.md §3, "Compilation idempotence").
	EnsureCompilation(ctx context.Context, experimentID string, fp domain.CompilationFingerprint) (compilationID string, created bool, err error)

	// ClaimPending atomically moves up to limit pending rows to RUNNING
	// and returns them. It does not order the batch; the compiler applies
	// creation order within an experiment and round-robin across
	// experiments with pkg/compiler/schedule.Order (spec.md §4.3).
	ClaimPending(ctx context.Context, limit int) ([]domain.Compilation, error)

	SetResult(ctx context.Context, experimentID, compilationID string, status domain.CompilationStatus, resultLog, image string) error

	Get(ctx context.Context, experimentID, compilationID string) (domain.Compilation, error)
	ListByExperiment(ctx context.Context, experimentID string) ([]domain.Compilation, error)
}

type ExecutorInterface interface {
	Create(ctx context.Context, e domain.Executor) error
	Get(ctx context.Context, experimentID, executorID string) (domain.Executor, error)
	ListByExperiment(ctx context.Context, experimentID string) ([]domain.Executor, error)

	// GetPipeline returns the pipeline blob for a started, non-finished
	// executor; domain.ErrMissing otherwise (spec.md §4.5).
	GetPipeline(ctx context.Context, executorID string) ([]byte, error)

	Heartbeat(ctx context.Context, executorID string, state domain.ExecutorState) error

	// SetResult is idempotent: the first call wins, later calls are
	// silently ignored (spec.md §4.5).
	SetResult(ctx context.Context, executorID string, result []byte) error

	SetLivenessError(ctx context.Context, executorID, reason string) error
}

type LockInterface interface {
	// ClaimLocks grants all requested nodes to (username, experimentID)
	// or none; on conflict it returns the list of already-held nodes
	// and takes nothing (spec.md §4.4).
	ClaimLocks(ctx context.Context, username, experimentID string, nodes []domain.NodeRef) ([]domain.LockConflict, error)

	ReleaseAll(ctx context.Context, experimentID string) error
	ListHeld(ctx context.Context) ([]domain.Lock, error)
}

type FlagInterface interface {
	// Update executes op under the (experiment_id, key) row lock and
	// returns the resulting flag (spec.md §4.9).
	Update(ctx context.Context, experimentID, key string, op domain.FlagOp) (domain.Flag, error)
}
