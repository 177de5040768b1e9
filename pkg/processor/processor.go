// Package processor runs the experiment lifecycle loop (spec.md §4.7):
// CREATED->PREPARING on user prepare, PREPARING->READY/FINISHED as
// compilations settle, READY->RUNNING on user start, RUNNING->FINISHED
// as executors go terminal or overdue, and cleanup+lock-release on
// FINISHED. One pkg/loop.Task tick per poll, each experiment transition
// guarded by store.Experiments().WithAdvisoryLock so multiple processor
// replicas never double-transition the same experiment (spec.md §4.7),
// a direct structural analogue of the teacher's per-row `for update
// skip locked` claim in pkg/db/postgres/run.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/netunicorn/netunicorn/pkg/connector"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/loop"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type Service struct {
	store             store.Interface
	registry          *connector.Registry
	heartbeatInterval time.Duration
	tickInterval      time.Duration
}

func New(db store.Interface, registry *connector.Registry, heartbeatInterval, tickInterval time.Duration) *Service {
	return &Service{store: db, registry: registry, heartbeatInterval: heartbeatInterval, tickInterval: tickInterval}
}

// Run polls every non-terminal experiment each tick and advances it one
// lifecycle step, until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	_, err := loop.Start(ctx, struct{}{}, func(ctx context.Context, _ struct{}) (struct{}, loop.Next) {
		active, err := s.store.Experiments().Find(ctx, domain.ExperimentFindQuery{
			Status: []domain.ExperimentStatus{
				domain.Created, domain.Preparing, domain.Ready, domain.Running,
			},
		})
		if err != nil {
			return struct{}{}, loop.Break(err)
		}

		for _, exp := range active {
			id := exp.ID
			err := s.store.Experiments().WithAdvisoryLock(ctx, id, func(exp domain.Experiment) error {
				return s.advance(ctx, exp)
			})
			if err != nil {
				// one experiment's transition failing must not stall the
				// rest of the fleet; it is retried next tick.
				continue
			}
		}
		return struct{}{}, loop.Continue(s.tickInterval)
	})
	return err
}

// advance performs at most one lifecycle transition for exp. CREATED ->
// PREPARING is driven by the mediator's prepare call (it sets the
// status itself), so this never touches CREATED rows.
func (s *Service) advance(ctx context.Context, exp domain.Experiment) error {
	switch exp.Status {
	case domain.Preparing:
		return s.advancePreparing(ctx, exp)
	case domain.Running:
		return s.advanceRunning(ctx, exp)
	case domain.Finished:
		return s.cleanup(ctx, exp)
	default:
		return nil
	}
}

// advancePreparing moves PREPARING -> READY once every deployment is
// prepared or terminally failed, or straight to FINISHED if all of them
// failed (spec.md §4.7). Before checking that, it pulls each deployment's
// build outcome off its compilation row: the compilation service only
// knows fingerprints and compilation ids, never which deployments asked
// for them, so this is where that result gets attached back.
func (s *Service) advancePreparing(ctx context.Context, exp domain.Experiment) error {
	deployments, err := s.store.Deployments().List(ctx, exp.ID)
	if err != nil {
		return err
	}
	if err := s.syncCompilations(ctx, exp.ID, deployments); err != nil {
		return err
	}

	deployments, err = s.store.Deployments().List(ctx, exp.ID)
	if err != nil {
		return err
	}
	exp.Deployments = deployments

	if !exp.AllDeploymentsPreparedOrFailed() {
		return nil
	}

	if exp.AllDeploymentsFailed() {
		results := resultsFromDeployments(deployments)
		return s.store.Experiments().Finish(ctx, exp.ID, results)
	}

	return s.store.Experiments().SetStatus(ctx, exp.ID, domain.Ready)
}

// syncCompilations looks up each not-yet-settled deployment's compilation
// by its fingerprint and applies a finished build's outcome. A deployment
// already Prepared or Failed is left alone; a compilation still pending or
// running is skipped until the next tick.
func (s *Service) syncCompilations(ctx context.Context, experimentID string, deployments []domain.Deployment) error {
	for _, d := range deployments {
		if d.Prepared || d.Failed() {
			continue
		}

		fp := domain.CompilationFingerprint{
			Environment:  d.Environment,
			Pipeline:     d.Pipeline,
			Architecture: d.Architecture,
		}
		compilationID, err := fp.ID()
		if err != nil {
			return err
		}

		c, err := s.store.Compilations().Get(ctx, experimentID, compilationID)
		if err != nil {
			if _, ok := err.(domain.ErrMissing); ok {
				continue
			}
			return err
		}
		if c.Status == nil {
			continue
		}

		switch *c.Status {
		case domain.CompilationSuccess:
			if err := s.store.Deployments().SetPrepared(ctx, experimentID, d.Node, d.Environment); err != nil {
				return err
			}
		case domain.CompilationFailure:
			reason := c.ResultLog
			if reason == "" {
				reason = "compilation failed"
			}
			if err := s.store.Deployments().SetError(ctx, experimentID, d.Node, reason); err != nil {
				return err
			}
		}
	}
	return nil
}

// advanceRunning moves RUNNING -> FINISHED once every executor in the
// experiment is finished or past its liveness deadline; overdue
// executors are marked failed first (spec.md §4.7).
func (s *Service) advanceRunning(ctx context.Context, exp domain.Experiment) error {
	executors, err := s.store.Executors().ListByExperiment(ctx, exp.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	allTerminal := true
	for _, ex := range executors {
		if ex.Finished {
			continue
		}
		if now.Before(ex.Deadline(s.heartbeatInterval)) {
			allTerminal = false
			continue
		}
		if err := s.store.Executors().SetLivenessError(ctx, ex.ExecutorID, "executor heartbeat deadline exceeded"); err != nil {
			return err
		}
	}
	if !allTerminal {
		return nil
	}

	deployments, err := s.store.Deployments().List(ctx, exp.ID)
	if err != nil {
		return err
	}
	resultsByNode := make(map[domain.NodeRef]domain.DeploymentResult, len(executors))
	for _, ex := range executors {
		r := domain.DeploymentResult{Node: ex.Node, ResultRaw: ex.ResultBlob}
		if ex.Error != nil {
			r.Error = ex.Error
		}
		resultsByNode[ex.Node] = r
	}
	results := make([]domain.DeploymentResult, 0, len(deployments))
	for _, d := range deployments {
		if r, ok := resultsByNode[d.Node]; ok {
			results = append(results, r)
		} else if d.Failed() {
			results = append(results, domain.DeploymentResult{Node: d.Node, Error: d.Error})
		}
	}

	return s.store.Experiments().Finish(ctx, exp.ID, results)
}

// cleanup invokes every referenced connector's Cleanup and releases all
// locks, once, for a FINISHED experiment (spec.md §4.7). Idempotent: a
// retried call after a prior partial failure just repeats the sweep.
func (s *Service) cleanup(ctx context.Context, exp domain.Experiment) error {
	if exp.CleanupDone {
		return nil
	}

	deployments, err := s.store.Deployments().List(ctx, exp.ID)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{})
	for _, d := range deployments {
		if _, ok := seen[d.Node.Connector]; ok {
			continue
		}
		seen[d.Node.Connector] = struct{}{}
		c, ok := s.registry.Get(d.Node.Connector)
		if !ok {
			continue
		}
		if err := c.Cleanup(ctx, exp.ID); err != nil {
			return fmt.Errorf("cleanup on connector %q: %w", d.Node.Connector, err)
		}
	}

	if err := s.store.Locks().ReleaseAll(ctx, exp.ID); err != nil {
		return err
	}
	return s.store.Experiments().SetCleanupDone(ctx, exp.ID)
}

func resultsFromDeployments(deployments []domain.Deployment) []domain.DeploymentResult {
	out := make([]domain.DeploymentResult, 0, len(deployments))
	for _, d := range deployments {
		out = append(out, domain.DeploymentResult{Node: d.Node, Error: d.Error})
	}
	return out
}
