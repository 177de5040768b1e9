// Package mock is an in-memory store.Interface, for local development
// and tests that don't need a real Postgres instance. The teacher's own
// pkg/db/mocks are call-recording stubs built for unit tests of a single
// caller; this one actually holds state, since the mediator, processor
// and compiler all need a working store to run against in a sandbox
// (spec.md §6, "local/dev without Postgres").
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type db struct {
	mu sync.Mutex

	experiments  map[string]domain.Experiment
	deployments  map[string][]domain.Deployment // by experiment id
	compilations map[string]domain.Compilation  // by compilation id
	executors    map[string]domain.Executor      // by executor id
	locks        map[domain.NodeRef]domain.Lock
	flags        map[[2]string]domain.Flag // [experimentID, key]
}

func New() store.Interface {
	return &db{
		experiments:  map[string]domain.Experiment{},
		deployments:  map[string][]domain.Deployment{},
		compilations: map[string]domain.Compilation{},
		executors:    map[string]domain.Executor{},
		locks:        map[domain.NodeRef]domain.Lock{},
		flags:        map[[2]string]domain.Flag{},
	}
}

func (d *db) Experiments() store.ExperimentInterface   { return experiments{d} }
func (d *db) Deployments() store.DeploymentInterface   { return deployments{d} }
func (d *db) Compilations() store.CompilationInterface { return compilations{d} }
func (d *db) Executors() store.ExecutorInterface       { return executors{d} }
func (d *db) Locks() store.LockInterface               { return locks{d} }
func (d *db) Flags() store.FlagInterface                { return flags{d} }

func (d *db) Ping(ctx context.Context) error { return nil }
func (d *db) Close() error                   { return nil }

type experiments struct{ d *db }

func (e experiments) Create(ctx context.Context, username, name string) (domain.Experiment, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.experiments {
		if existing.Username == username && existing.Name == name && !existing.Deleted {
			return domain.Experiment{}, domain.ErrNameConflict{Username: username, Name: name}
		}
	}
	exp := domain.Experiment{
		ID:       uuid.NewString(),
		Name:     name,
		Username: username,
		Status:   domain.Created,
	}
	d.experiments[exp.ID] = exp
	return exp, nil
}

func (e experiments) Get(ctx context.Context, id string) (domain.Experiment, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.experiments[id]
	if !ok {
		return domain.Experiment{}, domain.ErrMissing{Table: "experiment", Identity: id}
	}
	return exp, nil
}

func (e experiments) GetByName(ctx context.Context, username, name string) (domain.Experiment, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, exp := range d.experiments {
		if exp.Username == username && exp.Name == name && !exp.Deleted {
			return exp, nil
		}
	}
	return domain.Experiment{}, domain.ErrMissing{Table: "experiment", Identity: username + "/" + name}
}

func (e experiments) Find(ctx context.Context, q domain.ExperimentFindQuery) ([]domain.Experiment, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	statuses := map[domain.ExperimentStatus]bool{}
	for _, s := range q.Status {
		statuses[s] = true
	}

	var out []domain.Experiment
	for _, exp := range d.experiments {
		if q.Username != "" && exp.Username != q.Username {
			continue
		}
		if !q.IncludeDeleted && exp.Deleted {
			continue
		}
		if len(statuses) > 0 && !statuses[exp.Status] {
			continue
		}
		if q.UpdatedSince != nil && exp.CreatedAt.Before(*q.UpdatedSince) {
			continue
		}
		if q.UpdatedUntil != nil && exp.CreatedAt.After(*q.UpdatedUntil) {
			continue
		}
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (e experiments) SetStatus(ctx context.Context, id string, next domain.ExperimentStatus) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.experiments[id]
	if !ok {
		return domain.ErrMissing{Table: "experiment", Identity: id}
	}
	if !exp.Status.CanTransitionTo(next) {
		return domain.ErrInvalidTransition{Entity: "experiment", From: string(exp.Status), To: string(next)}
	}
	exp.Status = next
	if next == domain.Running {
		now := time.Now()
		exp.StartedAt = &now
	}
	d.experiments[id] = exp
	return nil
}

func (e experiments) MarkCancelled(ctx context.Context, id string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.experiments[id]
	if !ok {
		return domain.ErrMissing{Table: "experiment", Identity: id}
	}
	exp.Cancelled = true
	d.experiments[id] = exp
	return nil
}

func (e experiments) Finish(ctx context.Context, id string, results []domain.DeploymentResult) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.experiments[id]
	if !ok {
		return domain.ErrMissing{Table: "experiment", Identity: id}
	}
	if !exp.Status.CanTransitionTo(domain.Finished) {
		return domain.ErrInvalidTransition{Entity: "experiment", From: string(exp.Status), To: string(domain.Finished)}
	}
	exp.Status = domain.Finished
	exp.ExecutionResults = results
	d.experiments[id] = exp
	return nil
}

func (e experiments) SetCleanupDone(ctx context.Context, id string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.experiments[id]
	if !ok {
		return domain.ErrMissing{Table: "experiment", Identity: id}
	}
	exp.CleanupDone = true
	d.experiments[id] = exp
	return nil
}

func (e experiments) SoftDelete(ctx context.Context, id string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.experiments[id]
	if !ok {
		return domain.ErrMissing{Table: "experiment", Identity: id}
	}
	if exp.Status != domain.Finished {
		return domain.ErrInvalidTransition{Entity: "experiment", From: string(exp.Status), To: "deleted"}
	}
	exp.Username = fmt.Sprintf("deleted_%s", uuid.NewString())
	exp.Deleted = true
	d.experiments[id] = exp
	return nil
}

// WithAdvisoryLock reads the experiment under the store's mutex and then
// calls fn without holding any lock: fine for a single-process mock with
// one processor loop, unlike the real Postgres implementation which must
// coordinate across replicas.
func (e experiments) WithAdvisoryLock(ctx context.Context, id string, fn func(domain.Experiment) error) error {
	d := e.d
	d.mu.Lock()
	exp, ok := d.experiments[id]
	d.mu.Unlock()
	if !ok {
		return domain.ErrMissing{Table: "experiment", Identity: id}
	}
	return fn(exp)
}

type deployments struct{ d *db }

func (e deployments) Put(ctx context.Context, experimentID string, ds []domain.Deployment) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := append([]domain.Deployment(nil), ds...)
	d.deployments[experimentID] = cp
	return nil
}

func (e deployments) List(ctx context.Context, experimentID string) ([]domain.Deployment, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Deployment(nil), d.deployments[experimentID]...), nil
}

func (e deployments) find(experimentID string, node domain.NodeRef) (int, error) {
	for i, dep := range e.d.deployments[experimentID] {
		if dep.Node == node {
			return i, nil
		}
	}
	return -1, domain.ErrMissing{Table: "deployment", Identity: fmt.Sprintf("%s/%s/%s", experimentID, node.Connector, node.Name)}
}

func (e deployments) SetPrepared(ctx context.Context, experimentID string, node domain.NodeRef, environment domain.EnvironmentDefinition) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := e.find(experimentID, node)
	if err != nil {
		return err
	}
	d.deployments[experimentID][i].Prepared = true
	return nil
}

func (e deployments) SetError(ctx context.Context, experimentID string, node domain.NodeRef, reason string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := e.find(experimentID, node)
	if err != nil {
		return err
	}
	d.deployments[experimentID][i].Error = &reason
	return nil
}

func (e deployments) SetExecutor(ctx context.Context, experimentID string, node domain.NodeRef, executorID string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := e.find(experimentID, node)
	if err != nil {
		return err
	}
	d.deployments[experimentID][i].ExecutorID = &executorID
	return nil
}

type compilations struct{ d *db }

func (e compilations) EnsureCompilation(ctx context.Context, experimentID string, fp domain.CompilationFingerprint) (string, bool, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := fp.ID()
	if err != nil {
		return "", false, err
	}
	if _, ok := d.compilations[id]; ok {
		return id, false, nil
	}
	d.compilations[id] = domain.Compilation{
		ExperimentID:  experimentID,
		CompilationID: id,
		Architecture:  fp.Architecture,
		PipelineBlob:  fp.Pipeline,
		Environment:   fp.Environment,
	}
	return id, true, nil
}

func (e compilations) ClaimPending(ctx context.Context, limit int) ([]domain.Compilation, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string
	for id, c := range d.compilations {
		if c.Pending() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	var out []domain.Compilation
	running := domain.CompilationRunning
	for _, id := range ids {
		c := d.compilations[id]
		c.Status = &running
		d.compilations[id] = c
		out = append(out, c)
	}
	return out, nil
}

func (e compilations) SetResult(ctx context.Context, experimentID, compilationID string, status domain.CompilationStatus, resultLog, image string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.compilations[compilationID]
	if !ok {
		return domain.ErrMissing{Table: "compilation", Identity: compilationID}
	}
	c.Status = &status
	c.ResultLog = resultLog
	c.Image = image
	d.compilations[compilationID] = c
	return nil
}

func (e compilations) Get(ctx context.Context, experimentID, compilationID string) (domain.Compilation, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.compilations[compilationID]
	if !ok {
		return domain.Compilation{}, domain.ErrMissing{Table: "compilation", Identity: compilationID}
	}
	return c, nil
}

func (e compilations) ListByExperiment(ctx context.Context, experimentID string) ([]domain.Compilation, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.Compilation
	for _, c := range d.compilations {
		if c.ExperimentID == experimentID {
			out = append(out, c)
		}
	}
	return out, nil
}

type executors struct{ d *db }

func (e executors) Create(ctx context.Context, ex domain.Executor) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executors[ex.ExecutorID] = ex
	return nil
}

func (e executors) Get(ctx context.Context, experimentID, executorID string) (domain.Executor, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ok := d.executors[executorID]
	if !ok {
		return domain.Executor{}, domain.ErrMissing{Table: "executor", Identity: executorID}
	}
	return ex, nil
}

func (e executors) ListByExperiment(ctx context.Context, experimentID string) ([]domain.Executor, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.Executor
	for _, ex := range d.executors {
		if ex.ExperimentID == experimentID {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (e executors) GetPipeline(ctx context.Context, executorID string) ([]byte, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ok := d.executors[executorID]
	if !ok || ex.Finished {
		return nil, domain.ErrMissing{Table: "executor", Identity: executorID}
	}
	return ex.PipelineBlob, nil
}

func (e executors) Heartbeat(ctx context.Context, executorID string, state domain.ExecutorState) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ok := d.executors[executorID]
	if !ok || ex.Finished {
		return domain.ErrMissing{Table: "executor", Identity: executorID}
	}
	ex.KeepaliveTime = time.Now()
	ex.State = state
	d.executors[executorID] = ex
	return nil
}

func (e executors) SetResult(ctx context.Context, executorID string, result []byte) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ok := d.executors[executorID]
	if !ok || ex.Finished {
		return nil
	}
	ex.ResultBlob = result
	ex.Finished = true
	ex.State = domain.ExecutorReporting
	d.executors[executorID] = ex
	return nil
}

func (e executors) SetLivenessError(ctx context.Context, executorID, reason string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ok := d.executors[executorID]
	if !ok || ex.Finished {
		return nil
	}
	ex.Error = &reason
	ex.Finished = true
	ex.State = domain.ExecutorFailed
	d.executors[executorID] = ex
	return nil
}

type locks struct{ d *db }

func (e locks) ClaimLocks(ctx context.Context, username, experimentID string, nodes []domain.NodeRef) ([]domain.LockConflict, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	var conflicts []domain.LockConflict
	for _, n := range nodes {
		if l, ok := d.locks[n]; ok && l.Username != username {
			conflicts = append(conflicts, domain.LockConflict{Node: n, HeldBy: l.Username})
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}
	for _, n := range nodes {
		d.locks[n] = domain.Lock{Node: n, Username: username, Experiment: experimentID}
	}
	return nil, nil
}

func (e locks) ReleaseAll(ctx context.Context, experimentID string) error {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for n, l := range d.locks {
		if l.Experiment == experimentID {
			delete(d.locks, n)
		}
	}
	return nil
}

func (e locks) ListHeld(ctx context.Context) ([]domain.Lock, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.Lock
	for _, l := range d.locks {
		out = append(out, l)
	}
	return out, nil
}

type flags struct{ d *db }

func (e flags) Update(ctx context.Context, experimentID, key string, op domain.FlagOp) (domain.Flag, error) {
	d := e.d
	d.mu.Lock()
	defer d.mu.Unlock()

	k := [2]string{experimentID, key}
	f, ok := d.flags[k]
	if !ok {
		f = domain.Flag{ExperimentID: experimentID, Key: key}
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
	}

	d.flags[k] = f
	return f, nil
}
