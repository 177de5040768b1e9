// Package interp is the executor's stage interpreter (spec.md §4.6
// steps 3-4): it runs each stage's tasks over a bounded worker pool,
// snapshotting prior results immutably between stages, and stops at
// the first stage that doesn't pass entirely.
//
// The task library itself (what an entrypoint actually does) is an
// external collaborator (spec.md §1 "out of scope"); Registry is the
// seam a real deployment plugs one into.
package interp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	"github.com/netunicorn/netunicorn/pkg/domain"
)

// Entrypoint is one task library function: given its Init payload and
// a read-only snapshot of every prior task's most recent result, it
// produces a result or panics. runTask lifts both outcomes into
// domain.Result: a returned error becomes Err, a panic's recovered
// value becomes Err, anything else becomes Ok (spec.md §4.6 step 3,
// "a task returning a non-tagged value is wrapped as Ok(v)").
type Entrypoint func(ctx context.Context, init []byte, snapshot domain.Snapshot) (any, error)

// Registry resolves a task's Entrypoint by name.
type Registry interface {
	Lookup(name string) (Entrypoint, bool)
}

// MapRegistry is the simplest Registry: a name -> Entrypoint map.
type MapRegistry map[string]Entrypoint

func (m MapRegistry) Lookup(name string) (Entrypoint, bool) {
	e, ok := m[name]
	return e, ok
}

// PoolSize is spec.md §4.6 step 3's "bounded by a small worker pool":
// min(NumCPU, n), never less than 1.
func PoolSize(n int) int {
	if n <= 0 {
		return 1
	}
	if cpu := runtime.NumCPU(); cpu < n {
		return cpu
	}
	return n
}

// Run interprets every stage in order against registry, starting from
// an empty history, and returns the accumulated history; whether every
// stage passed is read off the last result of each task (spec.md §4.6
// step 4: a failing stage skips every
// subsequent one, but the history already collected is kept as-is).
func Run(ctx context.Context, pipeline domain.Pipeline, registry Registry) domain.History {
	history := domain.History{}

	for _, stage := range pipeline.Stages {
		runStage(ctx, stage, registry, history)

		passed := true
		for _, name := range stage.Names() {
			results := history[name]
			if len(results) == 0 || results[len(results)-1].IsErr() {
				passed = false
				break
			}
		}
		if !passed {
			break
		}
	}

	return history
}

func runStage(ctx context.Context, stage domain.Stage, registry Registry, history domain.History) {
	snapshot := history.Snapshot()

	pool := make(chan struct{}, PoolSize(len(stage.Tasks)))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, task := range stage.Tasks {
		wg.Add(1)
		pool <- struct{}{}
		go func(task domain.Task) {
			defer wg.Done()
			defer func() { <-pool }()

			result := runTask(ctx, task, registry, snapshot)

			mu.Lock()
			history.Append(task.Name, result)
			mu.Unlock()
		}(task)
	}

	wg.Wait()
}

func runTask(ctx context.Context, task domain.Task, registry Registry, snapshot domain.Snapshot) (result domain.Result) {
	entry, ok := registry.Lookup(task.Entrypoint)
	if !ok {
		return domain.ErrResult(fmt.Sprintf("unknown entrypoint %q", task.Entrypoint))
	}

	defer func() {
		if r := recover(); r != nil {
			result = domain.ErrResult(fmt.Sprintf("panic: %v", r))
		}
	}()

	value, err := entry(ctx, task.Init, snapshot)
	if err != nil {
		return domain.ErrResult(err.Error())
	}
	return asOkResult(value)
}

// asOkResult wraps value as Ok. An entrypoint may already return a
// domain.Result directly (the explicit-tagging case of spec.md §4.6
// step 3, "a task returning Ok(v) yields Ok(v)"); anything else is the
// "non-tagged value" case and is marshaled and wrapped as Ok(v).
func asOkResult(value any) domain.Result {
	if r, ok := value.(domain.Result); ok {
		return r
	}
	if value == nil {
		return domain.OkResult(nil)
	}
	blob, err := json.Marshal(value)
	if err != nil {
		return domain.ErrResult(fmt.Sprintf("marshaling result: %v", err))
	}
	return domain.OkResult(blob)
}
