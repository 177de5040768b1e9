package heartbeat_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/executor/heartbeat"
)

type countingPoster struct {
	calls  int32
	lastFn func(domain.ExecutorState)
}

func (p *countingPoster) Heartbeat(_ context.Context, state domain.ExecutorState) error {
	atomic.AddInt32(&p.calls, 1)
	if p.lastFn != nil {
		p.lastFn(state)
	}
	return nil
}

func TestStartPostsRepeatedly(t *testing.T) {
	poster := &countingPoster{}
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	heartbeat.Start(ctx, poster, 20*time.Millisecond, heartbeat.State{
		Current: func() domain.ExecutorState { return domain.ExecutorExecuting },
	})

	if atomic.LoadInt32(&poster.calls) < 2 {
		t.Errorf("expected multiple heartbeat posts, got %d", poster.calls)
	}
}

func TestStartReportsCurrentState(t *testing.T) {
	var lastSeen domain.ExecutorState
	poster := &countingPoster{lastFn: func(s domain.ExecutorState) { lastSeen = s }}

	current := domain.ExecutorLoading
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	heartbeat.Start(ctx, poster, 10*time.Millisecond, heartbeat.State{
		Current: func() domain.ExecutorState { return current },
	})

	if lastSeen != domain.ExecutorLoading {
		t.Errorf("expected last reported state %q, got %q", domain.ExecutorLoading, lastSeen)
	}
}
