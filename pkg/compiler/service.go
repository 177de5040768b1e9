// Package compiler implements the compilation service (spec.md §4.3):
// claim pending compilation rows, build a tagged image per row, write
// success/failure back. Parallelism across compilations is permitted;
// per-row work is serialized by the store's compare-and-set claim.
package compiler

import (
	"context"
	"time"

	"github.com/netunicorn/netunicorn/pkg/compiler/schedule"
	"github.com/netunicorn/netunicorn/pkg/domain"
	"github.com/netunicorn/netunicorn/pkg/internal/semaphore"
	"github.com/netunicorn/netunicorn/pkg/loop"
	"github.com/netunicorn/netunicorn/pkg/store"
)

type Service struct {
	store        store.Interface
	builder      *Builder
	sem          *semaphore.Semaphore
	claimBatch   int
	pollInterval time.Duration
}

func New(db store.Interface, builder *Builder, maxConcurrentBuilds, claimBatch int, pollInterval time.Duration) *Service {
	if claimBatch <= 0 {
		claimBatch = maxConcurrentBuilds
	}
	return &Service{
		store:        db,
		builder:      builder,
		sem:          semaphore.New(maxConcurrentBuilds),
		claimBatch:   claimBatch,
		pollInterval: pollInterval,
	}
}

// Run polls store.Compilations().ClaimPending until ctx is cancelled,
// dispatching each claimed batch through schedule.Order and a bounded
// worker pool so at most maxConcurrentBuilds builds run at once.
func (s *Service) Run(ctx context.Context) error {
	_, err := loop.Start(ctx, struct{}{}, func(ctx context.Context, _ struct{}) (struct{}, loop.Next) {
		claimed, err := s.store.Compilations().ClaimPending(ctx, s.claimBatch)
		if err != nil {
			return struct{}{}, loop.Break(err)
		}
		if len(claimed) == 0 {
			return struct{}{}, loop.Continue(s.pollInterval)
		}

		for _, c := range schedule.Order(claimed) {
			c := c
			if err := s.sem.Acquire(ctx); err != nil {
				return struct{}{}, loop.Break(err)
			}
			go func() {
				defer s.sem.Release()
				s.buildOne(ctx, c)
			}()
		}
		return struct{}{}, loop.Continue(0)
	})
	return err
}

func (s *Service) buildOne(ctx context.Context, c domain.Compilation) {
	image, log, err := s.builder.Build(c)
	if err != nil {
		_ = s.store.Compilations().SetResult(ctx, c.ExperimentID, c.CompilationID, domain.CompilationFailure, err.Error(), "")
		return
	}
	_ = s.store.Compilations().SetResult(ctx, c.ExperimentID, c.CompilationID, domain.CompilationSuccess, log, image)
}
