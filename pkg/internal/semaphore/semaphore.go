// Package semaphore is a bounded-concurrency gate built from a buffered
// channel, used by pkg/infra's per-connector dispatch and pkg/compiler's
// build pool (spec.md §5). Documented in DESIGN.md as the one place we
// didn't reach for a third-party library: the pack's own
// bounded-concurrency code is hand-rolled at every site, never
// golang.org/x/sync/{errgroup,semaphore}.
package semaphore

import "context"

type Semaphore struct {
	tokens chan struct{}
}

func New(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{tokens: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) Release() {
	<-s.tokens
}
