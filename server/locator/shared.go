// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// SharedTokenMetadata is the per-worker publisher described at C6: an
// atomic pointer to the currently published RingSnapshot, guarded for
// writers by an exclusive lock so concurrent mutations serialize instead
// of racing to clone the same base snapshot. Readers never take the
// lock; Load is always a single atomic read.
type SharedTokenMetadata[T comparable] struct {
	mu      sync.Mutex
	current atomic.Pointer[RingSnapshot[T]]
}

// NewSharedTokenMetadata returns a publisher seeded with initial.
func NewSharedTokenMetadata[T comparable](initial *RingSnapshot[T]) *SharedTokenMetadata[T] {
	s := &SharedTokenMetadata[T]{}
	s.current.Store(initial)
	return s
}

// Load returns the currently published snapshot. It never blocks on a
// concurrent mutation.
func (s *SharedTokenMetadata[T]) Load() *RingSnapshot[T] {
	return s.current.Load()
}

// MutateTokenMetadata runs the canonical clone-mutate-publish cycle:
// acquire the exclusive lock, clone the currently published snapshot,
// draw it a fresh ring version, run f against the clone, and publish the
// result — but only if f returns nil. If f fails, the clone is discarded
// and the currently published snapshot is untouched.
func (s *SharedTokenMetadata[T]) MutateTokenMetadata(ctx context.Context, f func(*RingSnapshot[T]) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone, err := s.Load().CloneAsync(ctx)
	if err != nil {
		return err
	}
	clone.InvalidateRingVersion()
	if err := f(clone); err != nil {
		return err
	}
	return s.publish(clone)
}

// publish installs next as the currently published snapshot. It refuses
// any next whose version does not strictly exceed the version of the
// snapshot it would replace; that can only happen from a caller bug
// (racing InvalidateRingVersion calls against a stale base), so it is
// reported as an internal error rather than silently accepted.
func (s *SharedTokenMetadata[T]) publish(next *RingSnapshot[T]) error {
	if cur := s.current.Load(); cur != nil && next.RingVersion() <= cur.RingVersion() {
		return ErrNonIncreasingRingVersion.WithCausef("current=%d next=%d", cur.RingVersion(), next.RingVersion())
	}
	s.current.Store(next)
	return nil
}

// WorkerGroup holds one SharedTokenMetadata per cooperative-scheduler
// worker (shard) and implements the cross-worker mutation protocol.
type WorkerGroup[T comparable] struct {
	workers []*SharedTokenMetadata[T]
}

// NewWorkerGroup returns a group over the given per-worker publishers,
// in worker-index order; workers[0] is the designated worker that runs
// the mutation closure.
func NewWorkerGroup[T comparable](workers []*SharedTokenMetadata[T]) *WorkerGroup[T] {
	return &WorkerGroup[T]{workers: workers}
}

// MutateOnAllShards runs f exactly once, on the designated worker's
// clone of its currently published snapshot, then fans the mutated
// result out as an independent clone to every other worker. No worker's
// new snapshot is installed until every worker's clone has been
// produced successfully: a clone failure on worker 3 leaves workers 0-2
// (and every other worker) still serving their previous snapshot, never
// a mix of old and new.
func (g *WorkerGroup[T]) MutateOnAllShards(ctx context.Context, f func(*RingSnapshot[T]) error) error {
	if len(g.workers) == 0 {
		return nil
	}
	base := g.workers[0]
	base.mu.Lock()
	defer base.mu.Unlock()

	mutated, err := base.Load().CloneAsync(ctx)
	if err != nil {
		return err
	}
	mutated.InvalidateRingVersion()
	if err := f(mutated); err != nil {
		return err
	}

	clones := make([]*RingSnapshot[T], len(g.workers))
	clones[0] = mutated

	gr, gctx := errgroup.WithContext(ctx)
	for i := 1; i < len(g.workers); i++ {
		i := i
		gr.Go(func() error {
			c, cerr := mutated.CloneAsync(gctx)
			if cerr != nil {
				return cerr
			}
			clones[i] = c
			return nil
		})
	}
	if err := gr.Wait(); err != nil {
		return err
	}

	for i, w := range g.workers {
		if i == 0 {
			if err := base.publish(clones[0]); err != nil {
				return err
			}
			continue
		}
		w.mu.Lock()
		err := w.publish(clones[i])
		w.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}
