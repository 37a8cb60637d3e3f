// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"
	"sync/atomic"

	"github.com/unknowntpo/scylladb/pkg/assert"
)

// globalRingVersion is the process-wide monotonically increasing counter
// every snapshot's version is drawn from, shared by every
// SharedTokenMetadata in the process so that versions remain comparable
// across workers (§4.5/§4.6 of the design this package implements).
var globalRingVersion atomic.Int64

func nextRingVersion() int64 {
	return globalRingVersion.Add(1)
}

// RingSnapshot is an immutable-once-published view of the whole token
// ring: the token-to-endpoint map, the topology index, the three
// in-flight-transition sets, and the pending-range map computed from
// them. It is C5 of the core. Callers never mutate a published snapshot
// in place; see SharedTokenMetadata.MutateTokenMetadata for the
// clone-mutate-publish cycle that produces a new one.
type RingSnapshot[T comparable] struct {
	Partitioner Partitioner[T]
	Ring        *RingIndex[T]
	Topology    *Topology
	Bootstrap   *BootstrapTokens[T]
	Leaving     *LeavingEndpoints
	Replacing   *ReplacingEndpoints
	Pending     *PendingRanges[T]

	version int64
}

// NewRingSnapshot returns an empty snapshot over p, carrying a fresh
// version drawn from the process-wide counter.
func NewRingSnapshot[T comparable](p Partitioner[T]) *RingSnapshot[T] {
	return &RingSnapshot[T]{
		Partitioner: p,
		Ring:        NewRingIndex(p),
		Topology:    NewTopology(),
		Bootstrap:   NewBootstrapTokens[T](),
		Leaving:     NewLeavingEndpoints(),
		Replacing:   NewReplacingEndpoints(),
		Pending:     NewPendingRanges(p),
		version:     nextRingVersion(),
	}
}

// RingVersion returns the snapshot's version, a cursor callers can cache
// to detect "nothing changed" without comparing the snapshot's contents.
func (s *RingSnapshot[T]) RingVersion() int64 {
	return s.version
}

// InvalidateRingVersion draws a fresh version for the snapshot. It must
// be called right after cloning and before any mutation by anyone
// building a snapshot destined for SharedTokenMetadata.publish; later
// calls (RemoveEndpoint makes one) only raise the version further.
func (s *RingSnapshot[T]) InvalidateRingVersion() {
	s.version = nextRingVersion()
}

// CloneAsync deep-copies every field, yielding cooperatively throughout.
// It does not draw a new ring version; callers that intend to publish
// the clone must call InvalidateRingVersion themselves once they are
// sure they will mutate it, matching the original's clone_async/
// clone_gently contract of leaving versioning to the caller.
func (s *RingSnapshot[T]) CloneAsync(ctx context.Context) (*RingSnapshot[T], error) {
	ring, err := s.Ring.Clone(ctx)
	if err != nil {
		return nil, err
	}
	topology, err := s.Topology.Clone(ctx)
	if err != nil {
		return nil, err
	}
	bootstrap, err := s.Bootstrap.Clone(ctx)
	if err != nil {
		return nil, err
	}
	leaving, err := s.Leaving.Clone(ctx)
	if err != nil {
		return nil, err
	}
	replacing, err := s.Replacing.Clone(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.Pending.Clone(ctx)
	if err != nil {
		return nil, err
	}
	return &RingSnapshot[T]{
		Partitioner: s.Partitioner,
		Ring:        ring,
		Topology:    topology,
		Bootstrap:   bootstrap,
		Leaving:     leaving,
		Replacing:   replacing,
		Pending:     pending,
		version:     s.version,
	}, nil
}

// CloneOnlyTokenMap clones the ring index and topology but starts with
// empty transition sets and an empty pending-range map, so the clone can
// be mutated without disturbing the caller's real in-flight state.
// PendingRanges.Rebuild does not use it; it clones the ring and topology
// itself.
func (s *RingSnapshot[T]) CloneOnlyTokenMap(ctx context.Context) (*RingSnapshot[T], error) {
	ring, err := s.Ring.Clone(ctx)
	if err != nil {
		return nil, err
	}
	topology, err := s.Topology.Clone(ctx)
	if err != nil {
		return nil, err
	}
	return &RingSnapshot[T]{
		Partitioner: s.Partitioner,
		Ring:        ring,
		Topology:    topology,
		Bootstrap:   NewBootstrapTokens[T](),
		Leaving:     NewLeavingEndpoints(),
		Replacing:   NewReplacingEndpoints(),
		Pending:     NewPendingRanges(s.Partitioner),
		version:     s.version,
	}, nil
}

// CloneAfterAllLeft is CloneOnlyTokenMap with every currently leaving
// endpoint's tokens additionally removed from the cloned ring, i.e. the
// ring as it will look once every leave in flight has completed.
func (s *RingSnapshot[T]) CloneAfterAllLeft(ctx context.Context) (*RingSnapshot[T], error) {
	clone, err := s.CloneOnlyTokenMap(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range s.Leaving.Endpoints() {
		clone.Ring.RemoveEndpoint(e)
	}
	return clone, nil
}

// RebuildPending recomputes keyspace's pending ranges from the
// snapshot's own ring, topology, and transition sets. It is the
// entry point callers use after changing bootstrap/leaving/replacing
// state, typically from within a SharedTokenMetadata.MutateTokenMetadata
// callback.
func (s *RingSnapshot[T]) RebuildPending(ctx context.Context, keyspace string, strategy ReplicationStrategy[T], dcRack DCRackFunc) error {
	return s.Pending.Rebuild(ctx, keyspace, strategy, dcRack, s.Ring, s.Topology, s.Bootstrap, s.Leaving, s.Replacing)
}

// RemoveEndpoint atomically erases endpoint from every container the
// snapshot owns: its normal and bootstrap tokens, the leaving and
// replacing sets, and the topology. It also invalidates the ring version.
// It is the composite form of remove-endpoint; callers that only need
// to mark an in-flight decommission use Leaving directly instead.
func (s *RingSnapshot[T]) RemoveEndpoint(endpoint Endpoint) {
	s.Ring.RemoveEndpoint(endpoint)
	s.Bootstrap.RemoveEndpoint(endpoint)
	s.Leaving.Remove(endpoint)
	s.Replacing.Remove(endpoint)
	s.Topology.RemoveEndpoint(endpoint)
	s.InvalidateRingVersion()
}

// CheckInvariants verifies, at debug/test time, the properties a
// published snapshot must hold. Production mutation paths return
// ordinary *coderr.CodeError values for caller mistakes; this is the
// assert.Assertf-backed form used by tests that want a loud panic with a
// stack trace rather than a returned error, for catching bugs in the
// core's own callers.
func (s *RingSnapshot[T]) CheckInvariants() {
	for tok, endpoint := range ringTokenOwners(s.Ring) {
		_ = tok
		assert.Assertf(s.Topology.HasEndpoint(endpoint), "ring token owned by %s, which is not in topology", endpoint)
	}
	for _, endpoint := range s.Leaving.Endpoints() {
		assert.Assertf(s.Ring.IsMember(endpoint), "leaving endpoint %s owns no normal token", endpoint)
	}
	for existing := range s.Replacing.Pairs() {
		assert.Assertf(s.Ring.IsMember(existing), "replaced endpoint %s owns no normal token", existing)
	}
}

// ClearGently empties every large container the snapshot owns — the
// token map and sorted-token vector, the bootstrap/leaving/replacing
// sets, the pending-range map, and the topology index — yielding
// cooperatively between each one rather than letting a single giant
// collection drop get collected all at once. It is for a worker
// discarding a superseded snapshot, never for one still published via
// SharedTokenMetadata.
func (s *RingSnapshot[T]) ClearGently(ctx context.Context) error {
	y := newYielder()
	s.Ring.Clear()
	if err := y.tick(ctx); err != nil {
		return err
	}
	s.Bootstrap.Clear()
	if err := y.tick(ctx); err != nil {
		return err
	}
	s.Leaving.Clear()
	if err := y.tick(ctx); err != nil {
		return err
	}
	s.Replacing.Clear()
	if err := y.tick(ctx); err != nil {
		return err
	}
	s.Pending.Clear()
	if err := y.tick(ctx); err != nil {
		return err
	}
	s.Topology.Clear()
	return nil
}

func ringTokenOwners[T comparable](r *RingIndex[T]) map[T]Endpoint {
	out := make(map[T]Endpoint, len(r.tokenToEndpoint))
	for tok, e := range r.tokenToEndpoint {
		out[tok] = e
	}
	return out
}
