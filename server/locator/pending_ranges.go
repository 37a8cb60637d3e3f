// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"
)

// ReplicationStrategy is everything the pending-range engine needs from a
// keyspace's replication policy. Implementations live in
// server/replication; the core only ever consumes this interface so it
// never has to know about RF, NetworkTopologyStrategy weighting, etc.
type ReplicationStrategy[T comparable] interface {
	// NaturalEndpointsFor returns the set of endpoints that would own tok
	// under ring for keyspace, ignoring any pending transition.
	NaturalEndpointsFor(ctx context.Context, keyspace string, ring *RingIndex[T], topology *Topology, tok T) (map[Endpoint]struct{}, error)
	// RangesFor returns the token ranges endpoint is the primary or a
	// replica owner of under ring for keyspace.
	RangesFor(ctx context.Context, keyspace string, ring *RingIndex[T], topology *Topology, endpoint Endpoint) ([]TokenRange[T], error)
}

// DCRackFunc supplies the datacenter/rack a bootstrapping endpoint will
// have once it joins, used to pre-populate the auxiliary snapshot's
// topology before the pending-range engine simulates that join. A real
// caller typically backs this by server/membershipwatch's view of the
// join request; it is a plain function here because the core has no
// membership source of its own.
type DCRackFunc func(Endpoint) Location

type pendingEntry[T comparable] struct {
	iv        Interval[T]
	endpoints map[Endpoint]struct{}
}

// PendingRanges is the per-keyspace map from token range to the set of
// endpoints that will additionally own that range once the transitions
// currently in flight (bootstraps, leaves, replaces) complete. It is C4
// of the core.
type PendingRanges[T comparable] struct {
	partitioner Partitioner[T]
	byKeyspace  map[string][]pendingEntry[T]
}

// NewPendingRanges returns an empty pending-range map over p.
func NewPendingRanges[T comparable](p Partitioner[T]) *PendingRanges[T] {
	return &PendingRanges[T]{partitioner: p, byKeyspace: make(map[string][]pendingEntry[T])}
}

// PendingEndpointsFor returns the endpoints that will come to own tok in
// keyspace once in-flight transitions settle, on top of whoever owns it
// today.
func (p *PendingRanges[T]) PendingEndpointsFor(keyspace string, tok T) []Endpoint {
	seen := make(map[Endpoint]struct{})
	for _, e := range p.byKeyspace[keyspace] {
		if !e.iv.Contains(p.partitioner, tok) {
			continue
		}
		for ep := range e.endpoints {
			seen[ep] = struct{}{}
		}
	}
	out := make([]Endpoint, 0, len(seen))
	for ep := range seen {
		out = append(out, ep)
	}
	return out
}

// HasPendingRanges reports whether endpoint owns any pending range in
// keyspace.
func (p *PendingRanges[T]) HasPendingRanges(keyspace string, endpoint Endpoint) bool {
	for _, e := range p.byKeyspace[keyspace] {
		if _, ok := e.endpoints[endpoint]; ok {
			return true
		}
	}
	return false
}

// Clone deep-copies the pending-range map, yielding cooperatively.
func (p *PendingRanges[T]) Clone(ctx context.Context) (*PendingRanges[T], error) {
	out := NewPendingRanges(p.partitioner)
	y := newYielder()
	for ks, entries := range p.byKeyspace {
		cp := make([]pendingEntry[T], len(entries))
		for i, e := range entries {
			endpoints := make(map[Endpoint]struct{}, len(e.endpoints))
			for ep := range e.endpoints {
				endpoints[ep] = struct{}{}
			}
			cp[i] = pendingEntry[T]{iv: e.iv, endpoints: endpoints}
			if err := y.tick(ctx); err != nil {
				return nil, err
			}
		}
		out.byKeyspace[ks] = cp
	}
	return out, nil
}

// Clear empties the pending-range map in place.
func (p *PendingRanges[T]) Clear() {
	p.byKeyspace = make(map[string][]pendingEntry[T])
}

// builder accumulates (interval, endpoint) contributions for one
// keyspace during Rebuild. It unions endpoint sets only for identical
// intervals; overlapping but distinct intervals stay separate entries,
// and PendingEndpointsFor unions their endpoint sets at lookup time.
type builder[T comparable] struct {
	p       Partitioner[T]
	entries []pendingEntry[T]
}

func (b *builder[T]) add(rng TokenRange[T], endpoint Endpoint) {
	for _, iv := range splitWrapping(b.p, RangeToInterval(b.p, rng)) {
		b.merge(iv, endpoint)
	}
}

func (b *builder[T]) merge(iv Interval[T], endpoint Endpoint) {
	for i := range b.entries {
		if b.entries[i].iv == iv {
			b.entries[i].endpoints[endpoint] = struct{}{}
			return
		}
	}
	b.entries = append(b.entries, pendingEntry[T]{iv: iv, endpoints: map[Endpoint]struct{}{endpoint: {}}})
}

// rangeRepresentative returns a concrete token inside rng suitable for a
// single-point natural-endpoints lookup; range.end_or_maximum in the
// algorithm's own terms.
func rangeRepresentative[T comparable](p Partitioner[T], rng TokenRange[T]) T {
	if rng.End == nil {
		return p.Maximum()
	}
	return rng.End.Token
}

// Rebuild recomputes keyspace's pending ranges from scratch as the union
// of three disjoint contributions, each deterministic and independent of
// the others:
//
//  1. Replacements: every range `existing` currently owns becomes a
//     pending range for `replacement` — the replacement inherits the
//     replaced node's ranges verbatim, no recomputation needed.
//  2. Leaves: against an auxiliary "after-all-left" snapshot (the
//     current ring and topology with every leaving endpoint's tokens
//     removed), every range an outgoing node currently owns is checked
//     for which endpoints gain ownership of it once that node is
//     actually gone; those endpoints are pending owners. This
//     deliberately overestimates if several nodes are leaving at once,
//     since each is evaluated against the fully-drained ring rather than
//     the ring with only itself removed — an overestimate is safe here,
//     an underestimate is not.
//  3. Bootstraps: starting from the after-all-left snapshot, each
//     bootstrapping endpoint is, in turn, added to the auxiliary
//     topology as joining with its dc/rack from dcRack, given its
//     claimed tokens as normal tokens, and the ranges it would then own
//     become pending ranges for it. Endpoints are processed in the
//     deterministic order BootstrapTokens.Endpoints returns so that
//     later bootstraps see earlier ones already absorbed into the
//     auxiliary ring — an intentional choice, since the relative order
//     of simultaneous bootstraps is otherwise unspecified by the input.
//
// If bootstrap, leaving, and replacing are all empty, Rebuild installs
// an empty pending-range map for keyspace without doing any work.
func (p *PendingRanges[T]) Rebuild(
	ctx context.Context,
	keyspace string,
	strategy ReplicationStrategy[T],
	dcRack DCRackFunc,
	ring *RingIndex[T],
	topology *Topology,
	bootstrap *BootstrapTokens[T],
	leaving *LeavingEndpoints,
	replacing *ReplacingEndpoints,
) error {
	if len(bootstrap.Endpoints()) == 0 && len(leaving.Endpoints()) == 0 && len(replacing.Pairs()) == 0 {
		delete(p.byKeyspace, keyspace)
		return nil
	}

	part := p.partitioner
	b := &builder[T]{p: part}
	y := newYielder()

	auxRing, auxTopology, err := cloneAfterAllLeft(ctx, ring, topology, leaving)
	if err != nil {
		return err
	}

	for existing, replacement := range replacing.Pairs() {
		ranges, err := strategy.RangesFor(ctx, keyspace, ring, topology, existing)
		if err != nil {
			return err
		}
		for _, rng := range ranges {
			b.add(rng, replacement)
			if err := y.tick(ctx); err != nil {
				return err
			}
		}
	}

	for _, endpoint := range leaving.Endpoints() {
		ranges, err := strategy.RangesFor(ctx, keyspace, ring, topology, endpoint)
		if err != nil {
			return err
		}
		for _, rng := range ranges {
			rep := rangeRepresentative(part, rng)
			before, err := strategy.NaturalEndpointsFor(ctx, keyspace, ring, topology, rep)
			if err != nil {
				return err
			}
			after, err := strategy.NaturalEndpointsFor(ctx, keyspace, auxRing, auxTopology, rep)
			if err != nil {
				return err
			}
			for owner := range after {
				if _, hadIt := before[owner]; hadIt {
					continue
				}
				b.add(rng, owner)
			}
			if err := y.tick(ctx); err != nil {
				return err
			}
		}
	}

	for _, endpoint := range bootstrap.Endpoints() {
		loc := dcRack(endpoint)
		state := StateJoining
		auxTopology.AddOrUpdateLocation(endpoint, loc, &state)
		tokens := bootstrap.TokensOf(endpoint)
		if err := auxRing.UpdateNormalTokens(auxTopology, endpoint, tokens); err != nil {
			return err
		}
		ranges, err := strategy.RangesFor(ctx, keyspace, auxRing, auxTopology, endpoint)
		if err != nil {
			return err
		}
		for _, rng := range ranges {
			b.add(rng, endpoint)
			if err := y.tick(ctx); err != nil {
				return err
			}
		}
	}

	p.byKeyspace[keyspace] = b.entries
	return nil
}

// cloneAfterAllLeft clones ring and topology and removes every leaving
// endpoint's tokens from the clone, the auxiliary snapshot Rebuild's
// leave and bootstrap phases both build on.
func cloneAfterAllLeft[T comparable](ctx context.Context, ring *RingIndex[T], topology *Topology, leaving *LeavingEndpoints) (*RingIndex[T], *Topology, error) {
	ringClone, err := ring.Clone(ctx)
	if err != nil {
		return nil, nil, err
	}
	topologyClone, err := topology.Clone(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range leaving.Endpoints() {
		ringClone.RemoveEndpoint(e)
	}
	return ringClone, topologyClone, nil
}
