// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.
// Ring walk refer from server/hash.ConsistentHashRing's sorted-slice plus
// sort.Search idiom, generalized from a fixed-replica hash ring to an
// arbitrary set of normal token owners.

package locator

import (
	"context"
	"sort"
)

// RingIndex is the token-to-endpoint map together with the sorted token
// vector that makes ring-local queries (predecessor, primary range,
// first-token-at-or-after) a binary search instead of a linear scan. It
// is C2 of the core.
type RingIndex[T comparable] struct {
	partitioner Partitioner[T]
	tokenToEndpoint map[T]Endpoint
	sorted          []T
	// normalTokenOwners is the set of endpoints with at least one normal
	// token, rebuilt by rescan whenever the token map changes so it never
	// drifts out of sync (see updateNormalTokenOwners).
	normalTokenOwners map[Endpoint]struct{}
}

// NewRingIndex returns an empty ring index over p.
func NewRingIndex[T comparable](p Partitioner[T]) *RingIndex[T] {
	return &RingIndex[T]{
		partitioner:       p,
		tokenToEndpoint:   make(map[T]Endpoint),
		normalTokenOwners: make(map[Endpoint]struct{}),
	}
}

func (r *RingIndex[T]) insertSorted(tok T) {
	i := sort.Search(len(r.sorted), func(i int) bool { return !less(r.partitioner, r.sorted[i], tok) })
	if i < len(r.sorted) && equal(r.partitioner, r.sorted[i], tok) {
		return
	}
	r.sorted = append(r.sorted, tok)
	copy(r.sorted[i+1:], r.sorted[i:])
	r.sorted[i] = tok
}

func (r *RingIndex[T]) removeSorted(tok T) {
	i := sort.Search(len(r.sorted), func(i int) bool { return !less(r.partitioner, r.sorted[i], tok) })
	if i < len(r.sorted) && equal(r.partitioner, r.sorted[i], tok) {
		r.sorted = append(r.sorted[:i], r.sorted[i+1:]...)
	}
}

// UpdateNormalTokens assigns tokens to endpoint, replacing any previous
// owner of each token and dropping any token endpoint held that is no
// longer in the set. endpoint must already be known to topology;
// otherwise ErrEndpointNotInTopology is returned and nothing changes.
func (r *RingIndex[T]) UpdateNormalTokens(topology *Topology, endpoint Endpoint, tokens []T) error {
	if !topology.HasEndpoint(endpoint) {
		return ErrEndpointNotInTopology.WithCausef("endpoint %s", endpoint)
	}

	keep := make(map[T]struct{}, len(tokens))
	for _, tok := range tokens {
		keep[tok] = struct{}{}
	}

	// Phase 1: erase every token currently owned by endpoint that is not
	// in the new set.
	for tok, owner := range r.tokenToEndpoint {
		if owner != endpoint {
			continue
		}
		if _, ok := keep[tok]; ok {
			continue
		}
		delete(r.tokenToEndpoint, tok)
		r.removeSorted(tok)
	}

	// Phase 2: insert the new tokens, reassigning ownership of any that
	// were already held by a different endpoint.
	for _, tok := range tokens {
		if _, ok := r.tokenToEndpoint[tok]; !ok {
			r.insertSorted(tok)
		}
		r.tokenToEndpoint[tok] = endpoint
	}
	r.updateNormalTokenOwners()
	return nil
}

// RemoveEndpoint drops every token currently owned by endpoint.
func (r *RingIndex[T]) RemoveEndpoint(endpoint Endpoint) {
	for tok, owner := range r.tokenToEndpoint {
		if owner == endpoint {
			delete(r.tokenToEndpoint, tok)
			r.removeSorted(tok)
		}
	}
	r.updateNormalTokenOwners()
}

// updateNormalTokenOwners does a full rescan of token_to_endpoint rather
// than incrementally tracking owner refcounts, the same tradeoff the
// original token_metadata_impl::update_normal_token_owners makes: it is
// O(ring size) but never drifts out of sync with ad hoc increment/
// decrement bookkeeping.
func (r *RingIndex[T]) updateNormalTokenOwners() {
	owners := make(map[Endpoint]struct{}, len(r.normalTokenOwners))
	for _, e := range r.tokenToEndpoint {
		owners[e] = struct{}{}
	}
	r.normalTokenOwners = owners
}

// IsMember reports whether endpoint owns at least one normal token.
func (r *RingIndex[T]) IsMember(endpoint Endpoint) bool {
	_, ok := r.normalTokenOwners[endpoint]
	return ok
}

// EndpointFor returns the owner of tok, if any.
func (r *RingIndex[T]) EndpointFor(tok T) (Endpoint, bool) {
	e, ok := r.tokenToEndpoint[tok]
	return e, ok
}

// SortedTokens returns the current tokens in ascending order. Callers
// must not mutate the returned slice.
func (r *RingIndex[T]) SortedTokens() []T {
	return r.sorted
}

// FirstToken returns the first assigned token at or after tok, wrapping
// to the smallest token if tok sorts after every assigned token. It
// returns ok=false if the ring has no tokens at all.
func (r *RingIndex[T]) FirstToken(tok T) (T, bool) {
	if len(r.sorted) == 0 {
		var zero T
		return zero, false
	}
	i := sort.Search(len(r.sorted), func(i int) bool { return !less(r.partitioner, r.sorted[i], tok) })
	if i == len(r.sorted) {
		i = 0
	}
	return r.sorted[i], true
}

// Predecessor returns the assigned token immediately preceding tok on
// the ring, wrapping from the first assigned token to the last. tok
// itself need not be an assigned token.
func (r *RingIndex[T]) Predecessor(tok T) (T, bool) {
	if len(r.sorted) == 0 {
		var zero T
		return zero, false
	}
	i := sort.Search(len(r.sorted), func(i int) bool { return !less(r.partitioner, r.sorted[i], tok) })
	i--
	if i < 0 {
		i = len(r.sorted) - 1
	}
	return r.sorted[i], true
}

// RingRange returns the half-open range (predecessor(right), right] for
// an assigned token right, expanded into two non-wrapping ranges if it
// wraps past the top of the ring.
func (r *RingIndex[T]) RingRange(right T) []TokenRange[T] {
	pred, ok := r.Predecessor(right)
	if !ok {
		return nil
	}
	rng := OpenClosed(pred, right)
	iv := RangeToInterval(r.partitioner, rng)
	out := make([]TokenRange[T], 0, 2)
	for _, part := range splitWrapping(r.partitioner, iv) {
		out = append(out, part.ToRange())
	}
	return out
}

// RingRangeFromBound is RingRange generalized to a caller-supplied left
// bound rather than always using right's predecessor: an exclusive left
// drops the left token itself from the returned range, an inclusive left
// keeps it. With left == nil this is exactly RingRange(right).
func (r *RingIndex[T]) RingRangeFromBound(left *Bound[T], right T) []TokenRange[T] {
	if left == nil {
		return r.RingRange(right)
	}
	rng := TokenRange[T]{Start: left, End: &Bound[T]{Token: right, Inclusive: true}}
	iv := RangeToInterval(r.partitioner, rng)
	out := make([]TokenRange[T], 0, 2)
	for _, part := range splitWrapping(r.partitioner, iv) {
		out = append(out, part.ToRange())
	}
	return out
}

// PrimaryRangeFor is PrimaryRangesFor's single-token convenience form:
// the primary range for tok alone, or nil if tok is not assigned.
func (r *RingIndex[T]) PrimaryRangeFor(tok T) []TokenRange[T] {
	if _, ok := r.tokenToEndpoint[tok]; !ok {
		return nil
	}
	return r.RingRange(tok)
}

// PrimaryRangesFor returns, for every assigned token, the primary range
// it is responsible for (i.e. RingRange of that token), restricted to
// tokens owned by endpoint.
func (r *RingIndex[T]) PrimaryRangesFor(endpoint Endpoint) []TokenRange[T] {
	var out []TokenRange[T]
	for _, tok := range r.sorted {
		if r.tokenToEndpoint[tok] != endpoint {
			continue
		}
		out = append(out, r.RingRange(tok)...)
	}
	return out
}

// Clear empties the token map and sorted-token vector in place.
func (r *RingIndex[T]) Clear() {
	r.tokenToEndpoint = make(map[T]Endpoint)
	r.sorted = nil
	r.normalTokenOwners = make(map[Endpoint]struct{})
}

// Clone deep-copies the ring index, yielding cooperatively.
func (r *RingIndex[T]) Clone(ctx context.Context) (*RingIndex[T], error) {
	out := NewRingIndex(r.partitioner)
	y := newYielder()
	out.sorted = make([]T, len(r.sorted))
	copy(out.sorted, r.sorted)
	for tok, e := range r.tokenToEndpoint {
		out.tokenToEndpoint[tok] = e
		if err := y.tick(ctx); err != nil {
			return nil, err
		}
	}
	for e := range r.normalTokenOwners {
		out.normalTokenOwners[e] = struct{}{}
		if err := y.tick(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}
