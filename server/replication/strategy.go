// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package replication holds reference implementations of the
// locator.ReplicationStrategy interface: SimpleStrategy, which walks the
// ring clockwise from a token and picks the first RF distinct endpoints,
// and NetworkTopologyStrategy, which does the same per datacenter with a
// rack-diversity preference. Either is consulted by server/locator's
// pending-range engine; neither is invoked by it on its own initiative.
package replication

import (
	"context"

	"github.com/unknowntpo/scylladb/pkg/coderr"
	"github.com/unknowntpo/scylladb/server/locator"
)

// ErrNoSuchKeyspace is returned when a strategy is asked about a
// keyspace it has no replication factor configured for.
var ErrNoSuchKeyspace = coderr.NewCodeError(coderr.NotFound, "no replication factor configured for keyspace")

// SimpleStrategy replicates a token to the first RF distinct endpoints
// encountered walking the ring clockwise from that token, ignoring
// datacenter and rack. It is the strategy the core's own tests exercise,
// and the one most of this package's doc examples use.
type SimpleStrategy struct {
	rf map[string]int
}

// NewSimpleStrategy returns a strategy with one replication factor per
// keyspace.
func NewSimpleStrategy(rf map[string]int) *SimpleStrategy {
	cp := make(map[string]int, len(rf))
	for k, v := range rf {
		cp[k] = v
	}
	return &SimpleStrategy{rf: cp}
}

func (s *SimpleStrategy) factor(keyspace string) (int, error) {
	n, ok := s.rf[keyspace]
	if !ok {
		return 0, ErrNoSuchKeyspace.WithCausef("keyspace %q", keyspace)
	}
	return n, nil
}

// NaturalEndpointsFor walks the ring from tok, ascending token order with
// wraparound, collecting distinct endpoints until rf of them have been
// found.
func (s *SimpleStrategy) NaturalEndpointsFor(_ context.Context, keyspace string, ring *locator.RingIndex[uint64], _ *locator.Topology, tok uint64) (map[locator.Endpoint]struct{}, error) {
	rf, err := s.factor(keyspace)
	if err != nil {
		return nil, err
	}
	return naturalEndpointsSimple(ring, tok, rf)
}

// RangesFor returns every primary range owned by endpoint, expanded to
// the full replica set: each of endpoint's primary ranges is also a
// range endpoint replicates as a non-primary owner for up to rf-1
// preceding primary owners. SimpleStrategy approximates this, as the
// original does, by returning the union of the RF-1 primary ranges that
// precede endpoint's own primary ranges on the ring plus endpoint's own.
func (s *SimpleStrategy) RangesFor(_ context.Context, keyspace string, ring *locator.RingIndex[uint64], _ *locator.Topology, endpoint locator.Endpoint) ([]locator.TokenRange[uint64], error) {
	rf, err := s.factor(keyspace)
	if err != nil {
		return nil, err
	}
	return replicaRangesSimple(ring, endpoint, rf)
}

func naturalEndpointsSimple(ring *locator.RingIndex[uint64], tok uint64, rf int) (map[locator.Endpoint]struct{}, error) {
	out := make(map[locator.Endpoint]struct{}, rf)
	first, ok := ring.FirstToken(tok)
	if !ok {
		return out, nil
	}
	sorted := ring.SortedTokens()
	start := indexOf(sorted, first)
	for i := 0; i < len(sorted) && len(out) < rf; i++ {
		t := sorted[(start+i)%len(sorted)]
		e, _ := ring.EndpointFor(t)
		out[e] = struct{}{}
	}
	return out, nil
}

func replicaRangesSimple(ring *locator.RingIndex[uint64], endpoint locator.Endpoint, rf int) ([]locator.TokenRange[uint64], error) {
	var out []locator.TokenRange[uint64]
	sorted := ring.SortedTokens()
	for i, tok := range sorted {
		owner, _ := ring.EndpointFor(tok)
		replicates := false
		for k := 0; k < rf && k < len(sorted); k++ {
			o, _ := ring.EndpointFor(sorted[(i+k)%len(sorted)])
			if o == endpoint {
				replicates = true
				break
			}
		}
		if owner == endpoint || replicates {
			out = append(out, ring.RingRange(tok)...)
		}
	}
	return out, nil
}

func indexOf(sorted []uint64, tok uint64) int {
	for i, t := range sorted {
		if t == tok {
			return i
		}
	}
	return 0
}
