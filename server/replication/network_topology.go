// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package replication

import (
	"context"

	"github.com/unknowntpo/scylladb/server/locator"
)

// NetworkTopologyStrategy replicates a token to rfPerDC[dc] distinct
// endpoints within each configured datacenter, preferring to spread
// replicas across distinct racks within a datacenter before doubling up
// on one. It walks the ring exactly like SimpleStrategy but filters and
// groups candidates by locator.Location along the way.
type NetworkTopologyStrategy struct {
	keyspaceRF map[string]map[string]int // keyspace -> datacenter -> rf
}

// NewNetworkTopologyStrategy returns a strategy with one per-datacenter
// replication factor map per keyspace.
func NewNetworkTopologyStrategy(keyspaceRF map[string]map[string]int) *NetworkTopologyStrategy {
	cp := make(map[string]map[string]int, len(keyspaceRF))
	for ks, rf := range keyspaceRF {
		inner := make(map[string]int, len(rf))
		for dc, n := range rf {
			inner[dc] = n
		}
		cp[ks] = inner
	}
	return &NetworkTopologyStrategy{keyspaceRF: cp}
}

func (s *NetworkTopologyStrategy) rfFor(keyspace string) (map[string]int, error) {
	rf, ok := s.keyspaceRF[keyspace]
	if !ok {
		return nil, ErrNoSuchKeyspace.WithCausef("keyspace %q", keyspace)
	}
	return rf, nil
}

// NaturalEndpointsFor walks the ring once from tok, ascending token
// order with wraparound, and for each datacenter keeps distinct
// endpoints — preferring ones on a rack not yet represented in that
// datacenter — until it has rfPerDC[dc] of them, stopping early once
// every configured datacenter is satisfied. Any datacenter still short
// afterwards is filled from the endpoints passed over for rack reasons,
// in walk order.
func (s *NetworkTopologyStrategy) NaturalEndpointsFor(_ context.Context, keyspace string, ring *locator.RingIndex[uint64], topology *locator.Topology, tok uint64) (map[locator.Endpoint]struct{}, error) {
	rf, err := s.rfFor(keyspace)
	if err != nil {
		return nil, err
	}
	out := make(map[locator.Endpoint]struct{})
	if rf == nil {
		return out, nil
	}

	perDCCount := make(map[string]int, len(rf))
	perDCRacksUsed := make(map[string]map[string]struct{}, len(rf))
	for dc := range rf {
		perDCRacksUsed[dc] = make(map[string]struct{})
	}

	first, ok := ring.FirstToken(tok)
	if !ok {
		return out, nil
	}
	sorted := ring.SortedTokens()
	start := indexOf(sorted, first)

	var skipped []locator.Endpoint
	for i := 0; i < len(sorted); i++ {
		if dcSatisfied(perDCCount, rf) {
			break
		}
		t := sorted[(start+i)%len(sorted)]
		endpoint, _ := ring.EndpointFor(t)
		if _, already := out[endpoint]; already {
			continue
		}
		info, ok := topology.FindByEndpoint(endpoint)
		if !ok {
			continue
		}
		want, tracked := rf[info.Location.Datacenter]
		if !tracked || perDCCount[info.Location.Datacenter] >= want {
			continue
		}
		racksUsed := perDCRacksUsed[info.Location.Datacenter]
		_, rackUsed := racksUsed[info.Location.Rack]
		remainingRacks := want - perDCCount[info.Location.Datacenter]
		if rackUsed && remainingRacks > 0 && len(racksUsed) < want {
			// Prefer a fresh rack when one is still available for this DC;
			// this candidate is skipped on this pass and may be picked up
			// by the second pass below if no fresh rack ever appears.
			skipped = append(skipped, endpoint)
			continue
		}
		out[endpoint] = struct{}{}
		perDCCount[info.Location.Datacenter]++
		racksUsed[info.Location.Rack] = struct{}{}
	}
	for _, endpoint := range skipped {
		if _, already := out[endpoint]; already {
			continue
		}
		info, _ := topology.FindByEndpoint(endpoint)
		if perDCCount[info.Location.Datacenter] >= rf[info.Location.Datacenter] {
			continue
		}
		out[endpoint] = struct{}{}
		perDCCount[info.Location.Datacenter]++
	}
	return out, nil
}

func dcSatisfied(have map[string]int, want map[string]int) bool {
	for dc, n := range want {
		if have[dc] < n {
			return false
		}
	}
	return true
}

// RangesFor returns every range endpoint replicates, by the same
// precede-on-the-ring approximation SimpleStrategy uses, restricted to
// endpoint's own datacenter's replication factor.
func (s *NetworkTopologyStrategy) RangesFor(_ context.Context, keyspace string, ring *locator.RingIndex[uint64], topology *locator.Topology, endpoint locator.Endpoint) ([]locator.TokenRange[uint64], error) {
	info, ok := topology.FindByEndpoint(endpoint)
	if !ok {
		return nil, nil
	}
	rf, err := s.rfFor(keyspace)
	if err != nil {
		return nil, err
	}
	n, ok := rf[info.Location.Datacenter]
	if !ok {
		return nil, nil
	}
	return replicaRangesSimple(ring, endpoint, n)
}
