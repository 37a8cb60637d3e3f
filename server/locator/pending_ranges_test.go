// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unknowntpo/scylladb/server/locator"
	"github.com/unknowntpo/scylladb/server/replication"
)

const keyspace = "ks"

func threeNodeFixture(t *testing.T) (*locator.Topology, *locator.RingIndex[uint64]) {
	topo := locator.NewTopology()
	ring := locator.NewRingIndex[uint64](locator.Murmur3Partitioner{})
	for _, e := range []locator.Endpoint{"n1", "n2", "n3"} {
		topo.AddOrUpdateLocation(e, locator.Location{Datacenter: "dc1", Rack: "r1"}, nil)
	}
	require.NoError(t, ring.UpdateNormalTokens(topo, "n1", []uint64{100}))
	require.NoError(t, ring.UpdateNormalTokens(topo, "n2", []uint64{200}))
	require.NoError(t, ring.UpdateNormalTokens(topo, "n3", []uint64{300}))
	return topo, ring
}

func noDCRack(locator.Endpoint) locator.Location { return locator.Location{} }

func TestPendingRangesFastPathNoTransitions(t *testing.T) {
	re := require.New(t)
	topo, ring := threeNodeFixture(t)
	strategy := replication.NewSimpleStrategy(map[string]int{keyspace: 1})
	p := locator.NewPendingRanges[uint64](locator.Murmur3Partitioner{})

	err := p.Rebuild(context.Background(), keyspace, strategy, noDCRack, ring, topo,
		locator.NewBootstrapTokens[uint64](), locator.NewLeavingEndpoints(), locator.NewReplacingEndpoints())
	re.NoError(err)
	re.False(p.HasPendingRanges(keyspace, "n1"))
	re.Empty(p.PendingEndpointsFor(keyspace, 150))
}

func TestPendingRangesBootstrap(t *testing.T) {
	re := require.New(t)
	topo, ring := threeNodeFixture(t)
	strategy := replication.NewSimpleStrategy(map[string]int{keyspace: 1})
	p := locator.NewPendingRanges[uint64](locator.Murmur3Partitioner{})

	bootstrap := locator.NewBootstrapTokens[uint64]()
	re.NoError(bootstrap.Add(ring, "n4", []uint64{150}))

	err := p.Rebuild(context.Background(), keyspace, strategy, noDCRack, ring, topo,
		bootstrap, locator.NewLeavingEndpoints(), locator.NewReplacingEndpoints())
	re.NoError(err)

	re.True(p.HasPendingRanges(keyspace, "n4"))
	pending := p.PendingEndpointsFor(keyspace, 150)
	re.Contains(pending, locator.Endpoint("n4"))
}

func TestPendingRangesLeave(t *testing.T) {
	re := require.New(t)
	topo, ring := threeNodeFixture(t)
	strategy := replication.NewSimpleStrategy(map[string]int{keyspace: 1})
	p := locator.NewPendingRanges[uint64](locator.Murmur3Partitioner{})

	leaving := locator.NewLeavingEndpoints()
	leaving.Add("n2")

	err := p.Rebuild(context.Background(), keyspace, strategy, noDCRack, ring, topo,
		locator.NewBootstrapTokens[uint64](), leaving, locator.NewReplacingEndpoints())
	re.NoError(err)

	// n2's primary range (100, 200] is taken over by n3 once n2 is gone
	// (RF=1, wraparound-free walk): n3 should gain a pending range that
	// covers token 150.
	pending := p.PendingEndpointsFor(keyspace, 150)
	re.Contains(pending, locator.Endpoint("n3"))
}

func TestPendingRangesReplaceInheritsVerbatim(t *testing.T) {
	re := require.New(t)
	topo, ring := threeNodeFixture(t)
	strategy := replication.NewSimpleStrategy(map[string]int{keyspace: 1})
	p := locator.NewPendingRanges[uint64](locator.Murmur3Partitioner{})

	replacing := locator.NewReplacingEndpoints()
	replacing.Add("n2", "n2-replacement")

	err := p.Rebuild(context.Background(), keyspace, strategy, noDCRack, ring, topo,
		locator.NewBootstrapTokens[uint64](), locator.NewLeavingEndpoints(), replacing)
	re.NoError(err)

	re.True(p.HasPendingRanges(keyspace, "n2-replacement"))
	pending := p.PendingEndpointsFor(keyspace, 150)
	re.Contains(pending, locator.Endpoint("n2-replacement"),
		"a replacement inherits the replaced node's ranges verbatim, with no leave/bootstrap recomputation")
}

func TestPendingRangesClone(t *testing.T) {
	re := require.New(t)
	topo, ring := threeNodeFixture(t)
	strategy := replication.NewSimpleStrategy(map[string]int{keyspace: 1})
	p := locator.NewPendingRanges[uint64](locator.Murmur3Partitioner{})

	bootstrap := locator.NewBootstrapTokens[uint64]()
	re.NoError(bootstrap.Add(ring, "n4", []uint64{150}))
	re.NoError(p.Rebuild(context.Background(), keyspace, strategy, noDCRack, ring, topo,
		bootstrap, locator.NewLeavingEndpoints(), locator.NewReplacingEndpoints()))

	clone, err := p.Clone(context.Background())
	re.NoError(err)
	re.True(clone.HasPendingRanges(keyspace, "n4"))
}
