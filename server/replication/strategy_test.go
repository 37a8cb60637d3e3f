// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package replication_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unknowntpo/scylladb/server/locator"
	"github.com/unknowntpo/scylladb/server/replication"
)

func ring3(t *testing.T) (*locator.Topology, *locator.RingIndex[uint64]) {
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

func TestSimpleStrategyNaturalEndpointsRF2(t *testing.T) {
	re := require.New(t)
	topo, ring := ring3(t)
	s := replication.NewSimpleStrategy(map[string]int{"ks": 2})

	eps, err := s.NaturalEndpointsFor(context.Background(), "ks", ring, topo, 150)
	re.NoError(err)
	re.Len(eps, 2)
	re.Contains(eps, locator.Endpoint("n2"))
	re.Contains(eps, locator.Endpoint("n3"))
}

func TestSimpleStrategyUnknownKeyspace(t *testing.T) {
	re := require.New(t)
	topo, ring := ring3(t)
	s := replication.NewSimpleStrategy(map[string]int{"ks": 1})
	_, err := s.NaturalEndpointsFor(context.Background(), "missing", ring, topo, 150)
	re.ErrorIs(err, replication.ErrNoSuchKeyspace)
}

func TestNetworkTopologyStrategyPerDC(t *testing.T) {
	re := require.New(t)
	topo := locator.NewTopology()
	ring := locator.NewRingIndex[uint64](locator.Murmur3Partitioner{})
	topo.AddOrUpdateLocation("dc1-a", locator.Location{Datacenter: "dc1", Rack: "r1"}, nil)
	topo.AddOrUpdateLocation("dc1-b", locator.Location{Datacenter: "dc1", Rack: "r2"}, nil)
	topo.AddOrUpdateLocation("dc2-a", locator.Location{Datacenter: "dc2", Rack: "r1"}, nil)
	require.NoError(t, ring.UpdateNormalTokens(topo, "dc1-a", []uint64{100}))
	require.NoError(t, ring.UpdateNormalTokens(topo, "dc1-b", []uint64{200}))
	require.NoError(t, ring.UpdateNormalTokens(topo, "dc2-a", []uint64{300}))

	s := replication.NewNetworkTopologyStrategy(map[string]map[string]int{
		"ks": {"dc1": 2, "dc2": 1},
	})

	eps, err := s.NaturalEndpointsFor(context.Background(), "ks", ring, topo, 50)
	re.NoError(err)
	re.Len(eps, 3)
	re.Contains(eps, locator.Endpoint("dc1-a"))
	re.Contains(eps, locator.Endpoint("dc1-b"))
	re.Contains(eps, locator.Endpoint("dc2-a"))
}
