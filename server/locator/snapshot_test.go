// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingVersionMonotonic(t *testing.T) {
	re := require.New(t)
	snap1 := NewRingSnapshot[uint64](Murmur3Partitioner{})
	snap2 := NewRingSnapshot[uint64](Murmur3Partitioner{})
	re.Less(snap1.RingVersion(), snap2.RingVersion())

	v := snap1.RingVersion()
	snap1.InvalidateRingVersion()
	re.Greater(snap1.RingVersion(), v)
}

func TestCloneAsyncPreservesVersionUntilInvalidated(t *testing.T) {
	re := require.New(t)
	snap := NewRingSnapshot[uint64](Murmur3Partitioner{})
	clone, err := snap.CloneAsync(context.Background())
	re.NoError(err)
	re.Equal(snap.RingVersion(), clone.RingVersion())
}

func TestCloneAsyncIsIndependent(t *testing.T) {
	re := require.New(t)
	snap := NewRingSnapshot[uint64](Murmur3Partitioner{})
	snap.Topology.AddOrUpdateLocation("n1", Location{}, nil)
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n1", []uint64{1}))

	clone, err := snap.CloneAsync(context.Background())
	re.NoError(err)
	clone.Ring.RemoveEndpoint("n1")

	re.True(snap.Ring.IsMember("n1"), "mutating the clone must not affect the original")
	re.False(clone.Ring.IsMember("n1"))
}

func TestCloneAfterAllLeftRemovesLeavingTokens(t *testing.T) {
	re := require.New(t)
	snap := NewRingSnapshot[uint64](Murmur3Partitioner{})
	for _, e := range []Endpoint{"n1", "n2"} {
		snap.Topology.AddOrUpdateLocation(e, Location{}, nil)
	}
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n1", []uint64{1}))
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n2", []uint64{2}))
	snap.Leaving.Add("n2")

	aux, err := snap.CloneAfterAllLeft(context.Background())
	re.NoError(err)
	re.False(aux.Ring.IsMember("n2"))
	re.True(snap.Ring.IsMember("n2"), "the real snapshot must be untouched")
	re.Empty(aux.Leaving.Endpoints(), "the auxiliary snapshot starts with empty transition sets")
}

func TestClearGentlyEmptiesEveryContainer(t *testing.T) {
	re := require.New(t)
	snap := NewRingSnapshot[uint64](Murmur3Partitioner{})
	snap.Topology.AddOrUpdateLocation("n1", Location{}, nil)
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n1", []uint64{1}))
	re.NoError(snap.Bootstrap.Add(snap.Ring, "n2", []uint64{2}))
	snap.Leaving.Add("n1")
	snap.Replacing.Add("n1", "n3")

	re.NoError(snap.ClearGently(context.Background()))

	re.Empty(snap.Ring.SortedTokens())
	re.Empty(snap.Topology.Endpoints())
	re.Empty(snap.Bootstrap.Endpoints())
	re.Empty(snap.Leaving.Endpoints())
	re.Empty(snap.Replacing.Pairs())
}

func TestRemoveEndpointThenReAddRoundTrips(t *testing.T) {
	re := require.New(t)
	snap := NewRingSnapshot[uint64](Murmur3Partitioner{})
	snap.Topology.AddOrUpdateLocation("n1", Location{Datacenter: "dc1", Rack: "r1"}, nil)
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n1", []uint64{1, 2}))
	snap.Leaving.Add("n1")
	snap.Replacing.Add("n1", "n2")
	re.NoError(snap.Bootstrap.Add(snap.Ring, "n1", []uint64{3}))

	before := snap.RingVersion()
	snap.RemoveEndpoint("n1")
	re.Greater(snap.RingVersion(), before)
	re.False(snap.Ring.IsMember("n1"))
	re.False(snap.Topology.HasEndpoint("n1"))
	re.Empty(snap.Bootstrap.TokensOf("n1"))
	re.False(snap.Leaving.Contains("n1"))
	_, replacing := snap.Replacing.ReplacementFor("n1")
	re.False(replacing)

	snap.Topology.AddOrUpdateLocation("n1", Location{Datacenter: "dc1", Rack: "r1"}, nil)
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n1", []uint64{1, 2}))

	re.True(snap.Ring.IsMember("n1"))
	re.Equal([]uint64{1, 2}, snap.Ring.SortedTokens())
	re.False(snap.Leaving.Contains("n1"))
	re.Empty(snap.Bootstrap.TokensOf("n1"))
}

func TestCheckInvariantsCatchesOrphanedToken(t *testing.T) {
	re := require.New(t)
	snap := NewRingSnapshot[uint64](Murmur3Partitioner{})
	snap.Topology.AddOrUpdateLocation("n1", Location{}, nil)
	re.NoError(snap.Ring.UpdateNormalTokens(snap.Topology, "n1", []uint64{1}))

	re.NotPanics(func() { snap.CheckInvariants() })

	snap.Topology.RemoveEndpoint("n1")
	re.Panics(func() { snap.CheckInvariants() })
}
