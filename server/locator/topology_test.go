// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTopologyAddOrUpdateHostIDCollision(t *testing.T) {
	re := require.New(t)
	topo := NewTopology()
	a, b := uuid.New(), uuid.New()

	re.NoError(topo.AddOrUpdateHostID("10.0.0.1:7000", a))
	err := topo.AddOrUpdateHostID("10.0.0.1:7000", b)
	re.ErrorIs(err, ErrHostIDCollision)

	err = topo.AddOrUpdateHostID("10.0.0.2:7000", a)
	re.ErrorIs(err, ErrHostIDCollision)
}

func TestTopologyFindByEndpointAndHostID(t *testing.T) {
	re := require.New(t)
	topo := NewTopology()
	id := uuid.New()
	state := StateNormal
	topo.AddOrUpdateLocation("10.0.0.1:7000", Location{Datacenter: "dc1", Rack: "r1"}, &state)
	re.NoError(topo.AddOrUpdateHostID("10.0.0.1:7000", id))

	info, ok := topo.FindByEndpoint("10.0.0.1:7000")
	re.True(ok)
	re.Equal(id, info.HostID)
	re.Equal(StateNormal, info.State)

	info, ok = topo.FindByHostID(id)
	re.True(ok)
	re.Equal(Endpoint("10.0.0.1:7000"), info.Endpoint)

	_, ok = topo.FindByHostID(uuid.New())
	re.False(ok)
}

func TestTopologyRemoveEndpoint(t *testing.T) {
	re := require.New(t)
	topo := NewTopology()
	id := uuid.New()
	topo.AddOrUpdateLocation("10.0.0.1:7000", Location{}, nil)
	re.NoError(topo.AddOrUpdateHostID("10.0.0.1:7000", id))

	topo.RemoveEndpoint("10.0.0.1:7000")
	re.False(topo.HasEndpoint("10.0.0.1:7000"))
	_, ok := topo.FindByHostID(id)
	re.False(ok)
}

func TestTopologyClone(t *testing.T) {
	re := require.New(t)
	topo := NewTopology()
	topo.AddOrUpdateLocation("10.0.0.1:7000", Location{Datacenter: "dc1"}, nil)

	clone, err := topo.Clone(context.Background())
	re.NoError(err)
	clone.RemoveEndpoint("10.0.0.1:7000")
	re.True(topo.HasEndpoint("10.0.0.1:7000"), "mutating the clone must not affect the original")
}
