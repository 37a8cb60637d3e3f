// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseAddressHostID(t *testing.T) {
	re := require.New(t)
	id := uuid.New()
	spec, err := ParseAddress(id.String(), AddressHostID)
	re.NoError(err)
	re.True(spec.HasHost)
	re.Equal(id, spec.HostID)

	_, err = ParseAddress("not-a-uuid", AddressHostID)
	re.ErrorIs(err, ErrAmbiguousAddress)
}

func TestParseAddressEndpoint(t *testing.T) {
	re := require.New(t)
	spec, err := ParseAddress("10.0.0.1:7000", AddressEndpoint)
	re.NoError(err)
	re.True(spec.HasEp)
	re.Equal(Endpoint("10.0.0.1:7000"), spec.Endpoint)
}

func TestParseAddressAuto(t *testing.T) {
	re := require.New(t)
	id := uuid.New()
	spec, err := ParseAddress(id.String(), AddressAuto)
	re.NoError(err)
	re.True(spec.HasHost)

	spec, err = ParseAddress("10.0.0.1:7000", AddressAuto)
	re.NoError(err)
	re.True(spec.HasEp)
}

func TestAddressSpecResolve(t *testing.T) {
	re := require.New(t)
	topo := NewTopology()
	id := uuid.New()
	topo.AddOrUpdateLocation("10.0.0.1:7000", Location{}, nil)
	re.NoError(topo.AddOrUpdateHostID("10.0.0.1:7000", id))

	spec := AddressSpec{HostID: id, HasHost: true}
	re.NoError(spec.Resolve(context.Background(), topo))
	re.Equal(Endpoint("10.0.0.1:7000"), spec.Endpoint)

	spec = AddressSpec{Endpoint: "10.0.0.1:7000", HasEp: true}
	re.NoError(spec.Resolve(context.Background(), topo))
	re.Equal(id, spec.HostID)

	spec = AddressSpec{HostID: uuid.New(), HasHost: true}
	err := spec.Resolve(context.Background(), topo)
	re.ErrorIs(err, ErrUnresolvedAddress)
}

func TestAddressSpecResolveAmbiguous(t *testing.T) {
	re := require.New(t)
	var spec AddressSpec
	err := spec.Resolve(context.Background(), NewTopology())
	re.ErrorIs(err, ErrAmbiguousAddress)
}
