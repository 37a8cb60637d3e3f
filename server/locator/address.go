// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"

	"github.com/google/uuid"
)

// AddressTag tells ParseAddress which shape of address an input string
// must be parsed as.
type AddressTag int

const (
	// AddressAuto tries a host-id parse first, falling back to treating
	// the input as an endpoint.
	AddressAuto AddressTag = iota
	AddressHostID
	AddressEndpoint
)

// AddressSpec names a node by whichever half (host-id, endpoint, or
// both) the caller supplied or this package was able to resolve. It is
// C7 of the core: the common address-parsing surface every operation
// that takes a node argument from outside the process uses.
type AddressSpec struct {
	HostID   HostID
	HasHost  bool
	Endpoint Endpoint
	HasEp    bool
}

// ParseAddress parses raw under tag. AddressHostID requires raw to parse
// as a UUID; AddressEndpoint accepts raw as-is; AddressAuto tries the
// UUID parse first and falls back to treating raw as an endpoint
// literal. It never consults a Topology, so it cannot fail on an
// unknown node — only on a malformed host-id under AddressHostID.
func ParseAddress(raw string, tag AddressTag) (AddressSpec, error) {
	switch tag {
	case AddressHostID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return AddressSpec{}, ErrAmbiguousAddress.WithCausef("%q is not a valid host-id: %v", raw, err)
		}
		return AddressSpec{HostID: id, HasHost: true}, nil
	case AddressEndpoint:
		return AddressSpec{Endpoint: Endpoint(raw), HasEp: true}, nil
	default:
		if id, err := uuid.Parse(raw); err == nil {
			return AddressSpec{HostID: id, HasHost: true}, nil
		}
		return AddressSpec{Endpoint: Endpoint(raw), HasEp: true}, nil
	}
}

// Resolve fills in whichever half of the spec is missing by looking the
// supplied half up in topology, returning ErrUnresolvedAddress if the
// supplied half is not known to it. Resolve on a spec that already has
// both halves is a no-op.
func (a *AddressSpec) Resolve(_ context.Context, topology *Topology) error {
	switch {
	case a.HasHost && a.HasEp:
		return nil
	case a.HasHost:
		info, ok := topology.FindByHostID(a.HostID)
		if !ok {
			return ErrUnresolvedAddress.WithCausef("host-id %s", a.HostID)
		}
		a.Endpoint = info.Endpoint
		a.HasEp = true
		return nil
	case a.HasEp:
		info, ok := topology.FindByEndpoint(a.Endpoint)
		if !ok || info.HostID == uuid.Nil {
			return ErrUnresolvedAddress.WithCausef("endpoint %s", a.Endpoint)
		}
		a.HostID = info.HostID
		a.HasHost = true
		return nil
	default:
		return ErrAmbiguousAddress
	}
}
