// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import "github.com/unknowntpo/scylladb/pkg/coderr"

// Sentinels returned by the core. Callers compare against these with
// coderr.Is / coderr.EqualsByValue rather than string-matching Error().
var (
	// ErrHostIDCollision is returned when add-or-update-host-id would bind a
	// host-id or endpoint that is already bound to a different peer.
	ErrHostIDCollision = coderr.NewCodeError(coderr.Internal, "host-id already bound to a different endpoint")

	// ErrEndpointNotInTopology is returned by operations that require an
	// endpoint to already be known to the topology index.
	ErrEndpointNotInTopology = coderr.NewCodeError(coderr.Internal, "endpoint not present in topology")

	// ErrTokenAlreadyOwned is returned by bootstrap-token bookkeeping when a
	// token is already claimed by a different endpoint.
	ErrTokenAlreadyOwned = coderr.NewCodeError(coderr.AlreadyExists, "token already owned by a different endpoint")

	// ErrAmbiguousAddress is returned by ParseAddress when the input matches
	// neither a host-id nor an endpoint shape under the requested tag.
	ErrAmbiguousAddress = coderr.NewCodeError(coderr.InvalidParams, "address is neither a valid host-id nor a valid endpoint")

	// ErrUnresolvedAddress is returned by AddressSpec.Resolve when the half
	// of the spec that was supplied cannot be found in the topology.
	ErrUnresolvedAddress = coderr.NewCodeError(coderr.NotFound, "address does not resolve against the current topology")

	// ErrNonIncreasingRingVersion is an internal error: the publisher refused
	// to install a snapshot whose ring version did not strictly increase
	// relative to the snapshot it would replace.
	ErrNonIncreasingRingVersion = coderr.NewCodeError(coderr.Internal, "refusing to publish a non-increasing ring version")

	// ErrNoReplicationFactor names the case of a keyspace with no configured
	// replication factor. Nothing in this module returns it: the strategies
	// in server/replication report that case with their own ErrNoSuchKeyspace.
	ErrNoReplicationFactor = coderr.NewCodeError(coderr.NotFound, "no replication factor configured for keyspace")
)
