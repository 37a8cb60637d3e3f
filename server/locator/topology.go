// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import (
	"context"

	"github.com/google/uuid"

	"github.com/unknowntpo/scylladb/pkg/log"
	"go.uber.org/zap"
)

// HostID is the cluster-lifetime-unique identifier of a node, stable
// across address changes. It is always a UUID on the wire (see
// ParseAddress), so it is aliased rather than wrapped.
type HostID = uuid.UUID

// NodeState is the lifecycle state of a node as seen by the ring. It is
// orthogonal to membership (alive/dead), which this package does not
// track; a caller such as server/membershipwatch is expected to retire a
// dead node's state via Topology.RemoveEndpoint once it decides the node
// is gone for good.
type NodeState int

const (
	// StateUnknown is the zero value: a node has never had a state set.
	StateUnknown NodeState = iota
	StateJoining
	StateNormal
	StateLeaving
	StateReplacing
	StateLeft
)

func (s NodeState) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateNormal:
		return "normal"
	case StateLeaving:
		return "leaving"
	case StateReplacing:
		return "replacing"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Location is the datacenter/rack pair a replication strategy groups
// endpoints by.
type Location struct {
	Datacenter string
	Rack       string
}

// NodeInfo bundles everything the topology index knows about one
// endpoint. HostID is the zero uuid.UUID when no host-id has been bound.
type NodeInfo struct {
	Endpoint Endpoint
	HostID   HostID
	Location Location
	State    NodeState
}

// Topology is the endpoint <-> host-id index plus per-endpoint
// location/state, described in full at C1. It holds no tokens; RingIndex
// is the piece that maps tokens to endpoints.
type Topology struct {
	endpointToHostID map[Endpoint]HostID
	hostIDToEndpoint map[HostID]Endpoint
	attrs            map[Endpoint]*nodeAttrs
}

type nodeAttrs struct {
	location Location
	state    NodeState
}

// NewTopology returns an empty topology index.
func NewTopology() *Topology {
	return &Topology{
		endpointToHostID: make(map[Endpoint]HostID),
		hostIDToEndpoint: make(map[HostID]Endpoint),
		attrs:            make(map[Endpoint]*nodeAttrs),
	}
}

// HasEndpoint reports whether endpoint has any attributes recorded,
// regardless of whether it has a bound host-id.
func (t *Topology) HasEndpoint(endpoint Endpoint) bool {
	_, ok := t.attrs[endpoint]
	return ok
}

// AddOrUpdateLocation inserts or updates endpoint's location and,
// optionally, its state. It never touches the host-id binding. Passing a
// nil state leaves any previously recorded state untouched.
func (t *Topology) AddOrUpdateLocation(endpoint Endpoint, loc Location, state *NodeState) {
	a, ok := t.attrs[endpoint]
	if !ok {
		a = &nodeAttrs{}
		t.attrs[endpoint] = a
	}
	a.location = loc
	if state != nil {
		a.state = *state
	}
}

// AddOrUpdateHostID binds hostID to endpoint. It fails with
// ErrHostIDCollision if either half of the pair is already bound to a
// different peer; callers must RemoveEndpoint first to rebind.
func (t *Topology) AddOrUpdateHostID(endpoint Endpoint, hostID HostID) error {
	if existing, ok := t.endpointToHostID[endpoint]; ok && existing != hostID {
		return ErrHostIDCollision.WithCausef("endpoint %s already bound to host-id %s", endpoint, existing)
	}
	if existing, ok := t.hostIDToEndpoint[hostID]; ok && existing != endpoint {
		return ErrHostIDCollision.WithCausef("host-id %s already bound to endpoint %s", hostID, existing)
	}
	t.endpointToHostID[endpoint] = hostID
	t.hostIDToEndpoint[hostID] = endpoint
	if _, ok := t.attrs[endpoint]; !ok {
		t.attrs[endpoint] = &nodeAttrs{}
	}
	return nil
}

// FindByEndpoint returns everything known about endpoint.
func (t *Topology) FindByEndpoint(endpoint Endpoint) (NodeInfo, bool) {
	a, ok := t.attrs[endpoint]
	if !ok {
		return NodeInfo{}, false
	}
	return NodeInfo{
		Endpoint: endpoint,
		HostID:   t.endpointToHostID[endpoint],
		Location: a.location,
		State:    a.state,
	}, true
}

// FindByHostID returns everything known about the endpoint bound to
// hostID.
func (t *Topology) FindByHostID(hostID HostID) (NodeInfo, bool) {
	endpoint, ok := t.hostIDToEndpoint[hostID]
	if !ok {
		return NodeInfo{}, false
	}
	return t.FindByEndpoint(endpoint)
}

// RemoveEndpoint drops endpoint from every index: host-id binding,
// location, and state.
func (t *Topology) RemoveEndpoint(endpoint Endpoint) {
	if hostID, ok := t.endpointToHostID[endpoint]; ok {
		delete(t.hostIDToEndpoint, hostID)
		delete(t.endpointToHostID, endpoint)
	}
	delete(t.attrs, endpoint)
	logRemoved(endpoint)
}

// Endpoints returns every endpoint with recorded attributes, in no
// particular order.
func (t *Topology) Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(t.attrs))
	for e := range t.attrs {
		out = append(out, e)
	}
	return out
}

// Clone deep-copies the topology, yielding cooperatively every
// yieldBatch entries.
func (t *Topology) Clone(ctx context.Context) (*Topology, error) {
	out := NewTopology()
	y := newYielder()
	for e, hostID := range t.endpointToHostID {
		out.endpointToHostID[e] = hostID
		if err := y.tick(ctx); err != nil {
			return nil, err
		}
	}
	for h, e := range t.hostIDToEndpoint {
		out.hostIDToEndpoint[h] = e
		if err := y.tick(ctx); err != nil {
			return nil, err
		}
	}
	for e, a := range t.attrs {
		cp := *a
		out.attrs[e] = &cp
		if err := y.tick(ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clear empties every index in place by replacing each backing map with
// a fresh empty one, leaving the old maps to garbage collection.
func (t *Topology) Clear() {
	t.endpointToHostID = make(map[Endpoint]HostID)
	t.hostIDToEndpoint = make(map[HostID]Endpoint)
	t.attrs = make(map[Endpoint]*nodeAttrs)
}

func logRemoved(endpoint Endpoint) {
	log.Debug("removed endpoint from topology", zap.String("endpoint", string(endpoint)))
}
