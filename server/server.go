// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package server wires server/locator's core together with the ambient
// stack: it dials etcd, starts a membershipwatch.Watch that feeds
// membership changes into the core, serves server/httpapi's read-only
// introspection endpoints, and owns the worker group every mutation goes
// through. The core itself knows about none of this.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/unknowntpo/scylladb/pkg/log"
	"github.com/unknowntpo/scylladb/server/config"
	"github.com/unknowntpo/scylladb/server/httpapi"
	"github.com/unknowntpo/scylladb/server/limiter"
	"github.com/unknowntpo/scylladb/server/locator"
	"github.com/unknowntpo/scylladb/server/membershipwatch"
	"github.com/unknowntpo/scylladb/server/replication"
)

// Server owns one WorkerGroup's worth of published ring snapshots, the
// etcd-backed membership watch that feeds it, and the HTTP listener that
// lets operators look at its current state.
type Server struct {
	cfg *config.Config

	etcdClient *clientv3.Client
	workers    []*locator.SharedTokenMetadata[uint64]
	group      *locator.WorkerGroup[uint64]
	strategy   *replication.SimpleStrategy
	watch      *membershipwatch.Watch

	httpServer *http.Server
}

// CreateServer builds a Server from cfg without starting anything.
func CreateServer(cfg *config.Config) (*Server, error) {
	etcdClient, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: time.Duration(cfg.Etcd.DialTimeout) * time.Second,
	})
	if err != nil {
		return nil, ErrCreateEtcdClient.Wrap(err)
	}

	workers := make([]*locator.SharedTokenMetadata[uint64], cfg.Workers)
	for i := range workers {
		workers[i] = locator.NewSharedTokenMetadata(locator.NewRingSnapshot[uint64](locator.Murmur3Partitioner{}))
	}
	group := locator.NewWorkerGroup(workers)
	strategy := replication.NewSimpleStrategy(cfg.ReplicationFactor)

	s := &Server{
		cfg:        cfg,
		etcdClient: etcdClient,
		workers:    workers,
		group:      group,
		strategy:   strategy,
	}

	s.watch = membershipwatch.New(cfg.Etcd.RootPath, etcdClient, decodeMember, s.handleMembershipEvent)
	s.httpServer = &http.Server{
		Addr:    ":8081",
		Handler: httpapi.NewAPI(workers[0], limiter.NewLimiter(cfg.Limiter)).NewRouter(),
	}
	return s, nil
}

// memberRecord is the JSON shape a node publishes to
// rootPath/members/<endpoint> so the watch can decode it back into a
// membershipwatch.Event.
type memberRecord struct {
	HostID     string   `json:"host_id"`
	Datacenter string   `json:"datacenter"`
	Rack       string   `json:"rack"`
	Tokens     []uint64 `json:"tokens"`
}

func decodeMember(endpoint locator.Endpoint, value []byte) (membershipwatch.Event, error) {
	var rec memberRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return membershipwatch.Event{}, err
	}
	spec, err := locator.ParseAddress(rec.HostID, locator.AddressHostID)
	if err != nil {
		return membershipwatch.Event{}, err
	}
	return membershipwatch.Event{
		Endpoint: endpoint,
		HostID:   spec.HostID,
		Location: locator.Location{Datacenter: rec.Datacenter, Rack: rec.Rack},
		Tokens:   rec.Tokens,
	}, nil
}

// handleMembershipEvent is the membershipwatch.Handler: a join adds the
// node to the topology and claims its tokens as bootstrap tokens, ready
// for whatever out-of-band process later promotes them to normal tokens;
// a leave means the watched registry no longer carries the node at all,
// so it completes the decommission outright rather than only marking it
// leaving. A caller that wants the in-flight "still leaving" window
// visible to the pending-range engine drives snap.Leaving directly.
func (s *Server) handleMembershipEvent(ctx context.Context, ev membershipwatch.Event) error {
	return s.group.MutateOnAllShards(ctx, func(snap *locator.RingSnapshot[uint64]) error {
		switch ev.Type {
		case membershipwatch.EventJoin:
			state := locator.StateJoining
			snap.Topology.AddOrUpdateLocation(ev.Endpoint, ev.Location, &state)
			if err := snap.Topology.AddOrUpdateHostID(ev.Endpoint, ev.HostID); err != nil {
				return err
			}
			if err := snap.Bootstrap.Add(snap.Ring, ev.Endpoint, ev.Tokens); err != nil {
				return err
			}
		case membershipwatch.EventLeave:
			snap.RemoveEndpoint(ev.Endpoint)
		}
		dcRack := func(endpoint locator.Endpoint) locator.Location {
			if info, ok := snap.Topology.FindByEndpoint(endpoint); ok {
				return info.Location
			}
			return locator.Location{}
		}
		for keyspace := range s.cfg.ReplicationFactor {
			if err := snap.RebuildPending(ctx, keyspace, s.strategy, dcRack); err != nil {
				return err
			}
		}
		return nil
	})
}

// Run starts the membership watch and the HTTP listener, blocking until
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.watch.Start(ctx)
	log.Info("ringd http listening", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server exited", zap.Error(err))
		}
	}()
	<-ctx.Done()
	return nil
}

// Close releases the etcd client and shuts the HTTP listener down.
func (s *Server) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	if err := s.etcdClient.Close(); err != nil {
		log.Error("etcd client close failed", zap.Error(err))
	}
}
