// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package membershipwatch tells server/locator's core about membership
// changes. The core never discovers membership on its own (it is told,
// per its own contract); this package is one way to tell it, watching a
// etcd key prefix the way server/coordinator's ShardWatch watches shard
// leadership, and translating PUT/DELETE events into
// locator.SharedTokenMetadata mutations.
package membershipwatch

import (
	"context"
	"strings"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/unknowntpo/scylladb/pkg/log"
	"github.com/unknowntpo/scylladb/server/etcdutil"
	"github.com/unknowntpo/scylladb/server/locator"
)

// EventType distinguishes a node announcing itself from a node's lease
// expiring.
type EventType int

const (
	EventJoin EventType = iota
	EventLeave
)

// Event is one membership change observed on the watched prefix.
type Event struct {
	Endpoint locator.Endpoint
	HostID   locator.HostID
	Location locator.Location
	Tokens   []uint64
	Type     EventType
}

// Handler decides what a membership Event means for the ring: add
// bootstrap tokens, promote them to normal, mark a node leaving, and so
// on. It is supplied by the caller that owns the shared publisher;
// membershipwatch only ever calls it, never decides ring semantics
// itself.
type Handler func(ctx context.Context, ev Event) error

// Watch watches rootPath/members/* on client and invokes handler for
// every PUT (join/update) and DELETE (lease expiry, treated as a leave)
// event observed there. The encoding of a member's value is left to the
// caller via decode; Watch only demultiplexes etcd events into Events.
type Watch struct {
	rootPath string
	client   *clientv3.Client
	decode   func(endpoint locator.Endpoint, value []byte) (Event, error)
	handler  Handler
}

const membersPath = "members"

// New returns a Watch over rootPath's member subtree on client. decode
// turns a member's stored value into an Event carrying its tokens and
// location; handler is invoked once per decoded event.
func New(rootPath string, client *clientv3.Client, decode func(locator.Endpoint, []byte) (Event, error), handler Handler) *Watch {
	return &Watch{rootPath: rootPath, client: client, decode: decode, handler: handler}
}

// Start bulk-loads every member already registered under the watched
// prefix, feeding each in as a join, and then launches the watch loop
// in a background goroutine from the revision the bulk load observed
// so that no PUT racing with the load is missed or double-delivered.
// It returns once the bulk load has completed; the background loop
// exits when ctx is cancelled or the etcd watch channel closes.
func (w *Watch) Start(ctx context.Context) {
	keyPrefix := strings.Join([]string{w.rootPath, membersPath}, "/")
	log.Info("register membership watch", zap.String("watchPath", keyPrefix))

	watchOpts := []clientv3.OpOption{clientv3.WithPrefix(), clientv3.WithPrevKV()}
	resp, err := etcdutil.EtcdKVGet(w.client, keyPrefix, clientv3.WithPrefix())
	if err != nil {
		log.Error("bulk load existing members failed", zap.Error(err))
	} else {
		for _, kv := range resp.Kvs {
			if err := w.loadExisting(ctx, kv.Key, kv.Value); err != nil {
				log.Error("load existing member failed", zap.Error(err), zap.String("key", string(kv.Key)))
			}
		}
		watchOpts = append(watchOpts, clientv3.WithRev(resp.Header.Revision+1))
	}

	go func() {
		respChan := w.client.Watch(ctx, keyPrefix, watchOpts...)
		for resp := range respChan {
			for _, ev := range resp.Events {
				if err := w.processEvent(ctx, ev); err != nil {
					log.Error("process membership event", zap.Error(err))
				}
			}
		}
	}()
}

func (w *Watch) loadExisting(ctx context.Context, key, value []byte) error {
	parts := strings.Split(string(key), "/")
	endpoint := locator.Endpoint(parts[len(parts)-1])
	event, err := w.decode(endpoint, value)
	if err != nil {
		return err
	}
	event.Endpoint = endpoint
	event.Type = EventJoin
	log.Info("membership bulk load", zap.String("endpoint", string(endpoint)))
	return w.handler(ctx, event)
}

func (w *Watch) processEvent(ctx context.Context, ev *clientv3.Event) error {
	parts := strings.Split(string(ev.Kv.Key), "/")
	endpoint := locator.Endpoint(parts[len(parts)-1])

	switch ev.Type {
	case mvccpb.DELETE:
		event := Event{Endpoint: endpoint, Type: EventLeave}
		if ev.PrevKv != nil {
			if decoded, err := w.decode(endpoint, ev.PrevKv.Value); err == nil {
				event.HostID = decoded.HostID
				event.Location = decoded.Location
			}
		}
		log.Info("membership leave observed", zap.String("endpoint", string(endpoint)))
		return w.handler(ctx, event)
	case mvccpb.PUT:
		event, err := w.decode(endpoint, ev.Kv.Value)
		if err != nil {
			return err
		}
		event.Endpoint = endpoint
		event.Type = EventJoin
		log.Info("membership join observed", zap.String("endpoint", string(endpoint)))
		return w.handler(ctx, event)
	}
	return nil
}
