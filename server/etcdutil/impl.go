// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package etcdutil holds small helpers around the raw etcd client: a
// single-key Get, a paged range Scan, and EtcdKVGet, which runs a get
// through the slow-transaction logger SlowLogTxn. membershipwatch uses
// EtcdKVGet to seed its initial view of the cluster before it starts
// streaming deltas.
package etcdutil

import (
	"context"

	"go.uber.org/zap"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/unknowntpo/scylladb/pkg/log"
)

// Get returns the value stored at key, failing if the key is missing
// or if it somehow names more than one entry.
func Get(ctx context.Context, client *clientv3.Client, key string) (string, error) {
	resp, err := client.Get(ctx, key)
	if err != nil {
		return "", ErrEtcdKVGet.WithCause(err)
	}
	if n := len(resp.Kvs); n == 0 {
		return "", ErrEtcdKVGetNotFound
	} else if n > 1 {
		return "", ErrEtcdKVGetResponse.WithCausef("%v", resp.Kvs)
	}

	return string(resp.Kvs[0].Value), nil
}

// Scan returns every value in [startKey, endKey), paging limit keys at
// a time.
func Scan(ctx context.Context, client *clientv3.Client, startKey, endKey string, limit int) ([]string, error) {
	withRange := clientv3.WithRange(endKey)
	withLimit := clientv3.WithLimit(int64(limit))
	values := make([]string, 0)

	for {
		resp, err := client.Get(ctx, startKey, withRange, withLimit)
		if err != nil {
			return nil, ErrEtcdKVGet.WithCause(err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if len(values) > 0 {
			values = values[:len(values)-1]
		}

		for _, item := range resp.Kvs {
			values = append(values, string(item.Value))

			if string(item.Key) == endKey {
				log.Warn("scan value has reached end key", zap.String("endKey", endKey))
				return values, nil
			}

			startKey = string(item.Key)
		}

		if len(resp.Kvs) < limit {
			return values, nil
		}
	}
}
