// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package etcdutil

import "github.com/unknowntpo/scylladb/pkg/coderr"

var ErrEtcdKVGet = coderr.NewCodeError(coderr.Internal, "etcd kv get")
var ErrEtcdKVGetNotFound = coderr.NewCodeError(coderr.Internal, "etcd kv get not found")
var ErrEtcdKVGetResponse = coderr.NewCodeError(coderr.Internal, "etcd kv get too many results")
var ErrEtcdTxnConflict = coderr.NewCodeError(coderr.Internal, "etcd txn conflict")
