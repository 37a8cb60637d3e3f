// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package server

import (
	coderr2 "github.com/unknowntpo/scylladb/pkg/coderr"
)

var (
	ErrCreateEtcdClient = coderr2.NewCodeErrorWrapper(coderr2.Internal, "fail to create etcd client")
	ErrDialEtcdTimeout  = coderr2.NewNormalizedCodeError(coderr2.Internal, "fail to dial etcd within configured timeout")
)
