// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package locator holds the token-ring metadata core of a partitioned row
// database: the token-to-endpoint map, the transition sets that describe
// bootstraps/leaves/replacements in flight, the pending-range engine that
// computes who will own what once those transitions finish, and the
// shared-snapshot publisher that lets read paths consult the ring without
// coordinating with whichever mutation is currently in progress.
//
// The package does not persist anything and does not discover membership;
// it is a pure in-memory library that is told about membership changes by
// a caller (see server/membershipwatch for one such caller) and consulted
// by a caller-supplied replication strategy (see server/replication for
// reference implementations).
package locator
