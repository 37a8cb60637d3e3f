// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

// Package config is the top-level configuration for cmd/ringd: how many
// workers to run, which etcd cluster to watch for membership, and the
// per-keyspace replication factors its demo replication strategy uses.
// The core itself (server/locator) takes no configuration of its own —
// everything here is ambient, the way server/config is for the teacher's
// cluster manager.
package config

import (
	"errors"

	"github.com/unknowntpo/scylladb/pkg/log"
	"github.com/unknowntpo/scylladb/server/limiter"
)

// Config is the root configuration struct, loaded from a TOML file and
// then overridden from environment variables in ParseConfigFromEnv.
type Config struct {
	DataDir string `toml:"data_dir"`

	// Workers is the number of cooperative-scheduler workers (shards) to
	// run, one SharedTokenMetadata per worker.
	Workers int `toml:"workers"`

	// ReplicationFactor maps keyspace name to replication factor for the
	// demo binary's SimpleStrategy. A real deployment would load this
	// from a schema store instead.
	ReplicationFactor map[string]int `toml:"replication_factor"`

	Etcd    EtcdConfig     `toml:"etcd"`
	Log     log.Config    `toml:"log"`
	Limiter limiter.Config `toml:"limiter"`
}

// EtcdConfig is the subset of etcd client configuration ringd needs to
// watch membership.
type EtcdConfig struct {
	Endpoints   []string `toml:"endpoints"`
	RootPath    string   `toml:"root_path"`
	DialTimeout int      `toml:"dial_timeout_seconds"`
}

// DefaultConfig returns the configuration used when no TOML file is
// supplied, suitable for a single-node smoke test.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           "/tmp/ringd",
		Workers:           1,
		ReplicationFactor: map[string]int{"default": 1},
		Etcd: EtcdConfig{
			Endpoints:   []string{"127.0.0.1:2379"},
			RootPath:    "/ringd",
			DialTimeout: 5,
		},
		Log: log.Config{Level: "info"},
		Limiter: limiter.Config{
			TokenBucketFillRate:           50,
			TokenBucketBurstEventCapacity: 100,
			Enable:                        true,
		},
	}
}

// ValidateAndAdjust checks the loaded configuration for obviously
// invalid values and fills in anything still at its zero value with a
// sane default.
func (c *Config) ValidateAndAdjust() error {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if len(c.Etcd.Endpoints) == 0 {
		return ErrInvalidCommandArgs.Wrap(errors.New("etcd.endpoints must not be empty"))
	}
	if c.Etcd.RootPath == "" {
		c.Etcd.RootPath = "/ringd"
	}
	if c.Etcd.DialTimeout <= 0 {
		c.Etcd.DialTimeout = 5
	}
	if len(c.ReplicationFactor) == 0 {
		c.ReplicationFactor = map[string]int{"default": 1}
	}
	return nil
}
