// Copyright 2023 CeresDB Project Authors. Licensed under Apache-2.0.

// Package limiter rate-limits the read-only HTTP introspection surface
// server/httpapi exposes, the same token-bucket-plus-bypass-list shape
// the teacher's FlowLimiter applied to RPC methods, aimed here at HTTP
// handler names instead.
package limiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// defaultUnlimited lists handler names that are never rate limited
// regardless of configuration, e.g. a liveness probe.
var defaultUnlimited = []string{"/ring/version"}

// Config controls a Limiter's token bucket.
type Config struct {
	TokenBucketFillRate           int  `toml:"token_bucket_fill_rate"`
	TokenBucketBurstEventCapacity int  `toml:"token_bucket_burst_event_capacity"`
	Enable                        bool `toml:"enable"`
}

// Limiter is a token-bucket rate limiter keyed by a single shared
// bucket across handler names, with a bypass list of names that are
// always allowed through.
type Limiter struct {
	l *rate.Limiter

	lock                          sync.RWMutex
	tokenBucketFillRate           int
	tokenBucketBurstEventCapacity int
	enable                        bool
	bypass                        map[string]struct{}
}

// NewLimiter returns a Limiter configured by cfg.
func NewLimiter(cfg Config) *Limiter {
	bypass := make(map[string]struct{}, len(defaultUnlimited))
	for _, name := range defaultUnlimited {
		bypass[name] = struct{}{}
	}
	return &Limiter{
		l:                             rate.NewLimiter(rate.Limit(cfg.TokenBucketFillRate), cfg.TokenBucketBurstEventCapacity),
		tokenBucketFillRate:           cfg.TokenBucketFillRate,
		tokenBucketBurstEventCapacity: cfg.TokenBucketBurstEventCapacity,
		enable:                        cfg.Enable,
		bypass:                        bypass,
	}
}

// Allow reports whether a request to the named handler may proceed.
func (f *Limiter) Allow(name string) bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	if !f.enable {
		return true
	}
	if _, ok := f.bypass[name]; ok {
		return true
	}
	return f.l.Allow()
}

// UpdateLimiter changes the token bucket's rate, burst, and enabled
// state without replacing the Limiter instance.
func (f *Limiter) UpdateLimiter(cfg Config) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.l.SetLimit(rate.Limit(cfg.TokenBucketFillRate))
	f.l.SetBurst(cfg.TokenBucketBurstEventCapacity)
	f.tokenBucketFillRate = cfg.TokenBucketFillRate
	f.tokenBucketBurstEventCapacity = cfg.TokenBucketBurstEventCapacity
	f.enable = cfg.Enable
}

// UpdateBypassList adds names to and removes names from the bypass set.
func (f *Limiter) UpdateBypassList(addBypass, removeBypass []string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, name := range addBypass {
		f.bypass[name] = struct{}{}
	}
	for _, name := range removeBypass {
		delete(f.bypass, name)
	}
}
