// Copyright 2023 CeresDB Project Authors. Licensed under Apache-2.0.

package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	defaultInitialLimiterRate     = 10
	defaultInitialLimiterCapacity = 1000
	defaultUpdateLimiterRate      = 100
	defaultUpdateLimiterCapacity  = 100
	probeHandler                  = "/probe"
	otherHandler                  = "/ring/owner"
)

func TestLimiter(t *testing.T) {
	re := require.New(t)
	l := NewLimiter(Config{
		TokenBucketFillRate:           defaultInitialLimiterRate,
		TokenBucketBurstEventCapacity: defaultInitialLimiterCapacity,
		Enable:                        true,
	})

	for i := 0; i < defaultInitialLimiterCapacity; i++ {
		re.True(l.Allow(otherHandler))
	}
	re.False(l.Allow(otherHandler))

	time.Sleep(time.Second)
	for i := 0; i < defaultInitialLimiterRate; i++ {
		re.True(l.Allow(otherHandler))
	}
	re.False(l.Allow(otherHandler))

	l.UpdateBypassList([]string{probeHandler}, nil)
	l.UpdateLimiter(Config{
		TokenBucketFillRate:           defaultUpdateLimiterRate,
		TokenBucketBurstEventCapacity: defaultUpdateLimiterCapacity,
		Enable:                        true,
	})

	time.Sleep(time.Second)
	for i := 0; i < defaultUpdateLimiterRate; i++ {
		re.True(l.Allow(otherHandler))
	}
	re.False(l.Allow(otherHandler))

	for i := 0; i < defaultUpdateLimiterCapacity*2; i++ {
		re.True(l.Allow(probeHandler))
	}
}

func TestLimiterDisabled(t *testing.T) {
	re := require.New(t)
	l := NewLimiter(Config{TokenBucketFillRate: 1, TokenBucketBurstEventCapacity: 1, Enable: false})
	for i := 0; i < 100; i++ {
		re.True(l.Allow(otherHandler))
	}
}
