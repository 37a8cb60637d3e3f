// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package locator

import "github.com/spaolacci/murmur3"

// Murmur3Partitioner is the reference Partitioner[uint64]: tokens are
// 64-bit Murmur3 hashes of a row key, matching the hashing most
// partitioned row databases in this family use by default. The space
// wraps from the all-ones token back to zero.
type Murmur3Partitioner struct{}

var _ Partitioner[uint64] = Murmur3Partitioner{}

// HashKey derives the token for key under this partitioner.
func (Murmur3Partitioner) HashKey(key []byte) uint64 {
	return murmur3.Sum64(key)
}

func (Murmur3Partitioner) Minimum() uint64 { return 0 }

func (Murmur3Partitioner) Maximum() uint64 { return ^uint64(0) }

func (Murmur3Partitioner) Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
