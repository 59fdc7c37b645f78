package messaging

import "github.com/cespare/xxhash/v2"

// PartitionFor maps a partition key onto one of n partitions.
// The mapping is stable across processes so every publisher agrees on it.
func PartitionFor(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(n))
}
