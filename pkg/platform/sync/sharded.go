// Package sync holds the keyed lock used by the in-memory transaction runner.
package sync

import (
	"hash/maphash"
	"sync"
)

// DefaultShards is the stripe count used by NewShardedMutex.
const DefaultShards = 32

// ShardedMutex serialises callers by key over a fixed set of mutexes. Two
// calls with the same key never overlap; different keys contend only when
// they hash to the same shard.
type ShardedMutex[K comparable] struct {
	seed   maphash.Seed
	shards []sync.Mutex
}

// NewShardedMutex returns a mutex with DefaultShards stripes.
func NewShardedMutex[K comparable]() *ShardedMutex[K] {
	return NewShardedMutexN[K](DefaultShards)
}

// NewShardedMutexN returns a mutex with n stripes; n < 1 means one.
func NewShardedMutexN[K comparable](n int) *ShardedMutex[K] {
	return &ShardedMutex[K]{
		seed:   maphash.MakeSeed(),
		shards: make([]sync.Mutex, max(n, 1)),
	}
}

// Lock blocks until key's shard is held and returns its unlock func.
func (m *ShardedMutex[K]) Lock(key K) (unlock func()) {
	mu := &m.shards[m.shardFor(key)]
	mu.Lock()
	return mu.Unlock
}

// WithLock runs fn while holding key's shard.
func (m *ShardedMutex[K]) WithLock(key K, fn func() error) error {
	defer m.Lock(key)()
	return fn()
}

func (m *ShardedMutex[K]) shardFor(key K) int {
	return int(maphash.Comparable(m.seed, key) % uint64(len(m.shards)))
}
