package progress

import (
	"hash/fnv"
	"sync"
)

const keyMutexShards = 256

// keyMutex serializes writes per key. Keys hashing to the same shard share a
// lock, which is acceptable since critical sections are short.
type keyMutex struct {
	shards [keyMutexShards]sync.Mutex
}

func (km *keyMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &km.shards[h.Sum32()%keyMutexShards]
}

func (km *keyMutex) Lock(key string)   { km.shard(key).Lock() }
func (km *keyMutex) Unlock(key string) { km.shard(key).Unlock() }
