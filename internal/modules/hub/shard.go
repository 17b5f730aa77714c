package hub

import (
	"hash/fnv"
	"sync"
)

// shardCount partitions the hot maps so rooms and users do not contend on a
// single lock.
const shardCount = 32

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// shardedMap is a string-keyed concurrent map partitioned by fnv-1a.
type shardedMap[V any] struct {
	shards [shardCount]*shard[V]
}

func newShardedMap[V any]() *shardedMap[V] {
	m := &shardedMap[V]{}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *shardedMap[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

func (m *shardedMap[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// GetOrCreate returns the existing value or stores the one produced by mk.
// The second result reports whether a new value was created.
func (m *shardedMap[V]) GetOrCreate(key string, mk func() V) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v, false
	}
	v := mk()
	s.items[key] = v
	return v, true
}

func (m *shardedMap[V]) Set(key string, v V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = v
	s.mu.Unlock()
}

func (m *shardedMap[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// DeleteIf removes key only when cond holds for the stored value, under the
// shard lock. Returns true when the entry was removed.
func (m *shardedMap[V]) DeleteIf(key string, cond func(V) bool) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok || !cond(v) {
		return false
	}
	delete(s.items, key)
	return true
}

// Range calls fn for every entry until fn returns false. Each shard is
// snapshotted under its read lock so fn may call back into the map.
func (m *shardedMap[V]) Range(fn func(key string, v V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		snapshot := make(map[string]V, len(s.items))
		for k, v := range s.items {
			snapshot[k] = v
		}
		s.mu.RUnlock()
		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}

func (m *shardedMap[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
