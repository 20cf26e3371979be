package containers

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// A shard is a plain map guarded by its own mutex.
type shard[V any] struct {
	mu sync.Mutex
	m  map[string]V
}

// Map is a string-keyed map split into independently locked shards; a key's
// shard is chosen by its xxhash. Every operation on a key is atomic.
type Map[V any] struct {
	shards []*shard[V]
}

// NewMap creates a map with the given number of shards (at least one).
func NewMap[V any](shards int) *Map[V] {
	if shards < 1 {
		shards = 1
	}
	m := &Map[V]{shards: make([]*shard[V], shards)}
	for i := range m.shards {
		m.shards[i] = &shard[V]{m: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

func (m *Map[V]) Load(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (m *Map[V]) Store(key string, v V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v
}

// TryAdd inserts v only if key is absent, and reports whether it did.
func (m *Map[V]) TryAdd(key string, v V) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; ok {
		return false
	}
	s.m[key] = v
	return true
}

// AddOrUpdate inserts initial if key is absent, or replaces the current value
// with update(current), as one indivisible step. It returns the stored value.
// update runs with the shard locked and must not call back into the map.
func (m *Map[V]) AddOrUpdate(key string, initial V, update func(V) V) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if ok {
		v = update(v)
	} else {
		v = initial
	}
	s.m[key] = v
	return v
}

// TryRemove deletes key and returns its value; the boolean is false if the
// key was absent.
func (m *Map[V]) TryRemove(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	return v, ok
}

// Len sums the shard sizes one shard at a time, so it is only a snapshot
// when no writers are active.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}

// Range calls fn for each entry until fn returns false. Each shard is copied
// under its lock before fn sees it, so fn may use the map.
func (m *Map[V]) Range(fn func(key string, v V) bool) {
	for _, s := range m.shards {
		s.mu.Lock()
		entries := make(map[string]V, len(s.m))
		for k, v := range s.m {
			entries[k] = v
		}
		s.mu.Unlock()
		for k, v := range entries {
			if !fn(k, v) {
				return
			}
		}
	}
}
