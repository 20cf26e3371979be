// Package rwlist demonstrates a reader/writer lock: many readers walk a shared
// ordered list at once while writers append to it one at a time.
package rwlist

import (
	"sync"
	"sync/atomic"
)

// SharedOrderedList is an append-only sequence guarded by a reader/writer
// lock. It counts the readers and writers inside the lock so that a run can
// confirm writers were always alone.
type SharedOrderedList[T any] struct {
	mu    sync.RWMutex
	items []T

	readers        atomic.Int64
	writers        atomic.Int64
	maxReaders     atomic.Int64
	writerOverlaps atomic.Int64
}

func New[T any]() *SharedOrderedList[T] {
	return &SharedOrderedList[T]{}
}

// Append adds v at the end of the list under the exclusive lock.
func (l *SharedOrderedList[T]) Append(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writers.Add(1) != 1 || l.readers.Load() != 0 {
		l.writerOverlaps.Add(1)
	}
	l.items = append(l.items, v)
	l.writers.Add(-1)
}

// Read calls fn with the current contents under the shared lock. fn must not
// retain or modify the slice.
func (l *SharedOrderedList[T]) Read(fn func(items []T)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := l.readers.Add(1)
	defer l.readers.Add(-1)
	for {
		prev := l.maxReaders.Load()
		if n <= prev || l.maxReaders.CompareAndSwap(prev, n) {
			break
		}
	}
	if l.writers.Load() != 0 {
		l.writerOverlaps.Add(1)
	}
	fn(l.items[:len(l.items):len(l.items)])
}

// Snapshot returns a copy of the current contents.
func (l *SharedOrderedList[T]) Snapshot() []T {
	var out []T
	l.Read(func(items []T) {
		out = append(make([]T, 0, len(items)), items...)
	})
	return out
}

func (l *SharedOrderedList[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// MaxReaders is the largest number of readers seen inside the lock together.
func (l *SharedOrderedList[T]) MaxReaders() int64 {
	return l.maxReaders.Load()
}

// WriterOverlaps counts times a writer shared the lock with anyone. It stays
// zero under correct reader/writer exclusion.
func (l *SharedOrderedList[T]) WriterOverlaps() int64 {
	return l.writerOverlaps.Load()
}
