package containers

import (
	"sync"
	"sync/atomic"
)

type bagShard[T any] struct {
	mu    sync.Mutex
	items []T
}

// Bag is an unordered multiset. Adds are spread round-robin over several
// locked shards so that concurrent adders rarely contend; takes scan the
// shards for any element.
type Bag[T any] struct {
	shards []*bagShard[T]
	next   atomic.Uint64
}

// NewBag creates a bag with the given number of shards (at least one).
func NewBag[T any](shards int) *Bag[T] {
	if shards < 1 {
		shards = 1
	}
	b := &Bag[T]{shards: make([]*bagShard[T], shards)}
	for i := range b.shards {
		b.shards[i] = &bagShard[T]{}
	}
	return b
}

func (b *Bag[T]) Add(x T) {
	s := b.shards[b.next.Add(1)%uint64(len(b.shards))]
	s.mu.Lock()
	s.items = append(s.items, x)
	s.mu.Unlock()
}

// TryTake removes some element. The boolean is false if every shard was empty
// when visited.
func (b *Bag[T]) TryTake() (T, bool) {
	start := b.next.Load()
	n := uint64(len(b.shards))
	for i := uint64(0); i < n; i++ {
		s := b.shards[(start+i)%n]
		s.mu.Lock()
		if l := len(s.items); l > 0 {
			x := s.items[l-1]
			var zero T
			s.items[l-1] = zero
			s.items = s.items[:l-1]
			s.mu.Unlock()
			return x, true
		}
		s.mu.Unlock()
	}
	var zero T
	return zero, false
}

func (b *Bag[T]) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}

// Items returns a copy of the contents in no particular order.
func (b *Bag[T]) Items() []T {
	var out []T
	for _, s := range b.shards {
		s.mu.Lock()
		out = append(out, s.items...)
		s.mu.Unlock()
	}
	return out
}
