package containers

import "sync/atomic"

type node[T any] struct {
	value T
	next  *node[T]
}

// Stack is a lock-free LIFO stack: Push and TryPop swing the head pointer with
// compare-and-swap and retry when another thread got there first.
type Stack[T any] struct {
	head atomic.Pointer[node[T]]
	size atomic.Int64
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

func (s *Stack[T]) Push(x T) {
	n := &node[T]{value: x}
	for {
		old := s.head.Load()
		n.next = old
		if s.head.CompareAndSwap(old, n) {
			s.size.Add(1)
			return
		}
	}
}

// TryPop removes the most recently pushed element. The boolean is false if the
// stack was empty.
func (s *Stack[T]) TryPop() (T, bool) {
	for {
		old := s.head.Load()
		if old == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			s.size.Add(-1)
			return old.value, true
		}
	}
}

// Len is exact once concurrent pushes and pops have finished; while they are
// in flight it may briefly lag the head pointer.
func (s *Stack[T]) Len() int {
	return int(s.size.Load())
}
