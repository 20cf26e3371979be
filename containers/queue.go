// Package containers provides collections that serialize their own mutations,
// so producers and consumers can share them without any locking of their own.
// Removal from an empty container is an ordinary outcome, reported with a
// false second result rather than an error.
package containers

import "sync"

// stack is a sequential slice stack; Queue builds on two of them.
type stack[T any] struct {
	elements []T
}

func (s *stack[T]) push(x T) {
	s.elements = append(s.elements, x)
}

func (s *stack[T]) pop() (T, bool) {
	var zero T
	if len(s.elements) == 0 {
		return zero, false
	}
	x := s.elements[len(s.elements)-1]
	s.elements[len(s.elements)-1] = zero
	s.elements = s.elements[:len(s.elements)-1]
	return x, true
}

// Queue is a FIFO queue made of two stacks behind one mutex: enqueues push onto
// back, and dequeues pop from front, refilling it from back when it runs dry.
type Queue[T any] struct {
	mu    sync.Mutex
	back  stack[T]
	front stack[T]
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Enqueue(x T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.back.push(x)
}

// Assuming mu is held, move everything from back to front, reversing it.
func (q *Queue[T]) emptyBack() {
	for {
		x, ok := q.back.pop()
		if !ok {
			break
		}
		q.front.push(x)
	}
}

// TryDequeue removes the oldest element. The boolean is false if the queue
// was empty.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	x, ok := q.front.pop()
	if ok {
		return x, true
	}
	q.emptyBack()
	return q.front.pop()
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.front.elements) + len(q.back.elements)
}
