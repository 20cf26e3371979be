package concurrent

import (
	"sync"

	"github.com/goose-lang/std"
)

// Barrier counts outstanding work, much like a Go `sync.WaitGroup`, and lets
// a coordinator wait for it to drain. It may be reused for round after round
// of Add and Wait, and it remembers how many Done calls it has seen in total.
type Barrier struct {
	mu      *sync.Mutex
	drained *sync.Cond
	pending uint64
	done    uint64
}

func NewBarrier() *Barrier {
	mu := new(sync.Mutex)
	return &Barrier{mu: mu, drained: sync.NewCond(mu)}
}

// Add registers n more Done calls to wait for.
func (b *Barrier) Add(n uint64) {
	b.mu.Lock()
	b.pending = std.SumAssumeNoOverflow(b.pending, n)
	b.mu.Unlock()
}

// Done retires one unit of work. A Done with nothing pending is a caller bug
// and panics.
func (b *Barrier) Done() {
	b.mu.Lock()
	if b.pending == 0 {
		b.mu.Unlock()
		panic("concurrent: Barrier.Done without a matching Add")
	}
	b.pending--
	b.done++
	if b.pending == 0 {
		b.drained.Broadcast()
	}
	b.mu.Unlock()
}

// Wait blocks until every unit added so far has called Done. With nothing
// pending it returns at once.
func (b *Barrier) Wait() {
	b.mu.Lock()
	for b.pending > 0 {
		b.drained.Wait()
	}
	b.mu.Unlock()
}

// Pending returns how many Done calls are still outstanding.
func (b *Barrier) Pending() uint64 {
	b.mu.Lock()
	n := b.pending
	b.mu.Unlock()
	return n
}

// Completed returns how many Done calls the barrier has seen, over all rounds.
func (b *Barrier) Completed() uint64 {
	b.mu.Lock()
	n := b.done
	b.mu.Unlock()
	return n
}

// StartLine holds workers until Release is called, so that they begin their
// work at (roughly) the same instant. It is one-shot: once released, Wait
// never blocks again.
type StartLine struct {
	mu      *sync.Mutex
	cond    *sync.Cond
	open    bool
	waiting int
}

func NewStartLine() *StartLine {
	mu := new(sync.Mutex)
	return &StartLine{mu: mu, cond: sync.NewCond(mu)}
}

// Wait parks the caller until the line is released.
func (s *StartLine) Wait() {
	s.mu.Lock()
	s.waiting++
	// wake AwaitWaiting, which shares the condition variable
	s.cond.Broadcast()
	for !s.open {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// AwaitWaiting blocks until at least n workers are parked on the line.
func (s *StartLine) AwaitWaiting(n int) {
	s.mu.Lock()
	for s.waiting < n && !s.open {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Release lets every current and future waiter through.
func (s *StartLine) Release() {
	s.mu.Lock()
	s.open = true
	s.cond.Broadcast()
	s.mu.Unlock()
}
