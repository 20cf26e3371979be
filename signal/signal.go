// Package signal demonstrates signaling between threads: a guarded
// wait/notify predicate, an auto-reset event that releases one waiter per
// raise, and a manual-reset event that releases every waiter.
package signal

import "sync"

// Gate is a ready flag guarded by a mutex and observed through a condition
// variable. Waiters re-check the flag after every wake, so a spurious or stale
// wake never lets them through early.
type Gate struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ready bool
}

func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Wait blocks until the gate is open. It returns the flag as observed on exit
// (always true) and how many times the caller was woken before that.
func (g *Gate) Wait() (ready bool, wakes int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !g.ready {
		g.cond.Wait()
		wakes++
	}
	return g.ready, wakes
}

// Open sets the flag and wakes one waiter.
func (g *Gate) Open() {
	g.mu.Lock()
	g.ready = true
	g.cond.Signal()
	g.mu.Unlock()
}

// Nudge wakes one waiter without changing the flag, as a spurious wakeup
// would.
func (g *Gate) Nudge() {
	g.mu.Lock()
	g.cond.Signal()
	g.mu.Unlock()
}

func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// waitCount tracks blocked waiters so callers can wait for a pool to assemble.
type waitCount struct {
	waiting  int
	arrivals *sync.Cond
}

func (w *waitCount) arrive() {
	w.waiting++
	w.arrivals.Broadcast()
}

// AutoResetEvent releases exactly one waiter per Set. A Set with every
// blocked waiter already promised a release leaves the event signaled, and
// the next Wait consumes that signal without blocking; further Sets before
// then are absorbed.
type AutoResetEvent struct {
	mu   sync.Mutex
	cond *sync.Cond
	waitCount
	// releases promised to blocked waiters; never more than waiting
	pending  int
	signaled bool
}

func NewAutoResetEvent() *AutoResetEvent {
	e := &AutoResetEvent{}
	e.cond = sync.NewCond(&e.mu)
	e.arrivals = sync.NewCond(&e.mu)
	return e
}

func (e *AutoResetEvent) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending < e.waiting {
		e.pending++
		e.cond.Signal()
		return
	}
	e.signaled = true
}

func (e *AutoResetEvent) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.signaled {
		e.signaled = false
		return
	}
	e.arrive()
	for e.pending == 0 {
		e.cond.Wait()
	}
	e.pending--
	e.waiting--
}

// Waiting returns how many callers are blocked in Wait.
func (e *AutoResetEvent) Waiting() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiting
}

// AwaitWaiting blocks until at least n callers are blocked in Wait.
func (e *AutoResetEvent) AwaitWaiting(n int) {
	e.mu.Lock()
	for e.waiting < n {
		e.arrivals.Wait()
	}
	e.mu.Unlock()
}

// ManualResetEvent releases every blocked waiter when Set, and lets later
// waiters straight through until Reset.
type ManualResetEvent struct {
	mu   sync.Mutex
	cond *sync.Cond
	waitCount
	set bool
	// bumped by every Set, so a Set followed at once by Reset still
	// releases the waiters it found
	gen uint64
}

func NewManualResetEvent() *ManualResetEvent {
	e := &ManualResetEvent{}
	e.cond = sync.NewCond(&e.mu)
	e.arrivals = sync.NewCond(&e.mu)
	return e
}

func (e *ManualResetEvent) Set() {
	e.mu.Lock()
	e.set = true
	e.gen++
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *ManualResetEvent) Reset() {
	e.mu.Lock()
	e.set = false
	e.mu.Unlock()
}

func (e *ManualResetEvent) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

func (e *ManualResetEvent) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		return
	}
	e.arrive()
	gen := e.gen
	for !e.set && e.gen == gen {
		e.cond.Wait()
	}
	e.waiting--
}

func (e *ManualResetEvent) Waiting() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiting
}

func (e *ManualResetEvent) AwaitWaiting(n int) {
	e.mu.Lock()
	for e.waiting < n {
		e.arrivals.Wait()
	}
	e.mu.Unlock()
}
