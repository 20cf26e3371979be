// Package counter is the shared-integer substrate of the sandbox: a handful of
// counters that differ only in how (or whether) they synchronize their
// increments, and a harness that hammers one from many threads.
package counter

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// A Counter is a shared integer that workers increment.
type Counter interface {
	Inc()
	Load() uint64
}

// Plain is an unsynchronized counter for single-threaded use only.
type Plain struct {
	v uint64
}

func (c *Plain) Inc() {
	c.v++
}

func (c *Plain) Load() uint64 {
	return c.v
}

// Racy is a counter whose increment is a separate load followed by a store,
// with nothing tying the two together. Concurrent increments that interleave
// between the load and the store overwrite each other, so updates are lost.
//
// The load and store are each atomic, which keeps the loss observable without
// turning the program into one with a data race.
type Racy struct {
	v atomic.Uint64
}

func (c *Racy) Inc() {
	v := c.v.Load()
	c.v.Store(v + 1)
}

func (c *Racy) Load() uint64 {
	return c.v.Load()
}

// Locked holds an exclusive lock for the duration of each increment.
type Locked struct {
	mu sync.Mutex
	v  uint64
}

func (c *Locked) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v++
}

func (c *Locked) Load() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Atomic increments with a single hardware atomic add.
type Atomic struct {
	v atomic.Uint64
}

func (c *Atomic) Inc() {
	c.v.Add(1)
}

func (c *Atomic) Load() uint64 {
	return c.v.Load()
}

// SpinLocked guards each increment with a compare-and-swap spin lock that
// never parks in the kernel.
type SpinLocked struct {
	held atomic.Bool
	v    uint64
}

func (c *SpinLocked) lock() {
	for !c.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (c *SpinLocked) unlock() {
	c.held.Store(false)
}

func (c *SpinLocked) Inc() {
	c.lock()
	c.v++
	c.unlock()
}

func (c *SpinLocked) Load() uint64 {
	c.lock()
	defer c.unlock()
	return c.v
}
