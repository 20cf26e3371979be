package concurrent

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/goose-lang/std"
)

// WorkerFault is reported by Join when a spawned worker panicked.
type WorkerFault struct {
	Worker string
	Value  any
	Stack  []byte
}

func (f *WorkerFault) Error() string {
	return fmt.Sprintf("worker %s panicked: %v", f.Worker, f.Value)
}

// Unwrap exposes the panic value when the worker panicked with an error.
func (f *WorkerFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// Handle is a spawned worker thread. The worker's panic, if any, is captured
// inside the worker so that Join always completes.
type Handle struct {
	name  string
	join  *std.JoinHandle
	once  sync.Once
	fault *WorkerFault
}

// Spawn starts fn on its own thread.
func Spawn(name string, fn func()) *Handle {
	h := &Handle{name: name}
	h.join = std.Spawn(func() {
		defer func() {
			if r := recover(); r != nil {
				// written before the join handle is signalled, so Join observes it
				h.fault = &WorkerFault{Worker: name, Value: r, Stack: debug.Stack()}
			}
		}()
		fn()
	})
	return h
}

// Name returns the name the worker was spawned with.
func (h *Handle) Name() string {
	return h.name
}

// Join blocks until the worker returns. It returns a *WorkerFault if the
// worker panicked. Join may be called more than once.
func (h *Handle) Join() error {
	h.once.Do(h.join.Join)
	if h.fault != nil {
		return h.fault
	}
	return nil
}

// Group spawns named workers and joins them together. A Group is owned by the
// thread that spawns into it and is not itself safe for concurrent use.
type Group struct {
	handles []*Handle
}

// Go spawns fn as a member of the group.
func (g *Group) Go(name string, fn func()) {
	g.handles = append(g.handles, Spawn(name, fn))
}

// Len returns the number of workers not yet joined.
func (g *Group) Len() int {
	return len(g.handles)
}

// Wait joins every worker, in spawn order, and returns all worker faults
// joined into one error.
func (g *Group) Wait() error {
	var errs []error
	for _, h := range g.handles {
		if err := h.Join(); err != nil {
			errs = append(errs, err)
		}
	}
	g.handles = nil
	return errors.Join(errs...)
}

// Parallel runs fn(0..n-1) on n threads and joins them all.
func Parallel(n int, name string, fn func(i int)) error {
	var g Group
	for i := 0; i < n; i++ {
		g.Go(fmt.Sprintf("%s-%d", name, i), func() { fn(i) })
	}
	return g.Wait()
}
