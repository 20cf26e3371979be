// Package gate demonstrates bounded concurrency: an admission gate (a
// counting semaphore) caps how many workers use a resource at once.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goose-lang/primitive"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrNotHeld is returned when a permit is released more than once.
	ErrNotHeld = errors.New("gate: release without matching acquire")
	// ErrBadCapacity is returned for a gate with no slots.
	ErrBadCapacity = errors.New("gate: capacity must be positive")
)

type EventKind int

const (
	Acquired EventKind = iota
	Released
)

func (k EventKind) String() string {
	if k == Acquired {
		return "acquired"
	}
	return "released"
}

// Event is one admission or departure, with the admitted count right after
// it took effect.
type Event struct {
	Kind     EventKind
	Holder   string
	Admitted int
	At       time.Time
}

// AdmissionGate admits at most Capacity holders at a time. Every admission
// and departure is recorded, in order, for later inspection.
type AdmissionGate struct {
	capacity int
	sem      *semaphore.Weighted

	mu       sync.Mutex
	admitted int
	max      int
	events   []Event
}

func New(capacity int) (*AdmissionGate, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadCapacity, capacity)
	}
	return &AdmissionGate{
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
	}, nil
}

// Permit is one admission slot. It must be released exactly once.
type Permit struct {
	gate     *AdmissionGate
	holder   string
	released atomic.Bool
}

// Acquire blocks until a slot is free or ctx is done.
func (g *AdmissionGate) Acquire(ctx context.Context, holder string) (*Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("gate: %s acquire: %w", holder, err)
	}
	return g.admit(holder), nil
}

// TryAcquire takes a slot only if one is free right now.
func (g *AdmissionGate) TryAcquire(holder string) (*Permit, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return g.admit(holder), true
}

func (g *AdmissionGate) admit(holder string) *Permit {
	g.mu.Lock()
	g.admitted++
	primitive.Assert(g.admitted <= g.capacity)
	if g.admitted > g.max {
		g.max = g.admitted
	}
	g.events = append(g.events, Event{Kind: Acquired, Holder: holder, Admitted: g.admitted, At: time.Now()})
	g.mu.Unlock()
	return &Permit{gate: g, holder: holder}
}

// Release gives the slot back. A second release of the same permit fails
// with ErrNotHeld and does not free another slot.
func (p *Permit) Release() error {
	if !p.released.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s released twice", ErrNotHeld, p.holder)
	}
	g := p.gate
	// the count drops before the slot is handed on, so a new holder is
	// never recorded while the old one still counts
	g.mu.Lock()
	g.admitted--
	g.events = append(g.events, Event{Kind: Released, Holder: p.holder, Admitted: g.admitted, At: time.Now()})
	g.mu.Unlock()
	g.sem.Release(1)
	return nil
}

// Do runs fn while holding a slot. The slot is released on every exit path,
// including fn returning an error or panicking.
func (g *AdmissionGate) Do(ctx context.Context, holder string, fn func() error) error {
	p, err := g.Acquire(ctx, holder)
	if err != nil {
		return err
	}
	defer func() {
		// cannot fail: p is released only here
		_ = p.Release()
	}()
	return fn()
}

func (g *AdmissionGate) Capacity() int {
	return g.capacity
}

// Admitted returns how many holders are inside right now.
func (g *AdmissionGate) Admitted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitted
}

// MaxAdmitted returns the largest admitted count ever recorded.
func (g *AdmissionGate) MaxAdmitted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

// Events returns a copy of the admission log.
func (g *AdmissionGate) Events() []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Event(nil), g.events...)
}

// CheckEvents replays an admission log and fails if the running count ever
// leaves [0, capacity] or disagrees with what was recorded, or if a holder
// departs without having been admitted.
func CheckEvents(events []Event, capacity int) error {
	running := 0
	inside := make(map[string]int)
	for i, e := range events {
		switch e.Kind {
		case Acquired:
			running++
			inside[e.Holder]++
		case Released:
			running--
			if inside[e.Holder] == 0 {
				return fmt.Errorf("event %d: %s released without acquiring", i, e.Holder)
			}
			inside[e.Holder]--
		}
		if running < 0 || running > capacity {
			return fmt.Errorf("event %d: %d admitted with capacity %d", i, running, capacity)
		}
		if running != e.Admitted {
			return fmt.Errorf("event %d: recorded %d admitted, replay has %d", i, e.Admitted, running)
		}
	}
	return nil
}
