package mutex

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotOwner is returned when a caller releases a mutex it does not hold.
var ErrNotOwner = errors.New("mutex: release by non-owner")

// Owned is an exclusive lock that remembers who holds it, in the manner of an
// operating-system mutex: only the owner may release it, and a release by
// anyone else fails instead of silently unlocking.
type Owned struct {
	mu sync.Mutex

	// state guards owner and held; it is never held while blocking on mu
	state sync.Mutex
	owner string
	held  bool
}

// Lock blocks until owner holds the mutex.
func (m *Owned) Lock(owner string) {
	m.mu.Lock()
	m.claim(owner)
}

// TryLock acquires the mutex for owner only if it is free right now.
func (m *Owned) TryLock(owner string) bool {
	if !m.mu.TryLock() {
		return false
	}
	m.claim(owner)
	return true
}

func (m *Owned) claim(owner string) {
	m.state.Lock()
	m.owner = owner
	m.held = true
	m.state.Unlock()
}

// Unlock releases the mutex. It fails with ErrNotOwner, leaving the mutex
// untouched, if owner is not the current holder.
func (m *Owned) Unlock(owner string) error {
	m.state.Lock()
	if !m.held {
		m.state.Unlock()
		return fmt.Errorf("%w: %s released an unheld mutex", ErrNotOwner, owner)
	}
	if m.owner != owner {
		holder := m.owner
		m.state.Unlock()
		return fmt.Errorf("%w: %s released a mutex held by %s", ErrNotOwner, owner, holder)
	}
	m.held = false
	m.owner = ""
	m.state.Unlock()
	m.mu.Unlock()
	return nil
}

// Owner returns the current holder, if any.
func (m *Owned) Owner() (string, bool) {
	m.state.Lock()
	defer m.state.Unlock()
	return m.owner, m.held
}

// With runs fn while owner holds the mutex. The mutex is released on every
// exit path, including a panic in fn, which is re-raised after the release.
func (m *Owned) With(owner string, fn func() error) error {
	m.Lock(owner)
	defer func() {
		// cannot fail: owner acquired the mutex above
		_ = m.Unlock(owner)
	}()
	return fn()
}
