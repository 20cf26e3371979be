// Package mutex demonstrates mutual exclusion: per-increment locking of a
// shared counter, and an owner-checked mutex serializing a slow critical
// section across independent workers.
package mutex

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"concurrency_sandbox/concurrent"
	"concurrency_sandbox/counter"
	"concurrency_sandbox/narration"
)

type Result struct {
	Threads   int
	PerThread uint64
	Expected  uint64
	Final     uint64
}

// RunLocked has threads workers each perform perThread increments on a shared
// counter, taking the lock around every single increment.
func RunLocked(log *narration.Logger, threads int, perThread uint64) (Result, error) {
	w := counter.PerThread(threads, perThread)
	log.Infof("%d threads x %d locked increments", threads, perThread)
	out, err := counter.Run(new(counter.Locked), w)
	res := Result{Threads: threads, PerThread: perThread, Expected: out.Expected, Final: out.Final}
	if err != nil {
		return res, err
	}
	log.Infof("expected %d, got %d (%v)", res.Expected, res.Final, out.Elapsed)
	if !out.Exact() {
		return res, fmt.Errorf("locked counter lost %d updates", out.Lost())
	}
	return res, nil
}

// Window is the span during which one worker held the mutex.
type Window struct {
	Owner    string
	Acquired time.Time
	Released time.Time
}

// Overlapping returns the pairs of windows that intersect in time. Under
// mutual exclusion there are none.
func Overlapping(windows []Window) [][2]Window {
	sorted := append([]Window(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Acquired.Before(sorted[j].Acquired)
	})
	var overlaps [][2]Window
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Acquired.Before(sorted[i-1].Released) {
			overlaps = append(overlaps, [2]Window{sorted[i-1], sorted[i]})
		}
	}
	return overlaps
}

type SectionReport struct {
	Windows []Window
	// MaxInside is the largest number of workers seen inside the section at
	// once; 1 when exclusion holds.
	MaxInside int64
}

// RunCriticalSections has workers take turns in a critical section guarded by
// an Owned mutex, each staying inside for hold.
func RunCriticalSections(log *narration.Logger, workers int, hold time.Duration) (SectionReport, error) {
	var (
		m         Owned
		mu        sync.Mutex
		windows   []Window
		inside    atomic.Int64
		maxInside atomic.Int64
	)
	var g concurrent.Group
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		g.Go(name, func() {
			log.Debugf("%s waiting for the mutex", name)
			err := m.With(name, func() error {
				n := inside.Add(1)
				for {
					prev := maxInside.Load()
					if n <= prev || maxInside.CompareAndSwap(prev, n) {
						break
					}
				}
				w := Window{Owner: name, Acquired: time.Now()}
				log.Debugf("%s acquired", name)
				time.Sleep(hold)
				w.Released = time.Now()
				inside.Add(-1)
				log.Debugf("%s releasing", name)

				mu.Lock()
				windows = append(windows, w)
				mu.Unlock()
				return nil
			})
			if err != nil {
				panic(err)
			}
		})
	}
	faults := g.Wait()
	rep := SectionReport{Windows: windows, MaxInside: maxInside.Load()}
	err := checkSections(windows, faults)
	if err == nil {
		log.Infof("%d workers passed through the critical section one at a time", len(windows))
	}
	return rep, err
}

// checkSections reports worker faults together with any overlapping windows.
func checkSections(windows []Window, faults error) error {
	var overlapErr error
	if overlaps := Overlapping(windows); len(overlaps) > 0 {
		overlapErr = fmt.Errorf("%d overlapping critical sections", len(overlaps))
	}
	return errors.Join(faults, overlapErr)
}
