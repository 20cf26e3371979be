package signal

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"concurrency_sandbox/concurrent"
	"concurrency_sandbox/narration"
)

type WaitNotifyReport struct {
	// Observed is the flag as the consumer saw it when it left Wait.
	Observed bool
	// Wakes counts how often the consumer was woken, including the
	// deliberate spurious wake before the gate opened.
	Wakes int
}

// RunWaitNotify parks a consumer on a Gate, wakes it once without opening the
// gate, then has a producer open it after delay.
func RunWaitNotify(log *narration.Logger, delay time.Duration) (WaitNotifyReport, error) {
	g := NewGate()
	var rep WaitNotifyReport
	consumer := concurrent.Spawn("consumer", func() {
		log.Debugf("consumer waiting for ready")
		rep.Observed, rep.Wakes = g.Wait()
		log.Debugf("consumer saw ready=%v after %d wakes", rep.Observed, rep.Wakes)
	})
	producer := concurrent.Spawn("producer", func() {
		g.Nudge()
		time.Sleep(delay)
		log.Debugf("producer setting ready")
		g.Open()
	})
	err := errors.Join(producer.Join(), consumer.Join())
	if err == nil && !rep.Observed {
		err = errors.New("consumer left Wait with ready=false")
	}
	log.Infof("wait/notify: consumer released with ready=%v", rep.Observed)
	return rep, err
}

type SingleReleaseReport struct {
	Waiters int
	Raises  int
	// Released is how many waiters had been let through after Raises sets.
	Released int64
	// StillWaiting is the number blocked at that same moment.
	StillWaiting int
}

// RunSingleRelease blocks waiters on an AutoResetEvent and raises it raises
// times, one at a time, counting releases. The remaining waiters are then
// released so the demonstration can join them.
func RunSingleRelease(log *narration.Logger, waiters, raises int) (SingleReleaseReport, error) {
	if raises > waiters {
		return SingleReleaseReport{}, fmt.Errorf("%d raises for %d waiters", raises, waiters)
	}
	ev := NewAutoResetEvent()
	// one Done per released waiter; Completed counts releases
	done := concurrent.NewBarrier()
	var g concurrent.Group
	for i := 0; i < waiters; i++ {
		name := fmt.Sprintf("waiter-%d", i)
		g.Go(name, func() {
			ev.Wait()
			log.Debugf("%s released", name)
			done.Done()
		})
	}
	ev.AwaitWaiting(waiters)
	log.Infof("auto-reset: %d waiters blocked", waiters)

	for i := 0; i < raises; i++ {
		done.Add(1)
		ev.Set()
		done.Wait()
	}
	rep := SingleReleaseReport{
		Waiters:      waiters,
		Raises:       raises,
		Released:     int64(done.Completed()),
		StillWaiting: ev.Waiting(),
	}
	log.Infof("auto-reset: %d raises released %d waiters, %d still blocked",
		raises, rep.Released, rep.StillWaiting)

	for i := raises; i < waiters; i++ {
		done.Add(1)
		ev.Set()
	}
	err := g.Wait()
	if err == nil && rep.Released != int64(raises) {
		err = fmt.Errorf("%d raises released %d waiters", raises, rep.Released)
	}
	return rep, err
}

type BroadcastReport struct {
	Waiters  int
	Released int64
	// LatePassed reports that a waiter arriving after Set (before Reset) was
	// not blocked.
	LatePassed bool
	// ResetHolds reports that the event was clear again after Reset.
	ResetHolds bool
}

// RunBroadcast blocks waiters on a ManualResetEvent and releases them all
// with one Set.
func RunBroadcast(log *narration.Logger, waiters int) (BroadcastReport, error) {
	ev := NewManualResetEvent()
	var released atomic.Int64
	var g concurrent.Group
	for i := 0; i < waiters; i++ {
		name := fmt.Sprintf("waiter-%d", i)
		g.Go(name, func() {
			ev.Wait()
			released.Add(1)
			log.Debugf("%s released", name)
		})
	}
	ev.AwaitWaiting(waiters)
	log.Infof("manual-reset: %d waiters blocked, raising once", waiters)
	ev.Set()
	err := g.Wait()

	rep := BroadcastReport{Waiters: waiters, Released: released.Load()}
	passed, lateErr := lateWaiterPasses(ev, latePatience)
	rep.LatePassed = passed
	ev.Reset()
	rep.ResetHolds = !ev.IsSet()

	errs := []error{err, lateErr}
	if rep.Released != int64(waiters) {
		errs = append(errs, fmt.Errorf("one raise released %d of %d waiters", rep.Released, waiters))
	}
	if !rep.LatePassed {
		errs = append(errs, fmt.Errorf("waiter arriving while set was still blocked after %v", latePatience))
	}
	if !rep.ResetHolds {
		errs = append(errs, errors.New("event still set after Reset"))
	}
	log.Infof("manual-reset: released %d, late waiter passed=%v", rep.Released, rep.LatePassed)
	return rep, errors.Join(errs...)
}

// latePatience bounds how long a waiter on a set event may take to get
// through before it counts as blocked.
const latePatience = time.Second

// lateWaiterPasses starts a fresh waiter on ev and reports whether it got
// through within patience. A waiter still blocked at the deadline is let
// out by raising the event, and the event is cleared again once it has
// passed, so the waiter can always be joined.
func lateWaiterPasses(ev *ManualResetEvent, patience time.Duration) (bool, error) {
	passed := make(chan struct{})
	late := concurrent.Spawn("late-waiter", func() {
		ev.Wait()
		close(passed)
	})
	t := time.NewTimer(patience)
	defer t.Stop()
	ok := true
	select {
	case <-passed:
	case <-t.C:
		ok = false
		ev.Set()
		<-passed
		ev.Reset()
	}
	return ok, late.Join()
}
