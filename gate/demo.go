package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"concurrency_sandbox/concurrent"
	"concurrency_sandbox/narration"
)

// A Task is the work a worker performs while admitted.
type Task func(ctx context.Context, worker int) error

// Sleep is a task that simulates work by waiting d, or until ctx is done.
func Sleep(d time.Duration) Task {
	return func(ctx context.Context, worker int) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type Report struct {
	Capacity    int
	Workers     int
	MaxAdmitted int
	Completed   int
	Events      []Event
}

// Run lines up workers behind a gate of the given capacity and releases them
// together; each runs task while admitted. Task errors and panics are
// reported but do not stop the other workers.
func Run(ctx context.Context, log *narration.Logger, capacity, workers int, task Task) (Report, error) {
	g, err := New(capacity)
	if err != nil {
		return Report{}, err
	}
	log.Infof("gate capacity %d, %d workers", capacity, workers)

	line := concurrent.NewStartLine()
	results := make([]error, workers)
	finished := make([]bool, workers)
	var group concurrent.Group
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		group.Go(name, func() {
			line.Wait()
			log.Debugf("%s waiting at the gate", name)
			results[i] = g.Do(ctx, name, func() error {
				log.Debugf("%s admitted (%d inside)", name, g.Admitted())
				defer log.Debugf("%s leaving", name)
				return task(ctx, i)
			})
			finished[i] = true
		})
	}
	line.AwaitWaiting(workers)
	line.Release()
	faults := group.Wait()

	rep := Report{
		Capacity:    capacity,
		Workers:     workers,
		MaxAdmitted: g.MaxAdmitted(),
		Events:      g.Events(),
	}
	errs := []error{faults}
	for i, err := range results {
		if err != nil {
			errs = append(errs, fmt.Errorf("worker-%d: %w", i, err))
			continue
		}
		if finished[i] {
			rep.Completed++
		}
	}
	if err := CheckEvents(rep.Events, capacity); err != nil {
		errs = append(errs, err)
	}
	log.Infof("max concurrently admitted: %d of %d, %d/%d tasks completed",
		rep.MaxAdmitted, capacity, rep.Completed, workers)
	return rep, errors.Join(errs...)
}
