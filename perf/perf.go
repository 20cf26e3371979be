// Package perf runs one increment workload under several synchronization
// disciplines and reports elapsed time and lost updates for each.
package perf

import (
	"errors"
	"fmt"
	"time"

	"concurrency_sandbox/counter"
	"concurrency_sandbox/narration"
)

type Result struct {
	Name     string
	Threads  int
	Elapsed  time.Duration
	Expected uint64
	Final    uint64
	Lost     uint64
	// MustBeExact is false only for the unsynchronized configuration, whose
	// lost updates are the point of running it.
	MustBeExact bool
}

// Check fails only for a configuration that must be exact and was not.
func (r Result) Check() error {
	if r.MustBeExact && r.Final != r.Expected {
		return fmt.Errorf("%s: expected %d, got %d (%d lost)", r.Name, r.Expected, r.Final, r.Lost)
	}
	return nil
}

type config struct {
	name        string
	threads     int
	mustBeExact bool
	counter     func() counter.Counter
}

const (
	Sequential = "single-thread"
	Unsynced   = "unsynchronized"
	Locked     = "locked"
	Atomic     = "atomic"
	Spin       = "cas-spin"
)

func configs(threads int) []config {
	return []config{
		{Sequential, 1, true, func() counter.Counter { return new(counter.Plain) }},
		{Unsynced, threads, false, func() counter.Counter { return new(counter.Racy) }},
		{Locked, threads, true, func() counter.Counter { return new(counter.Locked) }},
		{Atomic, threads, true, func() counter.Counter { return new(counter.Atomic) }},
		{Spin, threads, true, func() counter.Counter { return new(counter.SpinLocked) }},
	}
}

// Compare runs total increments under each configuration in turn. A result
// is returned for every configuration that ran; the error collects worker
// faults and exact configurations that came out wrong.
func Compare(log *narration.Logger, total uint64, threads int) ([]Result, error) {
	if threads < 1 {
		return nil, fmt.Errorf("perf: need at least one thread, got %d", threads)
	}
	log.Infof("%d increments, %d threads", total, threads)
	var (
		results []Result
		errs    []error
	)
	for _, cfg := range configs(threads) {
		var (
			out counter.Outcome
			err error
		)
		c := cfg.counter()
		if cfg.threads == 1 {
			out = counter.RunSequential(c, total)
		} else {
			out, err = counter.Run(c, counter.Workload{Threads: cfg.threads, Total: total})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cfg.name, err))
			continue
		}
		r := Result{
			Name:        cfg.name,
			Threads:     cfg.threads,
			Elapsed:     out.Elapsed,
			Expected:    out.Expected,
			Final:       out.Final,
			Lost:        out.Lost(),
			MustBeExact: cfg.mustBeExact,
		}
		results = append(results, r)
		errs = append(errs, r.Check())
		log.Infof("%-15s %2d threads %12v  result %d/%d  lost %d",
			r.Name, r.Threads, r.Elapsed, r.Final, r.Expected, r.Lost)
	}
	return results, errors.Join(errs...)
}

// Find returns the result with the given configuration name.
func Find(results []Result, name string) (Result, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}
