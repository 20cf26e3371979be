package containers

import (
	"errors"
	"fmt"
	"runtime"

	"concurrency_sandbox/concurrent"
	"concurrency_sandbox/narration"
)

// Workload describes a producer/consumer run: Producers insert PerProducer
// distinct items each while Consumers together remove Removals of them.
type Workload struct {
	Producers   int
	Consumers   int
	PerProducer int
	Removals    int
}

func (w Workload) inserted() int {
	return w.Producers * w.PerProducer
}

// Accounting is the bookkeeping after a run: Len must equal
// Inserted - Removed.
type Accounting struct {
	Inserted int
	Removed  int
	// Misses counts removal attempts that found the container empty.
	Misses int
	Len    int
}

// item numbers are producer*PerProducer + seq, so every insert is distinct
func itemProducer(item, perProducer int) int {
	return item / perProducer
}

// run drives one container through w. Consumers retry on empty until they
// have removed their share; the container never blocks them.
func run(log *narration.Logger, name string, w Workload,
	put func(int), take func() (int, bool), size func() int) (Accounting, [][]int, error) {
	if w.Removals > w.inserted() {
		return Accounting{}, nil, fmt.Errorf("%s: %d removals exceeds %d inserts", name, w.Removals, w.inserted())
	}
	if w.Removals > 0 && w.Consumers < 1 {
		return Accounting{}, nil, fmt.Errorf("%s: removals need at least one consumer", name)
	}
	log.Infof("%s: %d producers x %d items, %d consumers removing %d",
		name, w.Producers, w.PerProducer, w.Consumers, w.Removals)

	line := concurrent.NewStartLine()
	removed := make([][]int, w.Consumers)
	misses := make([]int, w.Consumers)
	var g concurrent.Group
	for p := 0; p < w.Producers; p++ {
		g.Go(fmt.Sprintf("%s-producer-%d", name, p), func() {
			line.Wait()
			for s := 0; s < w.PerProducer; s++ {
				put(p*w.PerProducer + s)
			}
		})
	}
	for c := 0; c < w.Consumers; c++ {
		quota := w.Removals / w.Consumers
		if c < w.Removals%w.Consumers {
			quota++
		}
		g.Go(fmt.Sprintf("%s-consumer-%d", name, c), func() {
			line.Wait()
			for len(removed[c]) < quota {
				x, ok := take()
				if !ok {
					misses[c]++
					runtime.Gosched()
					continue
				}
				removed[c] = append(removed[c], x)
			}
		})
	}
	line.AwaitWaiting(w.Producers + w.Consumers)
	line.Release()
	err := g.Wait()

	acct := Accounting{Inserted: w.inserted(), Len: size()}
	for c := range removed {
		acct.Removed += len(removed[c])
		acct.Misses += misses[c]
	}
	if err == nil && acct.Len != acct.Inserted-acct.Removed {
		err = fmt.Errorf("%s: len %d, expected %d inserted - %d removed", name, acct.Len, acct.Inserted, acct.Removed)
	}
	log.Infof("%s: inserted %d, removed %d (%d empty attempts), %d left",
		name, acct.Inserted, acct.Removed, acct.Misses, acct.Len)
	return acct, removed, err
}

// CheckConservation fails unless removed and remaining together hold every
// item 0..inserted-1 exactly once: nothing lost, nothing duplicated.
func CheckConservation(inserted int, removed [][]int, remaining []int) error {
	seen := make([]int, inserted)
	count := func(x int) error {
		if x < 0 || x >= inserted {
			return fmt.Errorf("item %d was never inserted", x)
		}
		seen[x]++
		return nil
	}
	for _, rs := range removed {
		for _, x := range rs {
			if err := count(x); err != nil {
				return err
			}
		}
	}
	for _, x := range remaining {
		if err := count(x); err != nil {
			return err
		}
	}
	var errs []error
	for x, n := range seen {
		switch {
		case n == 0:
			errs = append(errs, fmt.Errorf("item %d lost", x))
		case n > 1:
			errs = append(errs, fmt.Errorf("item %d seen %d times", x, n))
		}
	}
	return errors.Join(errs...)
}

// checkPerProducerFIFO fails if any consumer dequeued two items of the same
// producer out of insertion order.
func checkPerProducerFIFO(removed [][]int, perProducer int) error {
	for c, rs := range removed {
		last := make(map[int]int)
		for _, x := range rs {
			p := itemProducer(x, perProducer)
			if prev, ok := last[p]; ok && x < prev {
				return fmt.Errorf("consumer %d saw producer %d's item %d after %d", c, p, x, prev)
			}
			last[p] = x
		}
	}
	return nil
}

func RunQueue(log *narration.Logger, w Workload) (Accounting, error) {
	q := NewQueue[int]()
	acct, removed, err := run(log, "queue", w, q.Enqueue, q.TryDequeue, q.Len)
	if err != nil {
		return acct, err
	}
	var remaining []int
	for {
		x, ok := q.TryDequeue()
		if !ok {
			break
		}
		remaining = append(remaining, x)
	}
	return acct, errors.Join(
		CheckConservation(acct.Inserted, removed, remaining),
		checkPerProducerFIFO(removed, w.PerProducer),
	)
}

func RunStack(log *narration.Logger, w Workload) (Accounting, error) {
	s := NewStack[int]()
	acct, removed, err := run(log, "stack", w, s.Push, s.TryPop, s.Len)
	if err != nil {
		return acct, err
	}
	var remaining []int
	for {
		x, ok := s.TryPop()
		if !ok {
			break
		}
		remaining = append(remaining, x)
	}
	return acct, CheckConservation(acct.Inserted, removed, remaining)
}

func RunBag(log *narration.Logger, w Workload) (Accounting, error) {
	b := NewBag[int](runtime.GOMAXPROCS(0))
	acct, removed, err := run(log, "bag", w, b.Add, b.TryTake, b.Len)
	if err != nil {
		return acct, err
	}
	return acct, CheckConservation(acct.Inserted, removed, b.Items())
}

type MapReport struct {
	Threads int
	Updates int
	// Final is the counter key's value; every update adds one.
	Final int
	// TryAddWins counts threads whose TryAdd of the contested key succeeded.
	TryAddWins int
	Len        int
}

// RunMap has threads race to TryAdd one contested key, then each apply
// updates AddOrUpdate increments to a shared counter key.
func RunMap(log *narration.Logger, threads, updates int) (MapReport, error) {
	m := NewMap[int](8)
	log.Infof("map: %d threads x %d add-or-update on one key", threads, updates)

	line := concurrent.NewStartLine()
	wins := make([]bool, threads)
	var g concurrent.Group
	for i := 0; i < threads; i++ {
		g.Go(fmt.Sprintf("map-%d", i), func() {
			line.Wait()
			wins[i] = m.TryAdd("owner", i)
			for u := 0; u < updates; u++ {
				m.AddOrUpdate("hits", 1, func(v int) int { return v + 1 })
				m.AddOrUpdate(fmt.Sprintf("thread-%d", i), 1, func(v int) int { return v + 1 })
			}
		})
	}
	line.AwaitWaiting(threads)
	line.Release()
	err := g.Wait()

	rep := MapReport{Threads: threads, Updates: updates, Len: m.Len()}
	rep.Final, _ = m.Load("hits")
	for _, w := range wins {
		if w {
			rep.TryAddWins++
		}
	}
	errs := []error{err}
	if rep.Final != threads*updates {
		errs = append(errs, fmt.Errorf("map: hits = %d, expected %d", rep.Final, threads*updates))
	}
	if rep.TryAddWins != 1 {
		errs = append(errs, fmt.Errorf("map: %d threads added the contested key", rep.TryAddWins))
	}
	owner, _ := m.Load("owner")
	log.Infof("map: hits = %d (expected %d), contested key added by thread %d",
		rep.Final, threads*updates, owner)
	return rep, errors.Join(errs...)
}
