package counter

import (
	"fmt"
	"time"

	"github.com/goose-lang/primitive"
	"github.com/goose-lang/std"

	"concurrency_sandbox/concurrent"
)

// Workload splits Total increments across Threads workers.
type Workload struct {
	Threads int
	Total   uint64
}

// PerThread builds a workload of threads workers doing n increments each.
func PerThread(threads int, n uint64) Workload {
	var total uint64
	for i := 0; i < threads; i++ {
		total = std.SumAssumeNoOverflow(total, n)
	}
	return Workload{Threads: threads, Total: total}
}

// Share is the number of increments worker i performs. Any remainder is
// spread over the lowest-numbered workers.
func (w Workload) Share(i int) uint64 {
	n := uint64(w.Threads)
	share := w.Total / n
	if uint64(i) < w.Total%n {
		share++
	}
	return share
}

// Outcome is the measured result of running a workload against a counter.
type Outcome struct {
	Expected uint64
	Final    uint64
	Elapsed  time.Duration
}

// Lost is the number of increments whose effect never reached the counter.
func (o Outcome) Lost() uint64 {
	// increments never decrement, so a counter can only fall short
	primitive.Assert(o.Final <= o.Expected)
	return o.Expected - o.Final
}

// Exact reports whether every increment was applied.
func (o Outcome) Exact() bool {
	return o.Final == o.Expected
}

// Run has w.Threads workers increment c concurrently. The workers are lined up
// before the clock starts so that their loops overlap as much as the scheduler
// allows; Elapsed covers release to the last join.
func Run(c Counter, w Workload) (Outcome, error) {
	if w.Threads < 1 {
		return Outcome{}, fmt.Errorf("workload needs at least one thread, got %d", w.Threads)
	}
	line := concurrent.NewStartLine()
	var g concurrent.Group
	for i := 0; i < w.Threads; i++ {
		n := w.Share(i)
		g.Go(fmt.Sprintf("incrementer-%d", i), func() {
			line.Wait()
			for j := uint64(0); j < n; j++ {
				c.Inc()
			}
		})
	}
	line.AwaitWaiting(w.Threads)
	start := time.Now()
	line.Release()
	err := g.Wait()
	elapsed := time.Since(start)
	return Outcome{Expected: w.Total, Final: c.Load(), Elapsed: elapsed}, err
}

// RunSequential performs the whole workload on the calling thread.
func RunSequential(c Counter, total uint64) Outcome {
	start := time.Now()
	for j := uint64(0); j < total; j++ {
		c.Inc()
	}
	return Outcome{Expected: total, Final: c.Load(), Elapsed: time.Since(start)}
}
