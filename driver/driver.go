// Package driver runs the demonstrations one after another, isolating each
// from the faults of the others.
package driver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"slices"
	"time"

	"concurrency_sandbox/config"
	"concurrency_sandbox/containers"
	"concurrency_sandbox/gate"
	"concurrency_sandbox/mutex"
	"concurrency_sandbox/narration"
	"concurrency_sandbox/perf"
	"concurrency_sandbox/rwlist"
	"concurrency_sandbox/signal"
)

// A Demo is one named demonstration.
type Demo struct {
	Name  string
	Title string
	Run   func(ctx context.Context, log *narration.Logger, cfg config.Config) error
}

// Demos returns every demonstration in the order a run presents them.
func Demos() []Demo {
	return []Demo{
		{"mutex", "Mutual exclusion: per-increment lock", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := mutex.RunLocked(log, cfg.Threads, cfg.Increments)
			return err
		}},
		{"critical-section", "Mutual exclusion: owned mutex", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := mutex.RunCriticalSections(log, cfg.Holders, cfg.Hold)
			return err
		}},
		{"gate", "Bounded concurrency: admission gate", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := gate.Run(ctx, log, cfg.GateCapacity, cfg.GateWorkers, gate.Sleep(cfg.Task))
			return err
		}},
		{"rwlist", "Reader/writer lock over a shared list", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := rwlist.Run(log, cfg.Readers, cfg.Writers, cfg.Appends, cfg.Reads)
			return err
		}},
		{"queue", "Thread-safe FIFO queue", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := containers.RunQueue(log, workload(cfg))
			return err
		}},
		{"stack", "Thread-safe LIFO stack", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := containers.RunStack(log, workload(cfg))
			return err
		}},
		{"map", "Thread-safe map", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := containers.RunMap(log, cfg.Threads, cfg.MapUpdates)
			return err
		}},
		{"bag", "Thread-safe bag", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := containers.RunBag(log, workload(cfg))
			return err
		}},
		{"wait-notify", "Signaling: wait/notify", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := signal.RunWaitNotify(log, cfg.Hold)
			return err
		}},
		{"single-release", "Signaling: auto-reset event", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := signal.RunSingleRelease(log, cfg.Waiters, cfg.Raises)
			return err
		}},
		{"broadcast", "Signaling: manual-reset event", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := signal.RunBroadcast(log, cfg.Waiters)
			return err
		}},
		{"perf", "Performance comparison", func(ctx context.Context, log *narration.Logger, cfg config.Config) error {
			_, err := perf.Compare(log, cfg.Total, cfg.PerfThreads)
			return err
		}},
	}
}

// Names lists the demonstration names in run order.
func Names() []string {
	var names []string
	for _, d := range Demos() {
		names = append(names, d.Name)
	}
	return names
}

func workload(cfg config.Config) containers.Workload {
	return containers.Workload{
		Producers:   cfg.Producers,
		Consumers:   cfg.Consumers,
		PerProducer: cfg.PerProducer,
		Removals:    cfg.Removals,
	}
}

// Outcome is how one demonstration went.
type Outcome struct {
	Name    string
	Elapsed time.Duration
	Err     error
}

// Driver runs demonstrations in order.
type Driver struct {
	Config config.Config
	Log    *narration.Logger
	Demos  []Demo
	// In is read for the pause between demonstrations; Out shows the prompt.
	In  io.Reader
	Out io.Writer
}

func New(cfg config.Config, log *narration.Logger) *Driver {
	return &Driver{Config: cfg, Log: log, Demos: Demos()}
}

func (d *Driver) selected(name string) bool {
	return len(d.Config.Only) == 0 || slices.Contains(d.Config.Only, name)
}

// Run executes every selected demonstration, stopping early only if ctx is
// cancelled. Faults, including panics on the driver's own thread, are
// recorded in the outcomes rather than propagated.
func (d *Driver) Run(ctx context.Context) []Outcome {
	var outcomes []Outcome
	var in *bufio.Reader
	if d.Config.Pause && d.In != nil {
		in = bufio.NewReader(d.In)
	}
	first := true
	for _, demo := range d.Demos {
		if !d.selected(demo.Name) {
			continue
		}
		if ctx.Err() != nil {
			d.Log.Warnf("run cancelled before %s", demo.Name)
			break
		}
		if in != nil && !first {
			if d.Out != nil {
				fmt.Fprintf(d.Out, "press Enter for %s... ", demo.Name)
			}
			if _, err := in.ReadString('\n'); err != nil {
				// no more operator input; carry on without pausing
				in = nil
			}
		}
		first = false

		d.Log.Section(demo.Title)
		start := time.Now()
		err := d.runOne(ctx, demo)
		o := Outcome{Name: demo.Name, Elapsed: time.Since(start), Err: err}
		if err != nil {
			d.Log.Errorf("%s failed: %v", demo.Name, err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (d *Driver) runOne(ctx context.Context, demo Demo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.Log.Debugf("%s", debug.Stack())
			err = fmt.Errorf("%s panicked: %v", demo.Name, r)
		}
	}()
	return demo.Run(ctx, d.Log, d.Config)
}

// Summarize narrates the outcomes and returns how many failed.
func Summarize(log *narration.Logger, outcomes []Outcome) int {
	failed := 0
	log.Section("Summary")
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = "FAILED"
			failed++
		}
		log.Infof("%-16s %-6s %v", o.Name, status, o.Elapsed.Round(time.Millisecond))
	}
	return failed
}
