// Command sandbox runs the concurrency demonstrations in order, narrating
// each one to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"

	"concurrency_sandbox/config"
	"concurrency_sandbox/driver"
	"concurrency_sandbox/narration"
)

func main() {
	cfg := config.Config{}
	var increments, total uint64
	flag.IntVar(&cfg.Threads, "threads", config.DefaultThreads, "threads in the mutex and map demonstrations")
	flag.Uint64Var(&increments, "increments", config.DefaultIncrements, "increments per thread in the mutex demonstration")
	flag.IntVar(&cfg.GateCapacity, "gate-capacity", config.DefaultGateCapacity, "admission gate capacity")
	flag.IntVar(&cfg.GateWorkers, "gate-workers", config.DefaultGateWorkers, "workers queuing at the admission gate")
	flag.DurationVar(&cfg.Task, "task", config.DefaultTask, "simulated task length inside the gate")
	flag.DurationVar(&cfg.Hold, "hold", config.DefaultHold, "time spent inside the owned-mutex critical section")
	flag.IntVar(&cfg.Readers, "readers", config.DefaultReaders, "reader threads on the shared list")
	flag.IntVar(&cfg.Writers, "writers", config.DefaultWriters, "writer threads on the shared list")
	flag.IntVar(&cfg.Appends, "appends", config.DefaultAppends, "appends per writer")
	flag.IntVar(&cfg.Waiters, "waiters", config.DefaultWaiters, "waiters in the signaling demonstrations")
	flag.Uint64Var(&total, "total", config.DefaultTotal, "total increments in the performance comparison")
	flag.IntVar(&cfg.PerfThreads, "perf-threads", config.DefaultPerfThreads, "threads in the performance comparison")
	flag.BoolVar(&cfg.Pause, "pause", false, "wait for Enter between demonstrations")
	only := flag.String("only", "", "comma-separated demonstrations to run (default all)")
	level := flag.String("log", "info", "narration level: error, warn, info or debug")
	flag.Parse()

	cfg.Increments = increments
	cfg.Total = total
	if *only != "" {
		cfg.Only = strings.Split(*only, ",")
		for _, name := range cfg.Only {
			if !slices.Contains(driver.Names(), name) {
				fmt.Fprintf(os.Stderr, "unknown demonstration %q (have %s)\n", name, strings.Join(driver.Names(), ", "))
				os.Exit(1)
			}
		}
	}
	lvl, err := narration.ParseLevel(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := narration.New(os.Stdout, lvl, "")
	d := driver.New(cfg, log)
	d.In = os.Stdin
	d.Out = os.Stdout
	outcomes := d.Run(ctx)
	if failed := driver.Summarize(log, outcomes); failed > 0 {
		log.Warnf("%d of %d demonstrations reported faults", failed, len(outcomes))
	}
}
