// Package config holds the knobs of a sandbox run.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config sizes every demonstration. Zero values are replaced with defaults by
// Validate.
type Config struct {
	// mutual exclusion
	Threads    int
	Increments uint64
	Holders    int
	Hold       time.Duration

	// bounded concurrency
	GateCapacity int
	GateWorkers  int
	Task         time.Duration

	// reader/writer list
	Readers int
	Writers int
	Appends int
	Reads   int

	// thread-safe containers
	Producers   int
	Consumers   int
	PerProducer int
	Removals    int
	MapUpdates  int

	// signaling
	Waiters int
	Raises  int

	// performance comparator
	Total       uint64
	PerfThreads int

	// Only restricts the run to the named demonstrations.
	Only []string
	// Pause waits for Enter between demonstrations.
	Pause bool
}

const (
	DefaultThreads      = 5
	DefaultIncrements   = 1000
	DefaultHolders      = 3
	DefaultHold         = 100 * time.Millisecond
	DefaultGateCapacity = 2
	DefaultGateWorkers  = 5
	DefaultTask         = 2 * time.Second
	DefaultReaders      = 4
	DefaultWriters      = 2
	DefaultAppends      = 100
	DefaultReads        = 50
	DefaultProducers    = 4
	DefaultConsumers    = 4
	DefaultPerProducer  = 1000
	DefaultMapUpdates   = 1000
	DefaultWaiters      = 5
	DefaultRaises       = 3
	DefaultTotal        = 10_000_000
	DefaultPerfThreads  = 4
)

// Default returns the configuration of a standard teaching run.
func Default() Config {
	cfg := Config{}
	if err := Validate(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Validate applies structural checks to cfg and populates defaults where
// required.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setInt(&cfg.Threads, DefaultThreads)
	setInt(&cfg.Holders, DefaultHolders)
	setInt(&cfg.GateCapacity, DefaultGateCapacity)
	setInt(&cfg.GateWorkers, DefaultGateWorkers)
	setInt(&cfg.Readers, DefaultReaders)
	setInt(&cfg.Writers, DefaultWriters)
	setInt(&cfg.Appends, DefaultAppends)
	setInt(&cfg.Reads, DefaultReads)
	setInt(&cfg.Producers, DefaultProducers)
	setInt(&cfg.Consumers, DefaultConsumers)
	setInt(&cfg.PerProducer, DefaultPerProducer)
	setInt(&cfg.MapUpdates, DefaultMapUpdates)
	setInt(&cfg.Waiters, DefaultWaiters)
	setInt(&cfg.PerfThreads, DefaultPerfThreads)
	if cfg.Raises == 0 {
		cfg.Raises = min(DefaultRaises, cfg.Waiters)
	}
	if cfg.Removals == 0 {
		cfg.Removals = cfg.Producers * cfg.PerProducer / 2
	}
	if cfg.Increments == 0 {
		cfg.Increments = DefaultIncrements
	}
	if cfg.Total == 0 {
		cfg.Total = DefaultTotal
	}
	if cfg.Hold == 0 {
		cfg.Hold = DefaultHold
	}
	if cfg.Task == 0 {
		cfg.Task = DefaultTask
	}

	for name, v := range map[string]int{
		"Threads":      cfg.Threads,
		"Holders":      cfg.Holders,
		"GateCapacity": cfg.GateCapacity,
		"GateWorkers":  cfg.GateWorkers,
		"Readers":      cfg.Readers,
		"Writers":      cfg.Writers,
		"Appends":      cfg.Appends,
		"Reads":        cfg.Reads,
		"Producers":    cfg.Producers,
		"Consumers":    cfg.Consumers,
		"PerProducer":  cfg.PerProducer,
		"MapUpdates":   cfg.MapUpdates,
		"Waiters":      cfg.Waiters,
		"PerfThreads":  cfg.PerfThreads,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if cfg.Hold < 0 || cfg.Task < 0 {
		return fmt.Errorf("durations must be non-negative, got hold %v task %v", cfg.Hold, cfg.Task)
	}
	if cfg.GateWorkers <= cfg.GateCapacity {
		return fmt.Errorf("GateWorkers (%d) must exceed GateCapacity (%d) to show queuing at the gate",
			cfg.GateWorkers, cfg.GateCapacity)
	}
	if cfg.Raises < 0 || cfg.Raises > cfg.Waiters {
		return fmt.Errorf("Raises must be within [0,%d], got %d", cfg.Waiters, cfg.Raises)
	}
	if cfg.Removals < 0 || cfg.Removals > cfg.Producers*cfg.PerProducer {
		return fmt.Errorf("Removals must be within [0,%d], got %d", cfg.Producers*cfg.PerProducer, cfg.Removals)
	}
	return nil
}
