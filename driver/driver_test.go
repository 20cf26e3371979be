package driver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concurrency_sandbox/config"
	"concurrency_sandbox/narration"
)

func fastConfig() config.Config {
	cfg := config.Config{
		Hold:        time.Millisecond,
		Task:        5 * time.Millisecond,
		Appends:     20,
		Reads:       10,
		PerProducer: 100,
		MapUpdates:  100,
		Total:       100_000,
	}
	if err := config.Validate(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

func TestRunAllDemos(t *testing.T) {
	var buf bytes.Buffer
	log := narration.New(&buf, narration.LevelInfo, "")
	d := New(fastConfig(), log)

	outcomes := d.Run(context.Background())
	require.Len(t, outcomes, len(Demos()))
	for _, o := range outcomes {
		assert.NoError(t, o.Err, o.Name)
	}
	assert.Equal(t, 0, Summarize(log, outcomes))
	assert.Contains(t, buf.String(), "Summary")
}

func TestOnly(t *testing.T) {
	cfg := fastConfig()
	cfg.Only = []string{"mutex", "map"}
	outcomes := New(cfg, nil).Run(context.Background())
	require.Len(t, outcomes, 2)
	assert.Equal(t, "mutex", outcomes[0].Name)
	assert.Equal(t, "map", outcomes[1].Name)
}

func TestFaultsAreIsolated(t *testing.T) {
	d := &Driver{Config: fastConfig()}
	d.Demos = []Demo{
		{"panics", "panics", func(context.Context, *narration.Logger, config.Config) error { panic("driver-side fault") }},
		{"fails", "fails", func(context.Context, *narration.Logger, config.Config) error { return errors.New("bad") }},
		{"ok", "ok", func(context.Context, *narration.Logger, config.Config) error { return nil }},
	}
	outcomes := d.Run(context.Background())
	require.Len(t, outcomes, 3)
	assert.ErrorContains(t, outcomes[0].Err, "driver-side fault")
	assert.Error(t, outcomes[1].Err)
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, 2, Summarize(nil, outcomes))
}

func TestPauseReadsInput(t *testing.T) {
	cfg := fastConfig()
	cfg.Pause = true
	var out bytes.Buffer
	ran := 0
	d := &Driver{Config: cfg, In: strings.NewReader("\n"), Out: &out}
	step := func(context.Context, *narration.Logger, config.Config) error { ran++; return nil }
	d.Demos = []Demo{{"a", "a", step}, {"b", "b", step}, {"c", "c", step}}

	// input runs out after one line; the rest run without pausing
	d.Run(context.Background())
	assert.Equal(t, 3, ran)
	assert.Contains(t, out.String(), "press Enter for b")
}

func TestCancelledRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := New(fastConfig(), nil).Run(ctx)
	assert.Empty(t, outcomes)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, "mutex", names[0])
	assert.Equal(t, "perf", names[len(names)-1])
	assert.Len(t, names, len(Demos()))
}
