package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewRejectsEmptyGate(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrBadCapacity)
}

func TestPermitDoubleRelease(t *testing.T) {
	assert := assert.New(t)

	g, err := New(1)
	require.NoError(t, err)
	p, err := g.Acquire(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(1, g.Admitted())

	_, ok := g.TryAcquire("b")
	assert.False(ok, "gate is full")

	assert.NoError(p.Release())
	assert.ErrorIs(p.Release(), ErrNotHeld)
	assert.Equal(0, g.Admitted())

	// the double release did not create a second slot
	p1, ok := g.TryAcquire("b")
	assert.True(ok)
	_, ok = g.TryAcquire("c")
	assert.False(ok)
	assert.NoError(p1.Release())

	assert.NoError(CheckEvents(g.Events(), 1))
}

func TestAcquireCancelled(t *testing.T) {
	g, err := New(1)
	require.NoError(t, err)
	p, _ := g.TryAcquire("holder")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "late")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, p.Release())
}

func TestDoReleasesOnErrorAndPanic(t *testing.T) {
	assert := assert.New(t)

	g, err := New(1)
	require.NoError(t, err)

	sentinel := errors.New("task failed")
	err = g.Do(context.Background(), "a", func() error { return sentinel })
	assert.ErrorIs(err, sentinel)
	assert.Equal(0, g.Admitted())

	assert.Panics(func() {
		_ = g.Do(context.Background(), "b", func() error { panic("task exploded") })
	})
	assert.Equal(0, g.Admitted())
	assert.NoError(CheckEvents(g.Events(), 1))
}

func TestCheckEvents(t *testing.T) {
	assert := assert.New(t)

	ok := []Event{
		{Kind: Acquired, Holder: "a", Admitted: 1},
		{Kind: Acquired, Holder: "b", Admitted: 2},
		{Kind: Released, Holder: "a", Admitted: 1},
		{Kind: Released, Holder: "b", Admitted: 0},
	}
	assert.NoError(CheckEvents(ok, 2))
	assert.Error(CheckEvents(ok, 1), "over capacity")

	stray := []Event{{Kind: Released, Holder: "a", Admitted: -1}}
	assert.Error(CheckEvents(stray, 1))
}

func TestRunFast(t *testing.T) {
	assert := assert.New(t)

	rep, err := Run(context.Background(), nil, 2, 5, Sleep(20*time.Millisecond))
	assert.NoError(err)
	assert.Equal(2, rep.MaxAdmitted)
	assert.Equal(5, rep.Completed)
	assert.Len(rep.Events, 10)
}

func TestRunScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("runs five two-second tasks")
	}
	rep, err := Run(context.Background(), nil, 2, 5, Sleep(2*time.Second))
	assert.NoError(t, err)
	assert.Equal(t, 2, rep.MaxAdmitted)
	assert.Equal(t, 5, rep.Completed)
}

func TestRunReportsTaskFaults(t *testing.T) {
	assert := assert.New(t)

	task := func(ctx context.Context, worker int) error {
		switch worker {
		case 1:
			return errors.New("bad input")
		case 2:
			panic("worker crashed")
		}
		return nil
	}
	rep, err := Run(context.Background(), nil, 2, 4, task)
	assert.Error(err)
	assert.Contains(err.Error(), "bad input")
	assert.Contains(err.Error(), "worker crashed")
	assert.Equal(2, rep.Completed)
	assert.NoError(CheckEvents(rep.Events, 2))
}

func TestRunFillsButNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 4).Draw(t, "capacity")
		workers := rapid.IntRange(capacity+1, capacity+3).Draw(t, "workers")

		// tasks outlast the workers' start, so the first capacity holders
		// are all inside together
		rep, err := Run(context.Background(), nil, capacity, workers, Sleep(25*time.Millisecond))
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if rep.MaxAdmitted != capacity {
			t.Fatalf("max admitted %d, capacity %d", rep.MaxAdmitted, capacity)
		}
		if rep.Completed != workers {
			t.Fatalf("%d of %d tasks completed", rep.Completed, workers)
		}
	})
}
