package concurrent

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierN(t *testing.T) {
	numRun := atomic.Int64{}
	b := NewBarrier()
	b.Add(1)
	b.Add(2)
	for i := 0; i < 3; i++ {
		go func() {
			numRun.Add(1)
			b.Done()
		}()
	}
	b.Wait()
	assert.Equal(t, numRun.Load(), int64(3))
	assert.Equal(t, uint64(0), b.Pending())
}

func TestBarrierRounds(t *testing.T) {
	assert := assert.New(t)

	b := NewBarrier()
	for round := 1; round <= 3; round++ {
		b.Add(uint64(round))
		for i := 0; i < round; i++ {
			go b.Done()
		}
		b.Wait()
		assert.Equal(uint64(0), b.Pending())
	}
	assert.Equal(uint64(6), b.Completed())
}

func TestBarrierNoAdd(t *testing.T) {
	b := NewBarrier()
	b.Wait()
}

func TestBarrierTooManyDone(t *testing.T) {
	b := NewBarrier()
	b.Add(1)
	b.Done()
	assert.Panics(t, b.Done)
}

func TestSpawnJoin(t *testing.T) {
	assert := assert.New(t)

	var x uint64
	h := Spawn("writer", func() {
		x = 42
	})
	assert.NoError(h.Join())
	assert.Equal(uint64(42), x)
	assert.Equal("writer", h.Name())

	// joining twice does not block
	assert.NoError(h.Join())
}

func TestSpawnFault(t *testing.T) {
	h := Spawn("bad", func() {
		panic(io.ErrUnexpectedEOF)
	})
	err := h.Join()
	require.Error(t, err)

	var fault *WorkerFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "bad", fault.Worker)
	assert.NotEmpty(t, fault.Stack)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestGroupCollectsFaults(t *testing.T) {
	assert := assert.New(t)

	var g Group
	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		g.Go("w", func() {
			ran.Add(1)
			if i%2 == 0 {
				panic("boom")
			}
		})
	}
	assert.Equal(5, g.Len())
	err := g.Wait()
	assert.Error(err)
	assert.Equal(int64(5), ran.Load())
	assert.Equal(0, g.Len())
	assert.Contains(err.Error(), "boom")
}

func TestParallel(t *testing.T) {
	var mu sync.Mutex
	var sum uint64
	err := Parallel(10, "adder", func(i int) {
		mu.Lock()
		sum += uint64(i)
		mu.Unlock()
	})
	assert.NoError(t, err)
	assert.Equal(t, uint64(45), sum)
}

func TestStartLine(t *testing.T) {
	assert := assert.New(t)

	line := NewStartLine()
	var started atomic.Int64
	var g Group
	for i := 0; i < 4; i++ {
		g.Go("runner", func() {
			line.Wait()
			started.Add(1)
		})
	}
	line.AwaitWaiting(4)
	assert.Equal(int64(0), started.Load())
	line.Release()
	assert.NoError(g.Wait())
	assert.Equal(int64(4), started.Load())

	// released lines never block
	line.Wait()
}
