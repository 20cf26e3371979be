package containers

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQueue(t *testing.T) {
	assert := assert.New(t)
	q := NewQueue[int]()

	_, ok := q.TryDequeue()
	assert.False(ok)

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	assert.Equal(3, q.Len())

	x, ok := q.TryDequeue()
	assert.True(ok)
	assert.Equal(1, x)

	q.TryDequeue() // 2
	q.Enqueue(4)
	x, _ = q.TryDequeue()
	assert.Equal(3, x)

	x, _ = q.TryDequeue()
	assert.Equal(4, x)
	assert.Equal(0, q.Len())
}

func TestStack(t *testing.T) {
	assert := assert.New(t)
	s := NewStack[string]()

	_, ok := s.TryPop()
	assert.False(ok)

	s.Push("a")
	s.Push("b")
	assert.Equal(2, s.Len())
	x, ok := s.TryPop()
	assert.True(ok)
	assert.Equal("b", x)
	x, _ = s.TryPop()
	assert.Equal("a", x)
	assert.Equal(0, s.Len())
}

func TestMapStoreLoad(t *testing.T) {
	assert := assert.New(t)

	m := NewMap[uint64](10)
	_, ok := m.Load("1")
	assert.False(ok)

	m.Store("1", 10)
	v, ok := m.Load("1")
	assert.True(ok)
	assert.Equal(uint64(10), v)

	assert.False(m.TryAdd("1", 11), "key exists")
	v, _ = m.Load("1")
	assert.Equal(uint64(10), v)
	assert.True(m.TryAdd("3", 30))

	assert.Equal(uint64(1), m.AddOrUpdate("new", 1, func(v uint64) uint64 { return v * 2 }))
	assert.Equal(uint64(2), m.AddOrUpdate("new", 1, func(v uint64) uint64 { return v * 2 }))

	v, ok = m.TryRemove("3")
	assert.True(ok)
	assert.Equal(uint64(30), v)
	_, ok = m.TryRemove("3")
	assert.False(ok)
	assert.Equal(2, m.Len())

	keys := []string{}
	m.Range(func(k string, v uint64) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)
	assert.Equal([]string{"1", "new"}, keys)
}

func TestMapSingleShard(t *testing.T) {
	m := NewMap[int](0)
	m.Store("a", 1)
	m.Store("b", 2)
	assert.Equal(t, 2, m.Len())
}

func TestConcurrentLoadStoreOrder(t *testing.T) {
	m := NewMap[int](5)

	// Check that loads observe stores in the right order.
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		for i := 0; i < 100; i++ {
			m.Store(fmt.Sprint(i), i*10)
		}
		wg.Done()
	}()

	for load_i := 0; load_i < 10; load_i++ {
		wg.Add(1)
		go func() {
			// once one load returns true, the rest should, too
			found := false
			for i := 99; i >= 0; i-- {
				_, ok := m.Load(fmt.Sprint(i))
				if found {
					assert.True(t, ok)
				}
				if ok {
					found = true
				}
			}
			wg.Done()
		}()
	}
	wg.Wait()
}

func TestBag(t *testing.T) {
	assert := assert.New(t)

	b := NewBag[int](3)
	_, ok := b.TryTake()
	assert.False(ok)
	for i := 0; i < 10; i++ {
		b.Add(i % 2)
	}
	assert.Equal(10, b.Len())
	assert.ElementsMatch([]int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1}, b.Items())

	x, ok := b.TryTake()
	assert.True(ok)
	assert.Contains([]int{0, 1}, x)
	assert.Equal(9, b.Len())
}

func TestCheckConservation(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(CheckConservation(4, [][]int{{0, 2}, {3}}, []int{1}))
	assert.Error(CheckConservation(4, [][]int{{0, 2}}, []int{1}), "3 lost")
	assert.Error(CheckConservation(3, [][]int{{0, 0}}, []int{1, 2}), "0 duplicated")
	assert.Error(CheckConservation(2, [][]int{{5}}, []int{0, 1}), "never inserted")
}

func TestCheckPerProducerFIFO(t *testing.T) {
	assert.NoError(t, checkPerProducerFIFO([][]int{{0, 10, 1, 11}}, 10))
	assert.Error(t, checkPerProducerFIFO([][]int{{1, 0}}, 10))
}

func TestRunContainers(t *testing.T) {
	w := Workload{Producers: 4, Consumers: 3, PerProducer: 500, Removals: 1500}
	for _, tc := range []struct {
		name string
		run  func(Workload) (Accounting, error)
	}{
		{"queue", func(w Workload) (Accounting, error) { return RunQueue(nil, w) }},
		{"stack", func(w Workload) (Accounting, error) { return RunStack(nil, w) }},
		{"bag", func(w Workload) (Accounting, error) { return RunBag(nil, w) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			acct, err := tc.run(w)
			require.NoError(t, err)
			assert.Equal(t, 2000, acct.Inserted)
			assert.Equal(t, 1500, acct.Removed)
			assert.Equal(t, 500, acct.Len)
		})
	}
}

func TestRunRejectsTooManyRemovals(t *testing.T) {
	_, err := RunQueue(nil, Workload{Producers: 1, Consumers: 1, PerProducer: 1, Removals: 2})
	assert.Error(t, err)
}

func TestRunMap(t *testing.T) {
	assert := assert.New(t)

	rep, err := RunMap(nil, 8, 1000)
	assert.NoError(err)
	assert.Equal(8000, rep.Final)
	assert.Equal(1, rep.TryAddWins)
	// owner, hits and one key per thread
	assert.Equal(10, rep.Len)
}

func TestContainerAccountingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := Workload{
			Producers:   rapid.IntRange(1, 4).Draw(t, "producers"),
			Consumers:   rapid.IntRange(1, 4).Draw(t, "consumers"),
			PerProducer: rapid.IntRange(1, 100).Draw(t, "perProducer"),
		}
		w.Removals = rapid.IntRange(0, w.Producers*w.PerProducer).Draw(t, "removals")

		for name, run := range map[string]func(Workload) (Accounting, error){
			"queue": func(w Workload) (Accounting, error) { return RunQueue(nil, w) },
			"stack": func(w Workload) (Accounting, error) { return RunStack(nil, w) },
			"bag":   func(w Workload) (Accounting, error) { return RunBag(nil, w) },
		} {
			acct, err := run(w)
			if err != nil {
				t.Fatalf("%s: %v", name, err)
			}
			if acct.Removed != w.Removals || acct.Len != acct.Inserted-acct.Removed {
				t.Fatalf("%s: %+v", name, acct)
			}
		}
	})
}

func TestAddOrUpdateAppliesEachUpdateOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		threads := rapid.IntRange(1, 8).Draw(t, "threads")
		m := NewMap[[]int](4)

		var wg sync.WaitGroup
		for i := 0; i < threads; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.AddOrUpdate("log", []int{i}, func(v []int) []int {
					return append(append([]int(nil), v...), i)
				})
			}()
		}
		wg.Wait()

		v, _ := m.Load("log")
		sort.Ints(v)
		for i := 0; i < threads; i++ {
			if len(v) != threads || v[i] != i {
				t.Fatalf("updates applied %v, want each of 0..%d once", v, threads-1)
			}
		}
	})
}
