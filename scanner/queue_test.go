package scanner

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePopOrderIsLIFO(t *testing.T) {
	q := NewQueue(1)
	q.Push(WorkItem{Path: "a", Depth: 0})
	q.Push(WorkItem{Path: "b", Depth: 1})
	q.Push(WorkItem{Path: "c", Depth: 2})
	assert.Equal(t, uint64(3), q.Len())

	item, ok := q.PopWait()
	require.True(t, ok)
	assert.Equal(t, WorkItem{Path: "c", Depth: 2}, item)

	item, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "b", item.Path)

	item, ok = q.PopWait()
	require.True(t, ok)
	assert.Equal(t, "a", item.Path)
	assert.Equal(t, uint64(0), q.Len())
}

func TestQueueTryPopOnEmpty(t *testing.T) {
	q := NewQueue(2)
	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.False(t, q.Done(), "a non-blocking pop must not count as waiting")
}

func TestQueueSingleWorkerCompletesImmediately(t *testing.T) {
	q := NewQueue(1)
	_, ok := q.PopWait()
	assert.False(t, ok)
	assert.True(t, q.Done())
}

func TestQueueCompletesWhenAllWorkersWait(t *testing.T) {
	const workers = 8
	q := NewQueue(workers)

	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for range workers {
		wg.Go(func() {
			_, ok := q.PopWait()
			results <- ok
		})
	}

	waitOrFail(t, &wg, 5*time.Second)
	close(results)

	for ok := range results {
		assert.False(t, ok)
	}
	assert.True(t, q.Done())
}

func TestQueuePushWakesWaiter(t *testing.T) {
	q := NewQueue(2)

	got := make(chan WorkItem, 1)
	go func() {
		item, ok := q.PopWait()
		if ok {
			got <- item
		}
	}()

	// give the waiter a chance to block
	time.Sleep(20 * time.Millisecond)
	q.Push(WorkItem{Path: "x", Depth: 3})

	select {
	case item := <-got:
		assert.Equal(t, WorkItem{Path: "x", Depth: 3}, item)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken by push")
	}
	assert.False(t, q.Done())
}

func TestQueueProducerConsumerDrain(t *testing.T) {
	const workers = 4
	const fanout = 3
	const maxDepth = 5

	q := NewQueue(workers)
	q.Push(WorkItem{Path: "r", Depth: 0})

	var (
		mu   sync.Mutex
		seen int
	)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for {
				item, ok := q.PopWait()
				if !ok {
					return
				}
				mu.Lock()
				seen++
				mu.Unlock()
				if item.Depth < maxDepth {
					for range fanout {
						q.Push(WorkItem{Path: item.Path + "/c", Depth: item.Depth + 1})
					}
				}
			}
		})
	}

	waitOrFail(t, &wg, 10*time.Second)

	// 1 + 3 + 9 + 27 + 81 + 243
	assert.Equal(t, 364, seen)
	assert.Equal(t, uint64(0), q.Len())
}

func TestQueueAbortWakesWaiters(t *testing.T) {
	q := NewQueue(3)

	var wg sync.WaitGroup
	for range 2 {
		wg.Go(func() {
			_, ok := q.PopWait()
			assert.False(t, ok)
		})
	}

	time.Sleep(20 * time.Millisecond)
	q.Abort()

	waitOrFail(t, &wg, 5*time.Second)

	q.Push(WorkItem{Path: "late"})
	_, ok := q.TryPop()
	assert.False(t, ok, "an aborted queue hands out nothing")
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("workers did not return within %s", d)
	}
}
