package scanner

import (
	"sync"
	"sync/atomic"
)

// Queue is the stack of directories shared by all workers.
//
// PopWait blocks on an empty stack. When the last of the configured workers
// starts waiting on an empty stack, nobody is left who could push, so the
// queue flips to done and every waiter returns false. The check happens
// under the same lock as Push, so no push can slip in between.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []WorkItem
	workers int
	waiters int
	done    bool

	size atomic.Uint64
}

// NewQueue returns a queue for the given number of workers. Exactly that many
// goroutines must consume it with PopWait, otherwise it never completes.
func NewQueue(workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	q := &Queue{workers: workers}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a directory and wakes one waiting worker.
func (q *Queue) Push(item WorkItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.size.Add(1)
	q.mu.Unlock()

	q.cond.Signal()
}

// PopWait returns the most recently pushed item, blocking while the stack is
// empty. It returns false once the traversal is complete or aborted.
func (q *Queue) PopWait() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.waiters++

	for len(q.items) == 0 {
		if q.done {
			return WorkItem{}, false
		}
		if q.waiters == q.workers {
			// waiters is left as is so that late wakers see the same state
			q.done = true
			q.cond.Broadcast()
			return WorkItem{}, false
		}
		q.cond.Wait()
	}

	q.waiters--

	if q.done {
		return WorkItem{}, false
	}

	return q.popLocked(), true
}

// TryPop returns immediately; false means the stack was empty.
func (q *Queue) TryPop() (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || q.done {
		return WorkItem{}, false
	}
	return q.popLocked(), true
}

func (q *Queue) popLocked() WorkItem {
	last := len(q.items) - 1
	item := q.items[last]
	q.items[last] = WorkItem{}
	q.items = q.items[:last]
	q.size.Add(^uint64(0))
	return item
}

// Len is a lock-free approximation of the stack size. It is only good for
// heuristics.
func (q *Queue) Len() uint64 {
	return q.size.Load()
}

// Abort marks the queue done and wakes every waiter. Items still on the stack
// are dropped.
func (q *Queue) Abort() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()

	q.cond.Broadcast()
}

// Done reports whether the queue reached the done state.
func (q *Queue) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}
