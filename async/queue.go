// Package async runs fire-and-forget work on a fixed pool of workers behind
// a bounded queue. When the queue is full new work is dropped rather than
// blocking the caller.
package async

import (
	"sync"
	"sync/atomic"
)

type Queue struct {
	q    chan func()
	wg   sync.WaitGroup
	once sync.Once
	mu   sync.RWMutex
	done bool

	dropped atomic.Uint64
}

// New starts workers goroutines draining a queue of qlen slots.
// Non-positive values default to 1 worker and 1024 slots.
func New(workers, qlen int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	q := &Queue{q: make(chan func(), qlen)}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer q.wg.Done()
			for f := range q.q {
				f()
			}
		}()
	}
	return q
}

// Submit enqueues f and reports whether it was accepted. It never blocks.
func (q *Queue) Submit(f func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.done {
		q.dropped.Add(1)
		return false
	}
	select {
	case q.q <- f:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped is the number of rejected submissions so far.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Close stops accepting work and waits for queued work to finish.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.done = true
		close(q.q)
		q.mu.Unlock()
		q.wg.Wait()
	})
}
