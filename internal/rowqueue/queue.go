// Package rowqueue implements the bounded single-producer/single-consumer
// FIFO connecting the packet transformer to the database writer.
package rowqueue

import (
	"sync"
	"time"

	"github.com/5342/C5SIGMA/internal/metric"
	"github.com/5342/C5SIGMA/internal/pdml"
)

// DefaultCapacity is the backlog cap N; the producer blocks once the queue
// reaches this depth and wakes once depth falls to N/2.
const DefaultCapacity = 1000

// pollInterval is how often a blocked consumer wakes to re-check for
// shutdown, per spec's "poll-based wait is acceptable to keep the consumer
// responsive to flush without platform-specific primitives."
const pollInterval = 500 * time.Millisecond

// Queue is a bounded FIFO guarded by a single mutex and condition variable.
// It is deliberately not a channel with select-based polling: a sentinel
// nil value signals graceful shutdown, and the consumer's wait is woken
// periodically by a ticker goroutine rather than blocking forever, so it
// notices shutdown promptly without busy spinning.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []*pdml.DataRow
	capacity int
	closed   bool
	stopTick chan struct{}
	metrics  *metric.Metrics
}

// New returns a Queue with the given backlog cap and starts its wake
// ticker. metrics may be nil. Call Close to stop the ticker goroutine once
// the queue is no longer needed.
func New(capacity int, metrics *metric.Metrics) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{capacity: capacity, metrics: metrics, stopTick: make(chan struct{})}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	go q.tick()
	return q
}

// tick periodically broadcasts on notEmpty so a consumer blocked in
// Dequeue wakes to re-check its own shutdown/context condition instead of
// waiting forever for a real enqueue.
func (q *Queue) tick() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			q.mu.Lock()
			q.notEmpty.Broadcast()
			q.mu.Unlock()
		case <-q.stopTick:
			return
		}
	}
}

// Close stops the queue's internal wake ticker. Safe to call once after
// the consumer has drained the sentinel.
func (q *Queue) Close() {
	close(q.stopTick)
}

// Enqueue appends row, blocking while the queue is at capacity until depth
// falls to capacity/2. Passing nil enqueues the shutdown sentinel.
func (q *Queue) Enqueue(row *pdml.DataRow) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) >= q.capacity {
		q.notFull.Wait()
	}
	q.items = append(q.items, row)
	if q.metrics != nil {
		q.metrics.SetQueueDepth(len(q.items))
	}
	q.notEmpty.Signal()
}

// Dequeue blocks until an item is available, waking every pollInterval to
// give the caller a chance to notice cancellation; ok is false on such a
// wake-with-nothing-ready, never a real error. A dequeued nil row is the
// shutdown sentinel; Closed() becomes true once it is returned.
func (q *Queue) Dequeue() (row *pdml.DataRow, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		q.notEmpty.Wait()
		if len(q.items) == 0 {
			return nil, false
		}
	}

	row = q.items[0]
	q.items = q.items[1:]
	if q.metrics != nil {
		q.metrics.SetQueueDepth(len(q.items))
	}
	if len(q.items) <= q.capacity/2 {
		q.notFull.Broadcast()
	}
	if row == nil {
		q.closed = true
	}
	return row, true
}

// Closed reports whether the shutdown sentinel has been dequeued.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Depth returns the current backlog length.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
