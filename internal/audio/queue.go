package audio

import (
	"sync"
)

// DefaultQueueDepth is the bounded queue capacity used by the playback sink
// and the capture source when the caller does not configure one.
const DefaultQueueDepth = 10

// BoundedQueue is a fixed-capacity FIFO of sample buffers handed between a
// producing goroutine and a draining one. Pushing past capacity evicts the
// oldest entry rather than blocking, so a stalled drain side can never back
// up into the pusher. The lock is held for push/pop bookkeeping only; buffer
// contents are never touched while locked.
type BoundedQueue struct {
	mu    sync.Mutex
	bufs  [][]float32
	head  int
	count int
}

// NewBoundedQueue creates a queue with the given capacity. Non-positive
// capacities fall back to DefaultQueueDepth.
func NewBoundedQueue(capacity int) *BoundedQueue {
	if capacity <= 0 {
		capacity = DefaultQueueDepth
	}
	return &BoundedQueue{
		bufs: make([][]float32, capacity),
	}
}

// Push appends a buffer, evicting the oldest entry if the queue is full.
// Ownership of buf transfers to the queue. Returns true when an entry was
// evicted.
func (q *BoundedQueue) Push(buf []float32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.bufs) {
		// Overwrite the oldest slot and advance past it.
		q.bufs[q.head] = buf
		q.head = (q.head + 1) % len(q.bufs)
		return true
	}

	q.bufs[(q.head+q.count)%len(q.bufs)] = buf
	q.count++
	return false
}

// Pop removes and returns the oldest buffer. The second return is false when
// the queue is empty.
func (q *BoundedQueue) Pop() ([]float32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, false
	}

	buf := q.bufs[q.head]
	q.bufs[q.head] = nil
	q.head = (q.head + 1) % len(q.bufs)
	q.count--
	return buf, true
}

// Len returns the number of queued buffers.
func (q *BoundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *BoundedQueue) Cap() int {
	return len(q.bufs)
}

// Clear drops all queued buffers.
func (q *BoundedQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.bufs {
		q.bufs[i] = nil
	}
	q.head = 0
	q.count = 0
}
