// Package queue is the hand-off between bus client callbacks and the bridge.
//
// Bus clients deliver messages on their own goroutines and may keep doing so
// while a subscription is being torn down. Queue makes the close of the
// outgoing channel safe against those late callbacks.
package queue

import (
	"sync"

	"github.com/bft-labs/topicflux/internal/domain"
)

// DefaultSize is the capacity of the record channel.
const DefaultSize = 100

// Queue is a bounded record channel with a race-free Close.
type Queue struct {
	out  chan domain.Record
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// New creates a queue with the given capacity. Non-positive means DefaultSize.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	return &Queue{
		out:  make(chan domain.Record, size),
		done: make(chan struct{}),
	}
}

// C returns the receive side.
func (q *Queue) C() <-chan domain.Record {
	return q.out
}

// Push enqueues a record, blocking while the queue is full. It returns false
// when the queue is closing and the record was not enqueued.
func (q *Queue) Push(rec domain.Record) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.out <- rec:
		return true
	case <-q.done:
		return false
	}
}

// Close unblocks pending pushes and closes the channel. Records already
// enqueued stay readable. Close is idempotent.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.out)
		q.mu.Unlock()
	})
}
