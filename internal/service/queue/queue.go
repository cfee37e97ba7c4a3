// Package queue provides the unbounded FIFO that decouples frame sampling from delivery.
package queue

import (
	"errors"
	"sync"

	"autosendpic/internal/model"
)

// ErrClosed is returned by Dequeue once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Queue is an unbounded, thread-safe FIFO of captured items.
//
// Enqueue never blocks. Dequeue blocks on a sync.Cond until an item is
// available or Close is called.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*model.CapturedItem
	closed bool
}

// New returns an empty, open queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends item to the tail. It reports false if the queue is already
// closed, in which case the item was not accepted.
func (q *Queue) Enqueue(item *model.CapturedItem) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// Dequeue removes and returns the head item, blocking while the queue is empty.
// After Close it returns ErrClosed.
func (q *Queue) Dequeue() (*model.CapturedItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.closed {
		return nil, ErrClosed
	}

	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, nil
}

// Len returns the number of items waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes every blocked Dequeue and hands back the items that were still
// waiting, oldest first. Subsequent calls return nil.
func (q *Queue) Close() []*model.CapturedItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	pending := q.items
	q.items = nil
	q.cond.Broadcast()
	return pending
}
