// File: internal/concurrency/taskqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded FIFO task queue backing the executor, built on eapache/queue's
// ring buffer with condition variables for the full/empty edges.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-http/api"
)

// taskQueue is a capacity-bounded FIFO of pending tasks.
type taskQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *queue.Queue
	capacity int
	closed   bool
}

func newTaskQueue(capacity int) *taskQueue {
	q := &taskQueue{
		items:    queue.New(),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// push enqueues task. With block set, a full queue parks the caller until
// space frees up (bounded admission); otherwise it fails fast with
// api.ErrPoolSaturated.
func (q *taskQueue) push(task TaskFunc, block bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Length() >= q.capacity {
		if q.closed {
			return ErrExecutorClosed
		}
		if !block {
			return api.ErrPoolSaturated
		}
		q.notFull.Wait()
	}
	if q.closed {
		return ErrExecutorClosed
	}
	q.items.Add(task)
	q.notEmpty.Signal()
	return nil
}

// pop blocks until a task is available. ok is false once the queue is closed
// and fully drained; tasks queued before close are still handed out.
func (q *taskQueue) pop() (task TaskFunc, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Length() == 0 {
		if q.closed {
			return nil, false
		}
		q.notEmpty.Wait()
	}
	task = q.items.Remove().(TaskFunc)
	q.notFull.Signal()
	return task, true
}

// close rejects further pushes and wakes all waiters.
func (q *taskQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *taskQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}
