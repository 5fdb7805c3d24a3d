// File: internal/concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks across a fixed pool of worker goroutines fed by
// one bounded FIFO queue. A panicking task is isolated to its worker
// iteration; the worker logs it and resumes pulling tasks.

package concurrency

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"
)

// TaskFunc is one unit of work, typically a connection processing step.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	queue       *taskQueue
	wg          sync.WaitGroup
	closed      atomic.Bool
	workers     int
	blockOnFull bool
}

// NewExecutor creates an Executor with numWorkers workers and a pending
// queue of queueCapacity tasks. blockOnFull selects the saturation policy:
// true parks Submit until space frees (bounded admission), false makes
// Submit fail fast with api.ErrPoolSaturated. Non-positive arguments fall
// back to runtime.NumCPU() workers and four pending tasks per worker.
func NewExecutor(numWorkers, queueCapacity int, blockOnFull bool) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueCapacity <= 0 {
		queueCapacity = numWorkers * 4
	}
	e := &Executor{
		queue:       newTaskQueue(queueCapacity),
		workers:     numWorkers,
		blockOnFull: blockOnFull,
	}
	for i := 0; i < numWorkers; i++ {
		e.wg.Add(1)
		go e.run()
	}
	return e
}

// Submit enqueues a task according to the saturation policy.
func (e *Executor) Submit(task TaskFunc) error {
	if task == nil {
		return ErrNilTask
	}
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	return e.queue.push(task, e.blockOnFull)
}

// Close stops admission, lets queued and in-flight tasks finish, and waits
// for all workers to exit. Idempotent.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		e.queue.close()
		e.wg.Wait()
	}
}

// NumWorkers returns the worker count.
func (e *Executor) NumWorkers() int {
	return e.workers
}

// QueueLen returns the number of tasks waiting for a worker.
func (e *Executor) QueueLen() int {
	return e.queue.length()
}

func (e *Executor) run() {
	defer e.wg.Done()
	for {
		task, ok := e.queue.pop()
		if !ok {
			return
		}
		e.safeExecute(task)
	}
}

func (e *Executor) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("executor: recovered task panic: %v", r)
		}
	}()
	task()
}
