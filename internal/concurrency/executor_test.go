package concurrency

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-http/api"
)

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	e := NewExecutor(2, 16, false)
	defer e.Close()

	var done sync.WaitGroup
	var count atomic.Int32
	for i := 0; i < 10; i++ {
		done.Add(1)
		if err := e.Submit(func() {
			count.Add(1)
			done.Done()
		}); err != nil {
			t.Fatal(err)
		}
	}
	done.Wait()
	if count.Load() != 10 {
		t.Fatalf("ran %d tasks, want 10", count.Load())
	}
}

func TestExecutorBoundsConcurrency(t *testing.T) {
	const workers = 3
	e := NewExecutor(workers, 64, false)
	defer e.Close()

	var cur, peak atomic.Int32
	var done sync.WaitGroup
	for i := 0; i < 30; i++ {
		done.Add(1)
		err := e.Submit(func() {
			defer done.Done()
			n := cur.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			cur.Add(-1)
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	done.Wait()
	if got := peak.Load(); got > workers {
		t.Fatalf("observed %d concurrent tasks, pool size is %d", got, workers)
	}
}

func TestSubmitFailsFastWhenSaturated(t *testing.T) {
	e := NewExecutor(1, 1, false)
	defer e.Close()

	gate := make(chan struct{})
	started := make(chan struct{})
	if err := e.Submit(func() { close(started); <-gate }); err != nil {
		t.Fatal(err)
	}
	<-started // worker busy

	// One task fits the queue; the next must be rejected.
	if err := e.Submit(func() {}); err != nil {
		t.Fatal(err)
	}
	err := e.Submit(func() {})
	if !errors.Is(err, api.ErrPoolSaturated) {
		t.Fatalf("err = %v, want ErrPoolSaturated", err)
	}
	close(gate)
}

func TestSubmitBlocksInBoundedAdmissionMode(t *testing.T) {
	e := NewExecutor(1, 1, true)
	defer e.Close()

	gate := make(chan struct{})
	started := make(chan struct{})
	if err := e.Submit(func() { close(started); <-gate }); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := e.Submit(func() {}); err != nil { // fills the queue
		t.Fatal(err)
	}

	submitted := make(chan error, 1)
	go func() { submitted <- e.Submit(func() {}) }()

	select {
	case err := <-submitted:
		t.Fatalf("blocking submit returned early: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(gate) // worker drains the queue, freeing a slot
	select {
	case err := <-submitted:
		if err != nil {
			t.Fatalf("blocking submit failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocking submit never completed")
	}
}

func TestTasksRunInSubmissionOrder(t *testing.T) {
	e := NewExecutor(1, 64, false)
	defer e.Close()

	var mu sync.Mutex
	var order []int
	var done sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		done.Add(1)
		if err := e.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			done.Done()
		}); err != nil {
			t.Fatal(err)
		}
	}
	done.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, queue is not FIFO", i, v)
		}
	}
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	e := NewExecutor(1, 64, false)

	var count atomic.Int32
	gate := make(chan struct{})
	started := make(chan struct{})
	_ = e.Submit(func() { close(started); <-gate; count.Add(1) })
	<-started
	for i := 0; i < 5; i++ {
		if err := e.Submit(func() { count.Add(1) }); err != nil {
			t.Fatal(err)
		}
	}
	close(gate)
	e.Close()
	if count.Load() != 6 {
		t.Fatalf("ran %d tasks before close completed, want 6", count.Load())
	}
	if err := e.Submit(func() {}); !errors.Is(err, ErrExecutorClosed) {
		t.Fatalf("err = %v, want ErrExecutorClosed", err)
	}
}

func TestPanickingTaskDoesNotKillWorker(t *testing.T) {
	e := NewExecutor(1, 16, false)
	defer e.Close()

	done := make(chan struct{})
	_ = e.Submit(func() { panic("boom") })
	if err := e.Submit(func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestSubmitNilTask(t *testing.T) {
	e := NewExecutor(1, 4, false)
	defer e.Close()
	if err := e.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Fatalf("err = %v, want ErrNilTask", err)
	}
}
