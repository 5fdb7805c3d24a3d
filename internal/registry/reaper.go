// File: internal/registry/reaper.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Idle-timeout reaper. Sweeps the registry on a fixed interval and closes
// connections that have sat in keep-alive wait past the idle threshold.
// Only entries observed in StateKeepAliveWait are touched: a connection a
// worker actively owns is in some other state and is never closed from
// here. The CAS out of StateKeepAliveWait decides races with a worker
// resuming the same connection.

package registry

import (
	"sync"
	"time"
)

// Reaper closes idle keep-alive connections in the background.
type Reaper struct {
	store       *Store
	idleTimeout time.Duration
	interval    time.Duration
	onReap      func(*Entry)

	stopCh  chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

// NewReaper sweeps store every interval, closing entries idle in
// StateKeepAliveWait for longer than idleTimeout. onReap, if non-nil, is
// invoked after each reaped entry (metrics hook).
func NewReaper(store *Store, idleTimeout, interval time.Duration, onReap func(*Entry)) *Reaper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Reaper{
		store:       store,
		idleTimeout: idleTimeout,
		interval:    interval,
		onReap:      onReap,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (r *Reaper) Start() {
	r.stopped.Add(1)
	go func() {
		defer r.stopped.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep(time.Now())
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit. Idempotent.
func (r *Reaper) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.stopped.Wait()
}

// Sweep performs one pass over the registry at the given observation time.
// Exposed for deterministic tests; the background loop calls it on each tick.
func (r *Reaper) Sweep(now time.Time) {
	r.store.Range(func(e *Entry) {
		if e.State() != StateKeepAliveWait {
			return
		}
		if now.Sub(e.LastActivity()) <= r.idleTimeout {
			return
		}
		// Losing this CAS means a worker already resumed the connection.
		if !e.CompareAndSwapState(StateKeepAliveWait, StateClosing) {
			return
		}
		e.Close()
		r.store.Delete(e.ID())
		if r.onReap != nil {
			r.onReap(e)
		}
	})
}
