// File: internal/registry/store.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sharded, thread-safe connection store. Shard locks cover only map
// membership; state and last-activity live in per-entry atomics so workers
// and the reaper never contend on a shard lock for the hot-path handoff.

package registry

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is one registered connection. All fields are owned by the registry;
// mutation goes through the atomic accessors.
type Entry struct {
	id           uint64
	closer       io.Closer
	state        atomic.Int32
	lastActivity atomic.Int64 // unix nanoseconds
	closeOnce    sync.Once
	released     atomic.Bool
}

// ID returns the connection id.
func (e *Entry) ID() uint64 { return e.id }

// State returns the current lifecycle state.
func (e *Entry) State() ConnState {
	return ConnState(e.state.Load())
}

// SetState unconditionally moves the entry to s and refreshes the
// last-activity timestamp in the same ownership step.
func (e *Entry) SetState(s ConnState) {
	e.state.Store(int32(s))
	e.Touch()
}

// CompareAndSwapState transitions from old to new atomically. This is the
// ownership handoff primitive: a worker resuming a parked connection and the
// reaper closing an idle one both CAS out of StateKeepAliveWait, and exactly
// one of them wins.
func (e *Entry) CompareAndSwapState(old, new ConnState) bool {
	if !e.state.CompareAndSwap(int32(old), int32(new)) {
		return false
	}
	e.Touch()
	return true
}

// Touch refreshes the last-activity timestamp.
func (e *Entry) Touch() {
	e.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the most recent state change or touch.
func (e *Entry) LastActivity() time.Time {
	return time.Unix(0, e.lastActivity.Load())
}

// Close invalidates the underlying handle. Idempotent; any in-flight read
// or write on the handle fails fast once Close returns.
func (e *Entry) Close() {
	e.closeOnce.Do(func() {
		if e.closer != nil {
			_ = e.closer.Close()
		}
	})
}

// Release marks the entry as accounted for and reports whether this caller
// was first. Teardown paths can race (worker close, reaper, shutdown sweep);
// per-connection bookkeeping such as active-count decrements must run only
// on the first release.
func (e *Entry) Release() bool {
	return e.released.CompareAndSwap(false, true)
}

// Store is the process-wide connection registry.
type Store struct {
	shards []*storeShard
	mask   uint64
}

type storeShard struct {
	mu      sync.RWMutex
	entries map[uint64]*Entry
}

// NewStore constructs a registry with shardCount shards, rounded up to a
// power of two for mask-based selection.
func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = 16
	}
	n := nextPowerOfTwo(uint64(shardCount))
	shards := make([]*storeShard, n)
	for i := range shards {
		shards[i] = &storeShard{entries: make(map[uint64]*Entry)}
	}
	return &Store{shards: shards, mask: n - 1}
}

func (s *Store) shard(id uint64) *storeShard {
	return s.shards[id&s.mask]
}

// Register adds a connection under id and returns its entry in
// StateAwaitingRequest.
func (s *Store) Register(id uint64, closer io.Closer) *Entry {
	e := &Entry{id: id, closer: closer}
	e.state.Store(int32(StateAwaitingRequest))
	e.Touch()
	sh := s.shard(id)
	sh.mu.Lock()
	sh.entries[id] = e
	sh.mu.Unlock()
	return e
}

// Get fetches an entry if present.
func (s *Store) Get(id uint64) (*Entry, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[id]
	return e, ok
}

// Delete removes the entry. It does not close the handle; closing is the
// owner's responsibility per the handoff discipline.
func (s *Store) Delete(id uint64) {
	sh := s.shard(id)
	sh.mu.Lock()
	delete(sh.entries, id)
	sh.mu.Unlock()
}

// Range applies fn to every entry. fn must not call back into the store for
// the same shard.
func (s *Store) Range(fn func(*Entry)) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		snapshot := make([]*Entry, 0, len(sh.entries))
		for _, e := range sh.entries {
			snapshot = append(snapshot, e)
		}
		sh.mu.RUnlock()
		for _, e := range snapshot {
			fn(e)
		}
	}
}

// Len returns the number of registered connections.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint64) uint64 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++
	return v
}
