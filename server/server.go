// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server facade: listener binding, accept loop, connection registration,
// dispatch to the worker pool, and graceful shutdown.

package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-http/api"
	"github.com/momentics/hioload-http/control"
	"github.com/momentics/hioload-http/internal/concurrency"
	"github.com/momentics/hioload-http/internal/registry"
	"github.com/momentics/hioload-http/protocol"
	"github.com/momentics/hioload-http/transport"
)

// Server is the connection-handling core. Construct with New, then Start;
// Shutdown tears all subsystems down gracefully.
type Server struct {
	cfg     *Config
	handler api.Handler

	ln      net.Listener
	exec    *concurrency.Executor
	conns   *registry.Store
	reaper  *registry.Reaper
	metrics *control.Metrics

	nextID     atomic.Uint64
	closed     atomic.Bool
	acceptDone chan struct{}

	mu      sync.Mutex
	started bool
}

// New creates a server serving requests with handler. A nil cfg selects
// DefaultConfig.
func New(cfg *Config, handler api.Handler) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		cfg:     cfg.withDefaults(),
		handler: handler,
		conns:   registry.NewStore(16),
		metrics: &control.Metrics{},
	}
}

// Start binds the listener and launches the accept loop, worker pool, and
// idle reaper. It does not block.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.closed.Load() {
		return api.ErrServerClosed
	}
	if s.handler == nil {
		return errors.New("server: nil handler")
	}

	ln, err := transport.Listen(transport.Config{Addr: s.cfg.Addr, Backlog: s.cfg.Backlog})
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	s.ln = ln
	s.exec = concurrency.NewExecutor(s.cfg.PoolSize, s.cfg.QueueCapacity, s.cfg.BlockOnSaturation)

	if s.cfg.IdleTimeout > 0 {
		s.reaper = registry.NewReaper(s.conns, s.cfg.IdleTimeout, s.cfg.ReapInterval, func(e *registry.Entry) {
			s.metrics.Reaped.Add(1)
			if e.Release() {
				s.metrics.Active.Add(-1)
			}
		})
		s.reaper.Start()
	}

	s.acceptDone = make(chan struct{})
	go s.acceptLoop()
	s.started = true
	log.Printf("server: listening on %s (pool=%d queue=%d)", ln.Addr(), s.cfg.PoolSize, s.cfg.QueueCapacity)
	return nil
}

// Addr returns the bound listener address, useful when Addr was ":0".
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Metrics exposes the server's operational counters.
func (s *Server) Metrics() *control.Metrics {
	return s.metrics
}

// acceptLoop accepts connections until the listener closes. With
// BlockOnSaturation set, a full task queue blocks this loop inside Submit,
// which is the bounded-admission backpressure: the kernel backlog absorbs
// the burst and overflow connections are refused at the TCP level.
func (s *Server) acceptLoop() {
	defer close(s.acceptDone)
	for {
		rwc, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			log.Printf("server: accept: %v", err)
			continue
		}
		s.dispatch(rwc)
	}
}

// dispatch registers an accepted connection and submits its first
// processing step to the pool.
func (s *Server) dispatch(rwc net.Conn) {
	transport.Tune(rwc)
	id := s.nextID.Add(1)
	entry := s.conns.Register(id, rwc)
	s.metrics.Accepted.Add(1)
	s.metrics.Active.Add(1)

	c := newConn(id, s, rwc, entry)
	if err := s.exec.Submit(c.serve); err != nil {
		s.metrics.Rejected.Add(1)
		s.conns.Delete(id)
		if entry.Release() {
			s.metrics.Active.Add(-1)
		}
		s.refuse(rwc)
	}
}

// refuse answers a connection the pool cannot admit with 503 and closes it.
func (s *Server) refuse(rwc net.Conn) {
	_ = rwc.SetWriteDeadline(time.Now().Add(time.Second))
	rw := protocol.NewResponseWriter(rwc)
	_ = rw.WriteResponse(protocol.NewResponse(protocol.StatusServiceUnavailable), false, false)
	_ = rwc.Close()
}

// Shutdown stops accepting, closes idle connections, lets in-flight
// request processing finish, and releases the workers. Returns an error
// if teardown exceeds ShutdownTimeout.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !s.closed.CompareAndSwap(false, true) {
		return api.ErrServerClosed
	}
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.ln.Close()
		<-s.acceptDone
		if s.reaper != nil {
			s.reaper.Stop()
		}
		// Parked keep-alive connections are idle; close them now. Their
		// wait goroutines observe the lost CAS and discard silently.
		s.closeParked()
		// Workers notice the closed flag and answer in-flight requests
		// with Connection: close; the pool drains and exits.
		s.exec.Close()
		// Anything still registered is a straggler with an unbounded
		// read; invalidate the handles.
		s.conns.Range(func(e *registry.Entry) {
			e.Close()
			s.conns.Delete(e.ID())
			if e.Release() {
				s.metrics.Active.Add(-1)
			}
		})
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.cfg.ShutdownTimeout):
		return fmt.Errorf("server: shutdown timeout after %v", s.cfg.ShutdownTimeout)
	}
}

func (s *Server) closeParked() {
	s.conns.Range(func(e *registry.Entry) {
		if e.CompareAndSwapState(registry.StateKeepAliveWait, registry.StateClosing) {
			e.Close()
			s.conns.Delete(e.ID())
			if e.Release() {
				s.metrics.Active.Add(-1)
			}
		}
	})
}
