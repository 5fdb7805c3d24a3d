// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection state machine. One executor task owns the connection
// exclusively and drives it read -> parse -> dispatch -> write, looping
// while pipelined requests are already buffered. When the connection goes
// idle in keep-alive, the worker is released and a lightweight wait
// goroutine re-submits the connection on the next readable byte; the idle
// reaper may win that race and close it instead.

package server

import (
	"errors"
	"io"
	"log"
	"net"
	"time"

	"github.com/momentics/hioload-http/internal/registry"
	"github.com/momentics/hioload-http/protocol"
)

type conn struct {
	id    uint64
	srv   *Server
	rwc   net.Conn
	entry *registry.Entry

	parser *protocol.Parser
	writer *protocol.ResponseWriter

	reqCount uint64
}

func newConn(id uint64, srv *Server, rwc net.Conn, entry *registry.Entry) *conn {
	return &conn{
		id:     id,
		srv:    srv,
		rwc:    rwc,
		entry:  entry,
		parser: protocol.NewParser(rwc, srv.cfg.MaxHeaderBytes),
		writer: protocol.NewResponseWriter(rwc),
	}
}

// serve is one worker-pool task: it processes requests on the connection
// until it must block waiting for a new request, then either parks the
// connection (keep-alive) or closes it. Responses go out strictly in the
// order requests were parsed, because a single owner drives both sides.
func (c *conn) serve() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("conn %d: recovered panic: %v", c.id, r)
			c.close()
		}
	}()

	for {
		c.entry.SetState(registry.StateReadingHeaders)
		c.setReadDeadline(c.srv.cfg.ReadTimeout)
		req, err := c.parser.ReadRequest()
		if err != nil {
			c.handleParseError(err)
			return
		}
		req.RemoteAddr = c.rwc.RemoteAddr().String()
		c.reqCount++
		c.srv.metrics.Requests.Add(1)
		if c.reqCount > 1 {
			c.srv.metrics.KeepAliveReuses.Add(1)
		}

		c.entry.SetState(registry.StateReadingBody)
		if req.ExpectsContinue() {
			c.setWriteDeadline()
			if err := c.writer.WriteInterim(protocol.StatusContinue); err != nil {
				c.ioError("write 100-continue", err)
				return
			}
		}

		c.entry.SetState(registry.StateDispatching)
		resp := c.srv.handler.Handle(req)
		if resp == nil {
			resp = protocol.NewResponse(protocol.StatusInternalError)
		}

		// Position the stream at the next request boundary before writing:
		// the handler may have left body bytes unread.
		if err := c.drainBody(req); err != nil {
			c.handleParseError(err)
			return
		}

		keepAlive := req.KeepAlive() && !c.srv.closed.Load()

		c.entry.SetState(registry.StateWritingResponse)
		c.setWriteDeadline()
		if err := c.writer.WriteResponse(resp, keepAlive, req.Method == "HEAD"); err != nil {
			c.ioError("write response", err)
			return
		}

		if !keepAlive {
			c.close()
			return
		}
		if c.parser.Buffered() > 0 {
			// Pipelined request already buffered; keep the worker.
			continue
		}

		// Hand ownership to the keep-alive wait. State change and activity
		// timestamp update in one step; from here only a successful CAS
		// out of StateKeepAliveWait may touch the connection.
		c.entry.SetState(registry.StateKeepAliveWait)
		go c.awaitReadable()
		return
	}
}

// awaitReadable blocks outside the worker pool until the connection has
// data, then reclaims ownership and re-submits a processing step. A failed
// handle means the reaper or shutdown closed the connection; the lost CAS
// makes that case a silent discard.
func (c *conn) awaitReadable() {
	if idle := c.srv.cfg.IdleTimeout; idle > 0 {
		// Backstop only; the reaper normally fires first.
		_ = c.rwc.SetReadDeadline(time.Now().Add(idle + 2*c.srv.cfg.ReapInterval))
	} else {
		_ = c.rwc.SetReadDeadline(time.Time{})
	}

	_, err := c.parser.Peek(1)
	if err != nil {
		if c.entry.CompareAndSwapState(registry.StateKeepAliveWait, registry.StateClosing) {
			c.teardown()
		}
		return
	}
	if !c.entry.CompareAndSwapState(registry.StateKeepAliveWait, registry.StateAwaitingRequest) {
		return
	}
	if err := c.srv.exec.Submit(c.serve); err != nil {
		c.close()
	}
}

// handleParseError maps a failed request read to the wire-level reply and
// closes the connection. Buffered pipelined bytes after a malformed request
// are never parsed; the boundary cannot be trusted.
func (c *conn) handleParseError(err error) {
	switch {
	case errors.Is(err, protocol.ErrMalformedRequest):
		c.srv.metrics.ParseErrors.Add(1)
		c.reject(protocol.StatusBadRequest)
	case errors.Is(err, protocol.ErrHeaderTooLarge):
		c.srv.metrics.ParseErrors.Add(1)
		c.reject(protocol.StatusHeaderTooLarge)
	case errors.Is(err, protocol.ErrUnsupportedMethod) || errors.Is(err, protocol.ErrUnsupportedVersion):
		c.srv.metrics.ParseErrors.Add(1)
		c.reject(protocol.StatusNotImplemented)
	case err == io.EOF || errors.Is(err, net.ErrClosed):
		// Peer closed between requests, or our own shutdown; silent.
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			// No request arrived within the read deadline; silent close.
			break
		}
		c.srv.metrics.IOErrors.Add(1)
		log.Printf("conn %d: read: %v", c.id, err)
	}
	c.close()
}

// reject writes an error-status response with Connection: close.
func (c *conn) reject(code int) {
	c.setWriteDeadline()
	_ = c.writer.WriteResponse(protocol.NewResponse(code), false, false)
}

func (c *conn) ioError(op string, err error) {
	if !errors.Is(err, net.ErrClosed) {
		c.srv.metrics.IOErrors.Add(1)
		log.Printf("conn %d: %s: %v", c.id, op, err)
	}
	c.close()
}

// drainBody consumes request body bytes the handler left unread.
func (c *conn) drainBody(req *protocol.Request) error {
	if req.Body == nil {
		return nil
	}
	c.setReadDeadline(c.srv.cfg.ReadTimeout)
	_, err := io.Copy(io.Discard, req.Body)
	return err
}

func (c *conn) setReadDeadline(d time.Duration) {
	if d > 0 {
		_ = c.rwc.SetReadDeadline(time.Now().Add(d))
	} else {
		_ = c.rwc.SetReadDeadline(time.Time{})
	}
}

func (c *conn) setWriteDeadline() {
	if d := c.srv.cfg.WriteTimeout; d > 0 {
		_ = c.rwc.SetWriteDeadline(time.Now().Add(d))
	} else {
		_ = c.rwc.SetWriteDeadline(time.Time{})
	}
}

// close is the owning worker's teardown path.
func (c *conn) close() {
	c.entry.SetState(registry.StateClosing)
	c.teardown()
}

func (c *conn) teardown() {
	c.entry.Close()
	c.srv.conns.Delete(c.id)
	if c.entry.Release() {
		c.srv.metrics.Active.Add(-1)
	}
}
