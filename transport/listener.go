// File: transport/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-independent listener factory and per-connection socket tuning.

package transport

import "net"

// Config holds listening socket parameters.
type Config struct {
	// Addr is the host:port to bind, e.g. ":8080" or "127.0.0.1:0".
	Addr string
	// Backlog is the accept queue depth handed to listen(2). Zero or
	// negative selects the platform maximum.
	Backlog int
}

// Listen binds a TCP listening socket per cfg using the platform-specific
// path.
func Listen(cfg Config) (net.Listener, error) {
	return listen(cfg)
}

// Tune applies per-connection socket options to an accepted connection:
// Nagle off, TCP keep-alive probes on.
func Tune(c net.Conn) {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(true)
	_ = tc.SetKeepAlive(true)
}
