//go:build !linux
// +build !linux

// File: transport/listener_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback listen path for platforms without the raw-socket backlog control.
// The OS default backlog applies.

package transport

import "net"

func listen(cfg Config) (net.Listener, error) {
	return net.Listen("tcp", cfg.Addr)
}
