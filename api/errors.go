// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Common error values shared across the hioload-http subsystems.

package api

import "errors"

// Errors surfaced at the server and pool boundaries.
var (
	// ErrPoolSaturated is returned by the worker pool when the task queue is
	// at capacity and the pool runs in non-blocking admission mode.
	ErrPoolSaturated = errors.New("worker pool saturated")

	// ErrServerClosed is returned for operations on a server that has been
	// shut down or is shutting down.
	ErrServerClosed = errors.New("server is closed")

	// ErrConnectionClosed is returned for operations on a connection whose
	// handle has already been invalidated.
	ErrConnectionClosed = errors.New("connection is closed")
)
