// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration surface.

package server

import "time"

// Config holds all configurable parameters of the connection core.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string

	// Backlog is the accept queue depth handed to listen(2). Zero selects
	// the platform maximum.
	Backlog int

	// PoolSize is the number of worker goroutines processing connections.
	PoolSize int

	// QueueCapacity bounds the pending-task queue feeding the workers.
	QueueCapacity int

	// IdleTimeout closes keep-alive connections with no activity for this
	// long. Zero disables idle reaping.
	IdleTimeout time.Duration

	// ReadTimeout and WriteTimeout are per-I/O-operation deadlines. They
	// bound every blocking socket read and write on the data path.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxHeaderBytes caps the request line plus header block per request.
	MaxHeaderBytes int

	// BlockOnSaturation selects the backpressure policy when the task
	// queue is full: true blocks the accept loop until space frees
	// (bounded admission), false refuses the connection with
	// 503 Service Unavailable.
	BlockOnSaturation bool

	// ReapInterval is the idle reaper's sweep period.
	ReapInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		Backlog:           512,
		PoolSize:          4,
		QueueCapacity:     256,
		IdleTimeout:       30 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BlockOnSaturation: false,
		ReapInterval:      time.Second,
		ShutdownTimeout:   60 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	out := *c
	if out.Addr == "" {
		out.Addr = def.Addr
	}
	if out.PoolSize <= 0 {
		out.PoolSize = def.PoolSize
	}
	if out.QueueCapacity <= 0 {
		out.QueueCapacity = def.QueueCapacity
	}
	if out.MaxHeaderBytes <= 0 {
		out.MaxHeaderBytes = def.MaxHeaderBytes
	}
	if out.ReapInterval <= 0 {
		out.ReapInterval = def.ReapInterval
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = def.ShutdownTimeout
	}
	return &out
}
