// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime metrics for the connection core. Counters are plain atomics
// updated on the hot path; Snapshot materializes them into a map for
// embedding programs and debug endpoints.

package control

import "sync/atomic"

// Metrics aggregates the core's operational counters.
type Metrics struct {
	Accepted        atomic.Int64 // connections accepted
	Active          atomic.Int64 // connections currently registered
	Requests        atomic.Int64 // requests parsed and dispatched
	KeepAliveReuses atomic.Int64 // requests beyond the first on a connection
	Reaped          atomic.Int64 // connections closed by the idle reaper
	Rejected        atomic.Int64 // connections refused on pool saturation
	ParseErrors     atomic.Int64 // malformed or unsupported requests
	IOErrors        atomic.Int64 // read/write failures
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"accepted":         m.Accepted.Load(),
		"active":           m.Active.Load(),
		"requests":         m.Requests.Load(),
		"keepalive_reuses": m.KeepAliveReuses.Load(),
		"reaped":           m.Reaped.Load(),
		"rejected":         m.Rejected.Load(),
		"parse_errors":     m.ParseErrors.Load(),
		"io_errors":        m.IOErrors.Load(),
	}
}
