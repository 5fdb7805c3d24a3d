// File: internal/registry/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sharded connection registry and idle reaper for hioload-http. The registry
// tracks every live connection's state and last-activity timestamp; the
// reaper sweeps it on a fixed interval and closes keep-alive connections
// idle past the configured threshold. Ownership handoffs between workers
// and the reaper go through a compare-and-swap on the entry state, so a
// connection is never closed while a worker actively processes it.
package registry
