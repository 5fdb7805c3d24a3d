// File: control/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Observability hooks for hioload-http: thread-safe operational counters
// maintained by the server and exposed as snapshots to embedding programs.
package control
