// File: api/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Public contracts of the hioload-http connection-handling core. The api
// package holds the content-handler interface consumed by the server and the
// error values shared across subsystems. It has no dependencies besides the
// wire-level protocol package so embedding programs can implement handlers
// without pulling in the server internals.
package api
