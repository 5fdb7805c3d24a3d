// File: server/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package server orchestrates the hioload-http connection core: it binds
// the listening socket, accepts connections into the registry, dispatches
// them to the bounded worker pool, and drives each connection through the
// read, parse, dispatch, write, keep-alive cycle. Content generation stays
// outside; the server calls the api.Handler once per parsed request.
package server
