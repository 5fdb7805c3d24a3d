// File: api/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Content-handler contract invoked by the connection state machine once per
// parsed request.

package api

import "github.com/momentics/hioload-http/protocol"

// Handler produces a Response for one parsed Request. It is invoked during
// the Dispatching phase of the connection state machine, exactly once per
// request, in arrival order on each connection.
//
// Implementations must not retain the underlying connection and must not
// assume anything about transport framing; the server chooses Content-Length
// or chunked encoding from the Response body. A nil return is answered with
// 500 Internal Server Error.
type Handler interface {
	Handle(req *protocol.Request) *protocol.Response
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(req *protocol.Request) *protocol.Response

// Handle calls fn(req).
func (fn HandlerFunc) Handle(req *protocol.Request) *protocol.Response {
	return fn(req)
}
