// File: internal/registry/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection lifecycle states.

package registry

// ConnState is one step of the connection state machine.
type ConnState int32

const (
	StateAwaitingRequest ConnState = iota
	StateReadingHeaders
	StateReadingBody
	StateDispatching
	StateWritingResponse
	StateKeepAliveWait
	StateClosing
)

var stateNames = [...]string{
	"awaiting-request",
	"reading-headers",
	"reading-body",
	"dispatching",
	"writing-response",
	"keepalive-wait",
	"closing",
}

func (s ConnState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
