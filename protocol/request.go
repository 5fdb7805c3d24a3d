// File: protocol/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Parsed request representation and connection-persistence policy.

package protocol

import "io"

// Supported request method tokens. Methods outside this set are rejected
// with ErrUnsupportedMethod and answered 501.
var supportedMethods = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"OPTIONS": true,
	"TRACE":   true,
	"PATCH":   true,
	"CONNECT": true,
}

// Request is one parsed HTTP request. It is immutable once returned by the
// parser; handlers read the Body but never mutate the structural fields.
type Request struct {
	Method string // e.g. "GET"
	Target string // request target as sent, e.g. "/index?name=x"
	Proto  string // "HTTP/1.0" or "HTTP/1.1"

	ProtoMajor int
	ProtoMinor int

	Header Header

	// Body yields the request body decoded from its transfer framing:
	// a fixed-length reader for Content-Length, a dechunking reader for
	// chunked transfer coding, an immediately-EOF reader otherwise.
	Body io.Reader

	// ContentLength is the declared body length, or -1 when the body is
	// chunked and the length is unknown upfront.
	ContentLength int64

	// Chunked reports chunked transfer coding on the request body.
	Chunked bool

	// RemoteAddr is the peer address, when known to the caller.
	RemoteAddr string
}

// KeepAlive reports whether the connection should persist after this
// request: HTTP/1.1 defaults to persistent unless "Connection: close" is
// present; HTTP/1.0 defaults to non-persistent unless
// "Connection: keep-alive" is present.
func (r *Request) KeepAlive() bool {
	if r.ProtoMajor == 1 && r.ProtoMinor >= 1 {
		return !r.Header.HasToken("Connection", "close")
	}
	return r.Header.HasToken("Connection", "keep-alive")
}

// ExpectsContinue reports whether the client asked for an interim
// 100 Continue response before transmitting the body.
func (r *Request) ExpectsContinue() bool {
	return r.ProtoMajor == 1 && r.ProtoMinor >= 1 &&
		r.Header.HasToken("Expect", "100-continue")
}

// eofReader is the body of requests without one.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
