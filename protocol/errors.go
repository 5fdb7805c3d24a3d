// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wire-level error values. The server maps these to status codes: malformed
// input to 400, unsupported method or version to 501.

package protocol

import "errors"

var (
	// ErrMalformedRequest reports an invalid request line, header line, or
	// body framing. The connection must be closed without parsing further
	// bytes, since the request boundary can no longer be trusted.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnsupportedMethod reports a syntactically valid but unrecognized
	// request method token.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrUnsupportedVersion reports an HTTP version other than 1.0 or 1.1.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrHeaderTooLarge reports a request line or header block exceeding the
	// configured size limit.
	ErrHeaderTooLarge = errors.New("request header too large")

	// ErrLineTooLong reports a single header or request line exceeding the
	// reader's buffer.
	ErrLineTooLong = errors.New("header line too long")
)
