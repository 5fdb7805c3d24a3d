// File: protocol/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package protocol implements the HTTP/1.0 and HTTP/1.1 wire grammar for
// hioload-http: incremental request parsing tolerant of partial socket reads
// and pipelined input, ordered case-insensitive headers, body framing by
// Content-Length and chunked transfer coding, and response serialization.
//
// The package is transport-agnostic. It reads from and writes to plain
// io.Reader/io.Writer values; deadlines, ownership, and connection lifecycle
// are the server package's concern.
package protocol
