// File: protocol/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Response representation and serialization. The writer picks the body
// framing: Content-Length when the length is known upfront, chunked transfer
// coding otherwise. The Connection header always reflects the connection
// state machine's keep-alive decision, never the handler's.

package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"time"
)

// Response is the content handler's answer to one request.
type Response struct {
	StatusCode int
	Reason     string // optional; empty selects the canonical phrase
	Header     Header

	// Body is the body source; nil means an empty body.
	Body io.Reader

	// ContentLength is the body length when known upfront, or -1 for a
	// streaming body of unknown length (serialized chunked).
	ContentLength int64
}

// NewResponse returns an empty-bodied response with the given status code.
func NewResponse(code int) *Response {
	return &Response{StatusCode: code}
}

// SetBodyBytes installs a fixed-length body.
func (r *Response) SetBodyBytes(b []byte) *Response {
	r.Body = bytes.NewReader(b)
	r.ContentLength = int64(len(b))
	return r
}

// SetBodyString installs a fixed-length body from s.
func (r *Response) SetBodyString(s string) *Response {
	return r.SetBodyBytes([]byte(s))
}

// SetBodyStream installs a body of unknown length, to be sent chunked.
func (r *Response) SetBodyStream(src io.Reader) *Response {
	r.Body = src
	r.ContentLength = -1
	return r
}

// ResponseWriter serializes responses onto one byte stream. Writes buffer
// through a single bufio.Writer; WriteResponse flushes before returning, so
// completion means every byte was handed to the transport.
type ResponseWriter struct {
	bufw *bufio.Writer
}

// NewResponseWriter wraps w.
func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{bufw: bufio.NewWriterSize(w, 4<<10)}
}

// WriteResponse serializes resp. keepAlive is the connection state machine's
// persistence decision and overrides any Connection header set by the
// handler. head suppresses the body while preserving its framing headers,
// for answering HEAD requests.
func (rw *ResponseWriter) WriteResponse(resp *Response, keepAlive, head bool) error {
	reason := resp.Reason
	if reason == "" {
		reason = StatusText(resp.StatusCode)
	}
	if _, err := fmt.Fprintf(rw.bufw, "HTTP/1.1 %d %s\r\n", resp.StatusCode, reason); err != nil {
		return err
	}

	hdr := &resp.Header
	hdr.Del("Connection")
	hdr.Del("Content-Length")
	hdr.Del("Transfer-Encoding")
	if !hdr.Has("Date") {
		hdr.Add("Date", time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	}
	if keepAlive {
		hdr.Add("Connection", "keep-alive")
	} else {
		hdr.Add("Connection", "close")
	}

	bodyless := !bodyAllowedForStatus(resp.StatusCode)
	chunked := false
	switch {
	case bodyless:
		// 1xx, 204 and 304 never carry a body or framing headers.
	case resp.ContentLength >= 0:
		hdr.Add("Content-Length", fmt.Sprintf("%d", resp.ContentLength))
	default:
		hdr.Add("Transfer-Encoding", "chunked")
		chunked = true
	}

	if err := hdr.writeTo(rw.bufw); err != nil {
		return err
	}
	if _, err := rw.bufw.WriteString("\r\n"); err != nil {
		return err
	}

	if !bodyless && !head {
		if err := rw.writeBody(resp, chunked); err != nil {
			return err
		}
	}
	return rw.bufw.Flush()
}

// writeBody copies the body source using the chosen framing.
func (rw *ResponseWriter) writeBody(resp *Response, chunked bool) error {
	if resp.Body == nil {
		if chunked {
			cw := &chunkedWriter{bufw: rw.bufw}
			return cw.Close()
		}
		return nil
	}
	if chunked {
		cw := &chunkedWriter{bufw: rw.bufw}
		if _, err := io.Copy(cw, resp.Body); err != nil {
			return err
		}
		return cw.Close()
	}
	n, err := io.Copy(rw.bufw, io.LimitReader(resp.Body, resp.ContentLength))
	if err != nil {
		return err
	}
	if n != resp.ContentLength {
		return fmt.Errorf("response body: wrote %d of declared %d bytes", n, resp.ContentLength)
	}
	return nil
}

// WriteInterim emits a bare interim status line such as 100 Continue,
// flushing immediately.
func (rw *ResponseWriter) WriteInterim(code int) error {
	if _, err := fmt.Fprintf(rw.bufw, "HTTP/1.1 %d %s\r\n\r\n", code, StatusText(code)); err != nil {
		return err
	}
	return rw.bufw.Flush()
}
