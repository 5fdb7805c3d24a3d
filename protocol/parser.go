// File: protocol/parser.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental HTTP/1.x request parser. The parser wraps the connection's
// byte stream once and keeps all framing state inside its buffered reader,
// so a request split across any number of partial socket reads resumes
// exactly where the previous read stopped, and bytes of pipelined follow-up
// requests stay buffered for the next ReadRequest call.

package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxHeaderBytes caps the request line plus header block when the
// caller does not configure a limit.
const DefaultMaxHeaderBytes = 1 << 20

const noLimit int64 = (1 << 63) - 1

// Parser reads successive requests from one byte stream.
//
// It is not safe for concurrent use; the connection ownership discipline
// guarantees a single reader at a time.
type Parser struct {
	lr             *io.LimitedReader
	br             *bufio.Reader
	maxHeaderBytes int64
}

// NewParser wraps r. maxHeaderBytes bounds the request line and header
// block of each request; zero or negative selects DefaultMaxHeaderBytes.
func NewParser(r io.Reader, maxHeaderBytes int) *Parser {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	lr := &io.LimitedReader{R: r, N: noLimit}
	return &Parser{
		lr:             lr,
		br:             bufio.NewReaderSize(lr, 4<<10),
		maxHeaderBytes: int64(maxHeaderBytes),
	}
}

// Buffered returns the number of bytes already read from the stream but not
// yet consumed by parsing. A non-zero value after a complete request means
// pipelined data is waiting.
func (p *Parser) Buffered() int {
	return p.br.Buffered()
}

// Peek blocks until at least n bytes are buffered or the stream errors.
// Used by the keep-alive wait to detect readability without consuming.
func (p *Parser) Peek(n int) ([]byte, error) {
	return p.br.Peek(n)
}

// ReadRequest parses the next request from the stream. It blocks on the
// underlying reader as needed; deadlines on the transport bound that wait.
// The previous request's Body must be fully drained first, otherwise its
// remaining bytes are misread as the next request line.
func (p *Parser) ReadRequest() (*Request, error) {
	p.lr.N = p.maxHeaderBytes

	line, err := p.readLine()
	if err != nil {
		return nil, p.headerErr(err, false)
	}
	// Tolerate one empty line before the request line, per HTTP robustness.
	if len(line) == 0 {
		line, err = p.readLine()
		if err != nil {
			return nil, p.headerErr(err, false)
		}
	}

	req := &Request{}
	if err := parseRequestLine(string(line), req); err != nil {
		return nil, err
	}

	if err := p.readHeaderBlock(&req.Header); err != nil {
		return nil, err
	}

	if req.ProtoMinor >= 1 && !req.Header.Has("Host") {
		return nil, ErrMalformedRequest
	}

	if err := p.setupBody(req); err != nil {
		return nil, err
	}

	// Body reads are framed by their own length, not the header limit.
	p.lr.N = noLimit
	return req, nil
}

// parseRequestLine splits "METHOD target HTTP/x.y" into the request fields.
func parseRequestLine(line string, req *Request) error {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ErrMalformedRequest
	}
	method, target, proto := parts[0], parts[1], parts[2]

	for i := 0; i < len(method); i++ {
		if method[i] < 'A' || method[i] > 'Z' {
			return ErrMalformedRequest
		}
	}
	if !supportedMethods[method] {
		return ErrUnsupportedMethod
	}

	major, minor, ok := parseHTTPVersion(proto)
	if !ok {
		return ErrMalformedRequest
	}
	if major != 1 || minor > 1 {
		return ErrUnsupportedVersion
	}

	req.Method = method
	req.Target = target
	req.Proto = proto
	req.ProtoMajor = major
	req.ProtoMinor = minor
	return nil
}

// parseHTTPVersion parses "HTTP/x.y" with single-digit components.
func parseHTTPVersion(proto string) (major, minor int, ok bool) {
	if !strings.HasPrefix(proto, "HTTP/") {
		return 0, 0, false
	}
	rest := proto[len("HTTP/"):]
	if len(rest) != 3 || rest[1] != '.' {
		return 0, 0, false
	}
	if rest[0] < '0' || rest[0] > '9' || rest[2] < '0' || rest[2] > '9' {
		return 0, 0, false
	}
	return int(rest[0] - '0'), int(rest[2] - '0'), true
}

// readHeaderBlock parses "Name: value" lines until the empty terminator.
func (p *Parser) readHeaderBlock(h *Header) error {
	for {
		line, err := p.readLine()
		if err != nil {
			return p.headerErr(err, true)
		}
		if len(line) == 0 {
			return nil
		}
		// Obsolete line folding is rejected: a request boundary after a
		// folded header cannot be trusted.
		if line[0] == ' ' || line[0] == '\t' {
			return ErrMalformedRequest
		}
		idx := strings.IndexByte(string(line), ':')
		if idx <= 0 {
			return ErrMalformedRequest
		}
		name := string(line[:idx])
		if strings.ContainsAny(name, " \t") {
			return ErrMalformedRequest
		}
		value := strings.Trim(string(line[idx+1:]), " \t")
		h.Add(name, value)
	}
}

// setupBody resolves the body framing declared by the headers.
func (p *Parser) setupBody(req *Request) error {
	hasTE := req.Header.Has("Transfer-Encoding")
	hasCL := req.Header.Has("Content-Length")

	if hasTE {
		// A message with both framings is a smuggling vector; reject it.
		if hasCL {
			return ErrMalformedRequest
		}
		if !req.Header.HasToken("Transfer-Encoding", "chunked") {
			return ErrMalformedRequest
		}
		req.Chunked = true
		req.ContentLength = -1
		req.Body = &chunkedReader{br: p.br}
		return nil
	}

	if hasCL {
		n, err := parseContentLength(req.Header.Values("Content-Length"))
		if err != nil {
			return err
		}
		req.ContentLength = n
		if n == 0 {
			req.Body = eofReader{}
		} else {
			req.Body = io.LimitReader(p.br, n)
		}
		return nil
	}

	req.ContentLength = 0
	req.Body = eofReader{}
	return nil
}

// parseContentLength validates one or more Content-Length values. Duplicate
// fields must agree; anything non-numeric or negative is malformed.
func parseContentLength(vals []string) (int64, error) {
	var n int64 = -1
	for _, v := range vals {
		v = strings.TrimSpace(v)
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return 0, ErrMalformedRequest
		}
		if n >= 0 && parsed != n {
			return 0, ErrMalformedRequest
		}
		n = parsed
	}
	return n, nil
}

// readLine reads one CRLF- or LF-terminated line, reassembling lines longer
// than the buffered reader's window.
func (p *Parser) readLine() ([]byte, error) {
	line, isPrefix, err := p.br.ReadLine()
	if err != nil {
		return line, err
	}
	if !isPrefix {
		return line, nil
	}
	buf := append([]byte(nil), line...)
	for isPrefix {
		line, isPrefix, err = p.br.ReadLine()
		if err != nil {
			return buf, err
		}
		buf = append(buf, line...)
	}
	return buf, nil
}

// headerErr classifies stream errors raised while reading the request line
// or header block. An EOF with the header budget exhausted means an oversize
// header; an EOF after the request started means a truncated request; a bare
// EOF before any byte of the request is a clean close and passes through.
func (p *Parser) headerErr(err error, started bool) error {
	if err == io.EOF {
		if p.lr.N <= 0 {
			return ErrHeaderTooLarge
		}
		if started {
			return ErrMalformedRequest
		}
	}
	return err
}
