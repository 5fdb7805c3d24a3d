// File: protocol/chunked.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Chunked transfer coding. A body of unknown length travels as a sequence of
// hex-length-prefixed segments ending in a zero-length chunk:
//
//	4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n
//
// The reader dechunks from the parser's buffered stream and stops exactly at
// the message boundary so pipelined bytes after the terminator survive for
// the next request. The writer produces the same coding for responses whose
// length is unknown at write time.

package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxChunkLineBytes bounds a single chunk-size line, extensions included.
const maxChunkLineBytes = 4096

// chunkedReader decodes a chunked request body. Read returns only chunk
// payload bytes; size lines, per-chunk CRLFs, the terminal chunk, and any
// trailer section are consumed silently.
type chunkedReader struct {
	br   *bufio.Reader
	n    int64 // unread payload bytes of the current chunk
	done bool
	crlf [2]byte
}

func (cr *chunkedReader) Read(p []byte) (n int, err error) {
	if cr.done {
		return 0, io.EOF
	}
	if cr.n == 0 {
		cr.n, err = cr.readChunkSize()
		if err != nil {
			return 0, err
		}
		if cr.n == 0 {
			cr.done = true
			if err := cr.readTrailer(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
	}
	if int64(len(p)) > cr.n {
		p = p[:cr.n]
	}
	n, err = cr.br.Read(p)
	cr.n -= int64(n)
	if err == io.EOF {
		return n, ErrMalformedRequest
	}
	if err != nil {
		return n, err
	}
	if cr.n == 0 {
		if err := cr.discardCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// readChunkSize parses the next hex chunk-size line, ignoring any chunk
// extension after ';'.
func (cr *chunkedReader) readChunkSize() (int64, error) {
	line, err := cr.readLine()
	if err != nil {
		return 0, err
	}
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil || size < 0 {
		return 0, ErrMalformedRequest
	}
	return size, nil
}

// readTrailer consumes optional trailer fields and the final empty line.
func (cr *chunkedReader) readTrailer() error {
	for {
		line, err := cr.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

// discardCRLF consumes the CRLF that terminates each chunk's payload.
func (cr *chunkedReader) discardCRLF() error {
	if _, err := io.ReadFull(cr.br, cr.crlf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrMalformedRequest
		}
		return err
	}
	if cr.crlf[0] != '\r' || cr.crlf[1] != '\n' {
		return ErrMalformedRequest
	}
	return nil
}

// readLine reads one bounded CRLF-terminated line as a string.
func (cr *chunkedReader) readLine() (string, error) {
	var buf []byte
	for {
		line, isPrefix, err := cr.br.ReadLine()
		if err != nil {
			if err == io.EOF {
				return "", ErrMalformedRequest
			}
			return "", err
		}
		buf = append(buf, line...)
		if len(buf) > maxChunkLineBytes {
			return "", ErrMalformedRequest
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}

// chunkedWriter encodes each Write as one chunk. Close emits the terminal
// zero-length chunk; it does not close the underlying writer.
type chunkedWriter struct {
	bufw *bufio.Writer
}

func (cw *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(cw.bufw, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := cw.bufw.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := cw.bufw.WriteString("\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

func (cw *chunkedWriter) Close() error {
	_, err := cw.bufw.WriteString("0\r\n\r\n")
	return err
}
