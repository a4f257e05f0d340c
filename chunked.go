// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The wire protocol for HTTP's "chunked" Transfer-Encoding.
// This code is derived from the standard library's http/httputil/chunked.go,

package icap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var errLineTooLong = errors.New("header line too long")

// NewChunkedWriter returns a new chunkedWriter that translates writes into HTTP
// "chunked" format before writing them to w. Closing the returned chunkedWriter
// sends the final 0-length chunk that marks the end of the stream.
//
// NewChunkedWriter is not needed by normal applications. The http
// package adds chunking automatically if handlers don't set a
// Content-Length header. Using NewChunkedWriter inside a handler
// would result in double chunking or chunking with a Content-Length
// length, both of which are wrong.
func NewChunkedWriter(w io.Writer) io.WriteCloser {
	return &chunkedWriter{w}
}

// Writing to chunkedWriter translates to writing in HTTP chunked Transfer
// Encoding wire format to the underlying Wire chunkedWriter.
type chunkedWriter struct {
	Wire io.Writer
}

// Write the contents of data as one chunk to Wire.
func (cw *chunkedWriter) Write(data []byte) (n int, err error) {
	// Don't send 0-length data. It looks like EOF for chunked encoding.
	if len(data) == 0 {
		return 0, nil
	}

	if _, err = fmt.Fprintf(cw.Wire, "%x\r\n", len(data)); err != nil {
		return 0, err
	}
	if n, err = cw.Wire.Write(data); err != nil {
		return
	}
	if n != len(data) {
		err = io.ErrShortWrite
		return
	}
	_, err = io.WriteString(cw.Wire, "\r\n")

	return
}

func (cw *chunkedWriter) Close() error {
	_, err := io.WriteString(cw.Wire, "0\r\n")
	return err
}

// readChunkedBody consumes an HTTP/1.1 chunked stream from sr and
// concatenates every chunk into one contiguous payload: read
// "<hex-size>[;ext]", then size bytes, then a trailing CRLF, stopping
// at a zero-length chunk. It reads through sr rather than a bufio.Reader
// of its own so it shares the connection's one buffered read cursor
// with request-line, header, and fixed-length entity reads.
func readChunkedBody(sr StreamReader) ([]byte, error) {
	var out []byte
	for {
		line, err := sr.ReadLine()
		if err != nil {
			return nil, err
		}
		sizeToken := line
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			sizeToken = line[:i]
		}
		size, err := parseHexUint(sizeToken)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			if err := consumeTrailer(sr); err != nil {
				return nil, err
			}
			break
		}
		chunk, err := sr.ReadExactly(int(size))
		if err != nil {
			return nil, err
		}
		if _, err := sr.ReadExactly(2); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// consumeTrailer reads the (usually empty) trailer-part following a
// zero-length chunk, up to and including the blank line that ends it.
func consumeTrailer(sr StreamReader) error {
	for {
		line, err := sr.ReadLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

// chunkEncode wraps body in a single HTTP chunk terminated by the
// standard zero-length chunk, reusing the chunkedWriter type above
// instead of hand-formatting the wire bytes a second time.
func chunkEncode(body []byte) []byte {
	var buf bytes.Buffer
	cw := NewChunkedWriter(&buf)
	_, _ = cw.Write(body)
	_ = cw.Close()
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func parseHexUint(v []byte) (n uint64, err error) {
	for _, b := range v {
		n <<= 4
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, fmt.Errorf("invalid chunk length: '%s'", v)
		}
		n |= uint64(b)
	}
	return
}
