// Package chunked implements the chunked transfer coding of RFC 9112
// section 7.1.
package chunked

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var (
	ErrMalformed = errors.New("malformed chunked encoding")
	ErrTooLarge  = errors.New("http chunk length too large")
)

// NewReader decodes a chunked body from r. Chunk extensions and
// trailer fields are read and discarded.
func NewReader(r io.Reader) io.Reader {
	var br *bufio.Reader
	if v, ok := r.(*bufio.Reader); ok {
		br = v
	} else {
		br = bufio.NewReader(r)
	}
	return &reader{Reader: br}
}

type reader struct {
	*bufio.Reader
	current                   io.Reader
	currentCount, currentSize int64
	finished                  bool
}

func (c *reader) readLine() ([]byte, error) {
	line, err := c.ReadSlice('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		} else if err == bufio.ErrBufferFull {
			err = ErrTooLarge
		}
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (c *reader) readChunkHeader() (size uint64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	if i := bytes.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return 0, ErrMalformed
	}
	if len(line) > 16 {
		return 0, ErrTooLarge
	}
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, errors.New("invalid byte in chunk length")
		}
		size <<= 4
		size |= uint64(b)
	}
	return size, nil
}

func (c *reader) skipTrailer() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *reader) Read(p []byte) (n int, err error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.current == nil {
		l, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if l == 0 {
			if err := c.skipTrailer(); err != nil {
				return 0, err
			}
			c.finished = true
			return 0, io.EOF
		}
		c.current = io.LimitReader(c.Reader, int64(l))
		c.currentSize = int64(l)
	}
	n, err = c.current.Read(p)
	c.currentCount += int64(n)
	if err == io.EOF || c.currentCount == c.currentSize {
		if c.currentCount != c.currentSize {
			return n, io.ErrUnexpectedEOF
		}
		dr, _ := c.Reader.ReadByte()
		dn, err := c.Reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return n, err
		}
		if dr != '\r' || dn != '\n' {
			return n, ErrMalformed
		}
		c.current = nil
		c.currentCount = 0
		return n, nil
	}
	return n, err
}
