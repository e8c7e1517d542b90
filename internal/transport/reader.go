package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/transport/chunked"
)

const readChunk = 32 << 10

type countingReader struct {
	io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	c.n += int64(n)
	return n, err
}

// ResponseReader parses one response from a connection. The header
// section is read in one go by ReadHeader, the body piece by piece with
// ReadSome so the caller can observe progress.
type ResponseReader struct {
	// TLS makes a close-delimited body that ends without a TLS
	// close_notify report ErrStreamTruncated instead of a hard error.
	TLS bool

	method string
	raw    *countingReader
	tp     *textproto.Reader

	resp    *model.Response
	body    io.Reader
	buf     bytes.Buffer
	scratch []byte

	length         int64
	loaded         int64
	closeDelimited bool
	done           bool
}

// NewResponseReader reads a response to a request made with method.
func NewResponseReader(r io.Reader, method string) *ResponseReader {
	raw := &countingReader{Reader: r}
	return &ResponseReader{
		method: method,
		raw:    raw,
		tp:     textproto.NewReader(bufio.NewReader(raw)),
		length: -1,
	}
}

func malformed(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, a...)...)
}

// ReadHeader reads the status line and header fields. Interim 1xx
// responses other than 101 are skipped.
func (rr *ResponseReader) ReadHeader() (*model.Response, error) {
	for {
		resp, cls, err := rr.readHead()
		if err != nil {
			return nil, err
		}
		if resp.Code >= 100 && resp.Code < 200 && resp.Code != 101 {
			continue
		}
		rr.resp = resp
		return resp, rr.setupBody(cls)
	}
}

func (rr *ResponseReader) readHead() (*model.Response, []string, error) {
	line, err := rr.tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, nil, err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return nil, nil, malformed("status line %q", line)
	}
	resp := &model.Response{Proto: proto}
	status = strings.TrimLeft(status, " ")
	code, reason, _ := strings.Cut(status, " ")
	if len(code) != 3 {
		return nil, nil, malformed("status code %q", code)
	}
	if resp.Code, err = strconv.Atoi(code); err != nil || resp.Code < 0 {
		return nil, nil, malformed("status code %q", code)
	}
	resp.Status = reason

	var contentLens []string
	for {
		line, err := rr.tp.ReadContinuedLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, nil, err
		}
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !httpguts.ValidHeaderFieldName(name) {
			return nil, nil, malformed("header line %q", line)
		}
		value = textproto.TrimString(value)
		if model.EqualFold(name, "Content-Length") {
			contentLens = append(contentLens, value)
		}
		if prev, ok := resp.Header.Find(name); ok {
			value = prev.Value + ", " + value
		}
		resp.Header.Add(name, value)
	}
	return resp, contentLens, nil
}

func (rr *ResponseReader) setupBody(contentLens []string) error {
	r := rr.tp.R
	switch {
	case rr.method == model.MethodHead,
		rr.resp.Code >= 100 && rr.resp.Code < 200,
		rr.resp.Code == 204, rr.resp.Code == 304,
		rr.method == model.MethodConnect && rr.resp.Code/100 == 2:
		rr.length, rr.done = 0, true
		return nil
	case isChunked(rr.resp.Header.Get("Transfer-Encoding")):
		rr.body = chunked.NewReader(r)
		return nil
	}

	if len(contentLens) > 0 {
		// Hardening against HTTP request smuggling, taken from standard library
		// Per RFC 7230 Section 3.3.2
		first := contentLens[0]
		for _, cl := range contentLens[1:] {
			if cl != first {
				return malformed("multiple Content-Length headers %q", contentLens)
			}
		}
		n, err := strconv.ParseUint(first, 10, 63)
		if err != nil {
			return malformed("Content-Length %q", first)
		}
		rr.resp.Header.Set("Content-Length", first)
		rr.length = int64(n)
		rr.body = io.LimitReader(r, rr.length)
		rr.done = n == 0
		return nil
	}

	rr.body = r
	rr.closeDelimited = true
	return nil
}

func isChunked(te string) bool {
	codings := strings.Split(te, ",")
	return strings.EqualFold(textproto.TrimString(codings[len(codings)-1]), "chunked")
}

// ReadSome reads the next piece of the body. It returns io.EOF once the
// body is complete and no more data is expected.
func (rr *ResponseReader) ReadSome() (int, error) {
	if rr.done {
		return 0, io.EOF
	}
	if rr.body == nil {
		return 0, errors.New("transport: ReadSome before ReadHeader")
	}
	if rr.scratch == nil {
		rr.scratch = make([]byte, readChunk)
	}
	n, err := rr.body.Read(rr.scratch)
	rr.buf.Write(rr.scratch[:n])
	rr.loaded += int64(n)

	switch {
	case err == io.EOF:
		if rr.length >= 0 && rr.loaded < rr.length {
			return n, io.ErrUnexpectedEOF
		}
		rr.done = true
		return n, nil
	case err == io.ErrUnexpectedEOF && rr.closeDelimited && rr.TLS:
		rr.done = true
		return n, ErrStreamTruncated
	case err != nil:
		return n, err
	}
	if rr.length >= 0 && rr.loaded >= rr.length {
		rr.done = true
	}
	return n, nil
}

// ReadAll reads until the body is complete.
func (rr *ResponseReader) ReadAll() error {
	for !rr.Done() {
		if _, err := rr.ReadSome(); err != nil && !Ignorable(err) {
			return err
		}
	}
	return nil
}

// Done reports whether the whole message has been read.
func (rr *ResponseReader) Done() bool { return rr.done }

// ContentLength is the declared body length, -1 when unknown.
func (rr *ResponseReader) ContentLength() int64 { return rr.length }

// Loaded is the number of body bytes read so far.
func (rr *ResponseReader) Loaded() int64 { return rr.loaded }

// BytesRead counts every byte taken from the connection, framing
// included.
func (rr *ResponseReader) BytesRead() int64 { return rr.raw.n }

// Response returns the response with the body read so far.
func (rr *ResponseReader) Response() *model.Response {
	if rr.resp == nil {
		return nil
	}
	rr.resp.Body = rr.buf.Bytes()
	return rr.resp
}
