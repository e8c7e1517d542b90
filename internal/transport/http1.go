package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-httb/internal/model"
)

const DefaultUserAgent = "go-httb/1.0"

// Validate rejects requests that cannot be written as a valid message.
func Validate(r *model.PreparedRequest) error {
	if r.Method == "" || strings.IndexFunc(r.Method, func(c rune) bool { return !httpguts.IsTokenRune(c) }) >= 0 {
		return fmt.Errorf("invalid method %q", r.Method)
	}
	if !httpguts.ValidHostHeader(r.HeaderHost) {
		return fmt.Errorf("invalid host header %q", r.HeaderHost)
	}
	for _, p := range r.Header {
		if !httpguts.ValidHeaderFieldName(p.Key) {
			return fmt.Errorf("invalid header field name %q", p.Key)
		}
		if !httpguts.ValidHeaderFieldValue(p.Value) {
			return fmt.Errorf("invalid header field value for %q", p.Key)
		}
	}
	return nil
}

// RequestHeader returns the header fields in the order they are sent.
// Host comes first, followed by the default User-Agent and Accept
// fields, which the request's own fields override.
func RequestHeader(r *model.PreparedRequest) model.Header {
	h := model.Header{
		{Key: "Host", Value: r.HeaderHost},
		{Key: "User-Agent", Value: DefaultUserAgent},
		{Key: "Accept", Value: "*/*"},
	}
	for _, p := range r.Header {
		h.Add(p.Key, p.Value)
	}
	cl := r.ContentLength
	if cl < 0 {
		cl = 0
	}
	h.Add("Content-Length", strconv.FormatInt(cl, 10))
	// one request per connection
	h.SetDefault("Connection", "close")
	return h
}

// Head renders the request line and header section, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.example.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func Head(r *model.PreparedRequest) string {
	var sb strings.Builder
	sb.WriteString(r.Method)
	sb.WriteByte(' ')
	sb.WriteString(r.PathWithQuery())
	sb.WriteString(" HTTP/1.1\r\n")
	for _, p := range RequestHeader(r) {
		sb.WriteString(p.Key)
		sb.WriteString(": ")
		sb.WriteString(p.Value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	return sb.String()
}

// WriteRequest writes the whole request message to w.
func WriteRequest(w io.Writer, r *model.PreparedRequest) error {
	if err := Validate(r); err != nil {
		return err
	}
	bw := bufio.NewWriter(w) // default bufsize is 4096
	if _, err := bw.WriteString(Head(r)); err != nil {
		return err
	}
	if len(r.Body) > 0 {
		if _, err := bw.Write(r.Body); err != nil {
			return err
		}
	}
	return bw.Flush()
}
