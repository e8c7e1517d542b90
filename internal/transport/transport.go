package transport

import (
	"io"

	"github.com/frankli0324/go-httb/internal/model"
)

// Transport frames requests and responses over an established
// connection.
type Transport interface {
	Write(w io.Writer, req *model.PreparedRequest) error
	NewReader(r io.Reader, req *model.PreparedRequest) *ResponseReader
}

// HTTP1 is the only transport, one request per connection.
var HTTP1 Transport = http1{}

type http1 struct{}

func (http1) Write(w io.Writer, req *model.PreparedRequest) error {
	return WriteRequest(w, req)
}

func (http1) NewReader(r io.Reader, req *model.PreparedRequest) *ResponseReader {
	rr := NewResponseReader(r, req.Method)
	rr.TLS = req.SSL
	return rr
}
