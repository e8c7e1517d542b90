package model

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// InternalErrorOffset is added to the numeric value of a transport
// error to build the Code of a synthetic error response.
const InternalErrorOffset = 1000

// Response is the parsed result of a request, or a synthetic response
// describing why the request failed.
type Response struct {
	Code   int
	Status string
	Proto  string
	Header Header
	Body   []byte
}

// ErrorResponse builds the synthetic response for a failed request.
func ErrorResponse(value int, body string) *Response {
	return &Response{
		Code:   InternalErrorOffset + value,
		Status: "Internal Error",
		Body:   []byte(body),
	}
}

// Success reports a 2xx or 3xx status.
func (r *Response) Success() bool {
	return r.Code >= 200 && r.Code < 400
}

// IsInternalError reports whether r was produced by the client rather
// than received from a server.
func (r *Response) IsInternalError() bool {
	return r.Code >= InternalErrorOffset || r.Code < 0
}

func (r *Response) String() string { return string(r.Body) }

// StatusLine renders "Proto Code Status", as read from the wire.
func (r *Response) StatusLine() string {
	return r.Proto + " " + strconv.Itoa(r.Code) + " " + r.Status
}

// ParseFormURLEncoded reads the body as k=v&k=v pairs.
func (r *Response) ParseFormURLEncoded() Query {
	return ParseQuery(string(r.Body))
}

// JSON looks up path in a JSON body, using gjson path syntax.
func (r *Response) JSON(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}
