// Package httb is an HTTP/1.1 client engine. Requests are plain values,
// executed either in the calling goroutine or as sessions on a bounded
// [Reactor], and every failure comes back as a [Response] whose code is
// above 1000, see [Response.IsInternalError].
package httb

import (
	"github.com/frankli0324/go-httb/internal/body"
	"github.com/frankli0324/go-httb/internal/model"
)

const (
	MethodGet     = model.MethodGet
	MethodHead    = model.MethodHead
	MethodPost    = model.MethodPost
	MethodPut     = model.MethodPut
	MethodPatch   = model.MethodPatch
	MethodDelete  = model.MethodDelete
	MethodConnect = model.MethodConnect
)

type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response
type Header = model.Header
type Query = model.Query
type Pair = model.Pair
type BodyBuilder = model.BodyBuilder

func NewRequest(rawURL string) *Request { return model.NewRequest(rawURL) }

func NewRequestWithMethod(rawURL, method string) *Request {
	return model.NewRequestWithMethod(rawURL, method)
}

func ParseQuery(s string) Query { return model.ParseQuery(s) }

// body builders, see [Request.SetBodyFrom]
type (
	StringBody = body.String
	BytesBody  = body.Bytes
	Form       = body.Form
	Multipart  = body.Multipart
)

func ParseForm(encoded string) *Form { return body.ParseForm(encoded) }

func NewMultipart() *Multipart { return body.NewMultipart() }
