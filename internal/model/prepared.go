package model

import (
	"errors"
	"net/url"
	"strconv"
)

var ErrContentLength = errors.New("content-length does not match body")

// PreparedRequest is a frozen copy of a [Request] with the fields the
// wire writer owns pulled out of the header list.
type PreparedRequest struct {
	*Request

	Header     Header
	HeaderHost string

	ContentLength int64
}

// Prepare snapshots r. Later changes to r are not visible through the
// returned value.
func (r *Request) Prepare() (*PreparedRequest, error) {
	snap := r.Clone()

	headers := snap.Header.Clone()
	host := snap.Host
	if snap.Port != "" && snap.Port != DefaultPort(snap.Scheme) {
		host += ":" + snap.Port
	}
	cl := int64(-1)
	// user defined headers has higher priority
	if v := headers.Get("Host"); v != "" {
		host = v
	}
	headers.Del("Host")
	if v := headers.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cl = n
		}
	}
	headers.Del("Content-Length")

	if snap.Host == "" {
		return nil, url.InvalidHostError("empty host")
	}
	if snap.Body != nil {
		if cl >= 0 && cl != int64(len(snap.Body)) {
			return nil, ErrContentLength
		}
		cl = int64(len(snap.Body))
	}

	return &PreparedRequest{
		Request:       snap,
		Header:        headers,
		HeaderHost:    host,
		ContentLength: cl,
	}, nil
}
