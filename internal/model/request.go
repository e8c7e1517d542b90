package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodConnect = "CONNECT"
)

// BodyBuilder turns structured data into a request body. Build may
// add or change fields of h, e.g. a multipart boundary.
type BodyBuilder interface {
	Build(h *Header) ([]byte, error)
}

// Request describes a single HTTP request. The zero value is a GET of
// http://:80/ and is completed with ParseURL or the setters.
//
// A Request is copied when it is handed to a session; changes made
// afterwards never reach a request in flight.
type Request struct {
	Method string
	Scheme string
	Host   string
	Port   string
	Path   string
	Query  Query
	Header Header
	Body   []byte
	SSL    bool

	// per request overrides of the client timeouts, zero keeps the client value
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewRequest returns a GET request for rawURL. See [Request.ParseURL]
// for how malformed input is handled.
func NewRequest(rawURL string) *Request {
	return NewRequestWithMethod(rawURL, MethodGet)
}

func NewRequestWithMethod(rawURL, method string) *Request {
	r := &Request{Method: method, Scheme: "http", Port: "80", Path: "/"}
	r.ParseURL(rawURL)
	return r
}

var urlPattern = regexp.MustCompile(
	`^([a-zA-Z][a-zA-Z0-9+.\-]*)://([^/:?#\s]+)?(?::([0-9]{1,5}))?` +
		`(/[a-zA-Z0-9/+\-.%_~:@!$'()*,;=]*)?` +
		`(?:\?([a-zA-Z0-9\-_+=&%.\[\]~,;:@!*'()/?]*))?$`)

// ParseURL overwrites scheme, host, port, path and query with the
// parts of rawURL. A fragment is dropped, it is never sent. Input that
// does not match the supported grammar leaves the request untouched.
func (r *Request) ParseURL(rawURL string) {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL = rawURL[:i]
	}
	m := urlPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return
	}
	host := m[2]
	if !isASCII(host) {
		var err error
		if host, err = idna.Lookup.ToASCII(host); err != nil {
			return
		}
	}
	if m[3] != "" {
		if _, err := strconv.ParseUint(m[3], 10, 16); err != nil {
			return
		}
	}

	r.Scheme = m[1]
	r.Host = host
	switch {
	case strings.EqualFold(r.Scheme, "https"):
		r.Port, r.SSL = "443", true
	case strings.EqualFold(r.Scheme, "ftp"):
		r.Port, r.SSL = "20", false
	case strings.EqualFold(r.Scheme, "http"):
		r.Port, r.SSL = "80", false
	default:
		if r.Port == "" {
			r.Port = "80"
		}
	}
	if m[3] != "" {
		r.Port = m[3]
	}
	r.Path = m[4]
	if r.Path == "" {
		r.Path = "/"
	}
	r.Query = ParseQuery(m[5])
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// DefaultPort returns the port implied by scheme.
func DefaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "https":
		return "443"
	case "ftp":
		return "20"
	}
	return "80"
}

// URL renders the request target as an absolute URL. The port is left
// out when it is the default one of the scheme.
func (r *Request) URL() string {
	var sb strings.Builder
	sb.WriteString(r.Scheme)
	sb.WriteString("://")
	sb.WriteString(r.Host)
	if r.Port != "" && r.Port != DefaultPort(r.Scheme) {
		sb.WriteByte(':')
		sb.WriteString(r.Port)
	}
	sb.WriteString(r.PathWithQuery())
	return sb.String()
}

// HostPort is the authority used for dialing.
func (r *Request) HostPort() string {
	port := r.Port
	if port == "" {
		port = DefaultPort(r.Scheme)
	}
	if strings.IndexByte(r.Host, ':') >= 0 {
		return "[" + r.Host + "]:" + port
	}
	return r.Host + ":" + port
}

// PortNumber returns the numeric form of Port, 0 if it is not a number.
func (r *Request) PortNumber() uint16 {
	p, _ := strconv.ParseUint(r.Port, 10, 16)
	return uint16(p)
}

func (r *Request) SetPort(port uint16) { r.Port = strconv.FormatUint(uint64(port), 10) }
func (r *Request) SetHost(host string)  { r.Host = host }
func (r *Request) SetScheme(s string)   { r.Scheme = s }
func (r *Request) SetMethod(m string)   { r.Method = strings.ToUpper(m) }

// UseSSL forces a TLS session regardless of the scheme.
func (r *Request) UseSSL(use bool) { r.SSL = use }

func (r *Request) GetPath() string {
	if r.Path == "" {
		return "/"
	}
	return r.Path
}

// SetPath replaces the path, making sure it starts with a single '/'.
func (r *Request) SetPath(path string) {
	r.Path = "/" + strings.TrimLeft(path, "/")
}

// AddPath appends path to the current one with exactly one separating
// slash. An empty path or "/" is ignored.
func (r *Request) AddPath(path string) {
	if path == "" || path == "/" {
		return
	}
	base := r.GetPath()
	r.Path = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// QueryString returns "?" followed by the encoded query, or "" if the
// request has no query parameters.
func (r *Request) QueryString() string {
	if len(r.Query) == 0 {
		return ""
	}
	return "?" + r.Query.Encode()
}

func (r *Request) PathWithQuery() string { return r.GetPath() + r.QueryString() }

func (r *Request) AddQuery(key, value string) { r.Query.Add(key, value) }

// AddQueries adds every entry of m in sorted key order.
func (r *Request) AddQueries(m map[string]string) {
	var h Header
	h.AddMap(m)
	for _, p := range h {
		r.Query.Add(p.Key, p.Value)
	}
}

func (r *Request) AddHeader(name, value string) { r.Header.Add(name, value) }

// SetBody stores b and keeps the Content-Length field in sync with it.
func (r *Request) SetBody(b []byte) {
	r.Body = b
	r.Header.Set("Content-Length", strconv.Itoa(len(b)))
}

func (r *Request) SetBodyString(s string) { r.SetBody([]byte(s)) }

// SetBodyFrom builds the body with b, letting it adjust the headers.
func (r *Request) SetBodyFrom(b BodyBuilder) error {
	data, err := b.Build(&r.Header)
	if err != nil {
		return err
	}
	r.SetBody(data)
	return nil
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	c := *r
	c.Query = r.Query.Clone()
	c.Header = r.Header.Clone()
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}
