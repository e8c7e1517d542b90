// Package transport implements the HTTP/1.1 message syntax (RFC 9112)
// used by the client: serialising a request head and body, and reading a
// response incrementally so that callers can report progress while the
// body arrives.
//
// Only the framing lives here. Resolving, dialing and TLS belong to
// package dialer, and the request lifecycle to package session.
package transport
