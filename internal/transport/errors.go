package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

var (
	// ErrStreamTruncated is reported when a TLS peer closes the
	// connection without close_notify while the body is delimited by
	// the close itself.
	ErrStreamTruncated = errors.New("stream truncated")
	ErrMalformed       = errors.New("malformed HTTP response")
)

// Ignorable reports errors that still leave a complete exchange behind.
func Ignorable(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrStreamTruncated)
}

// IsNotConnected reports errors of shutting down a connection the peer
// already dropped.
func IsNotConnected(err error) bool {
	return errors.Is(err, errNotConnected) || errors.Is(err, net.ErrClosed)
}

const (
	CategorySystem  = "system"
	CategoryNetdb   = "netdb"
	CategoryTLS     = "tls"
	CategoryHTTP    = "http"
	CategoryGeneric = "generic"
)

// Failure describes an error as a category and a numeric value.
type Failure struct {
	Category string
	Value    int
	Message  string
}

// Classify maps err onto a category and numeric value.
func Classify(err error) Failure {
	var (
		dnsErr   *net.DNSError
		errno    syscall.Errno
		netErr   net.Error
		recErr   tls.RecordHeaderError
		alertErr tls.AlertError
		certErr  *tls.CertificateVerificationError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		invErr   x509.CertificateInvalidError
	)
	msg := err.Error()
	switch {
	case errors.As(err, &dnsErr):
		switch {
		case dnsErr.IsNotFound:
			return Failure{CategoryNetdb, 1, msg}
		case dnsErr.IsTemporary || dnsErr.IsTimeout:
			return Failure{CategoryNetdb, 2, msg}
		}
		return Failure{CategoryNetdb, 3, msg}
	case errors.As(err, &errno):
		return Failure{CategorySystem, int(errno), errno.Error()}
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return Failure{CategorySystem, int(errTimedOut), errTimedOut.Error()}
	case errors.Is(err, context.Canceled):
		return Failure{CategorySystem, int(errCanceled), errCanceled.Error()}
	case errors.As(err, &recErr), errors.As(err, &alertErr), errors.As(err, &certErr),
		errors.As(err, &authErr), errors.As(err, &hostErr), errors.As(err, &invErr),
		strings.Contains(msg, "tls: "):
		return Failure{CategoryTLS, 1, msg}
	case errors.Is(err, ErrMalformed):
		return Failure{CategoryHTTP, 1, msg}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Failure{CategoryHTTP, 2, "partial message"}
	}
	return Failure{CategoryGeneric, 1, msg}
}
