// Package dialer exposes the connection layer of the client for users
// wrapping or replacing it, see [github.com/frankli0324/go-httb.Client.UseDialer].
package dialer

import (
	"crypto/tls"

	"github.com/frankli0324/go-httb/internal/dialer"
)

// Dialers are responsible for creating the streams requests are written
// to and responses are read from. A session calls Resolve, Connect and,
// for SSL requests, Handshake in order, each under its own deadline, so
// failures are reported with the step they happened in.
//
// A Dialer MUST NOT hold connection state: every session dials a fresh
// connection and closes it when done. It SHOULD hold the connection
// related settings like [ProxyConfig] or a *[tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It
// is used by a zero value client.
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library only follows the system configuration
// (e.g. /etc/resolv.conf), leaving [net.Resolver.Dial] as the only hook
// for pointing a Go resolver at another server.
type ResolveConfig = dialer.ResolveConfig

// TrustStore supplies the root certificates TLS handshakes verify
// against.
type TrustStore = dialer.TrustStore
type SystemTrustStore = dialer.SystemTrustStore
type PEMTrustStore = dialer.PEMTrustStore
type DirTrustStore = dialer.DirTrustStore

// TLSConfig builds a client TLS configuration trusting ts, nil keeps
// the host roots.
func TLSConfig(ts TrustStore) (*tls.Config, error) { return dialer.TLSConfig(ts) }
