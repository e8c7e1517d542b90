package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/frankli0324/go-httb/internal/model"
)

// Dialers handle pretty much everything related to the actual connection,
// including setting a proxy for each request, setting resolvers, etc.
//
// The three steps are called in order by a session, each under its own
// deadline, so that a failure can be attributed to the step it
// happened in.
type Dialer interface {
	// Resolve returns the addresses to connect to, in host:port form.
	Resolve(ctx context.Context, r *model.PreparedRequest) ([]string, error)
	// Connect opens a connection to the first reachable address.
	Connect(ctx context.Context, r *model.PreparedRequest, addrs []string) (net.Conn, error)
	// Handshake secures conn. It is only called for SSL requests.
	Handshake(ctx context.Context, r *model.PreparedRequest, conn net.Conn) (net.Conn, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use, ServerName is filled per request

	GetProxy    func(ctx context.Context, r *model.Request) (string, error)
	ProxyConfig *ProxyConfig
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}
