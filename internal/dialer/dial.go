package dialer

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/frankli0324/go-httb/internal/model"
)

var zeroDialer net.Dialer

func (d *CoreDialer) network() string {
	if d.ResolveConfig != nil {
		switch d.ResolveConfig.Network {
		case "ip4":
			return "tcp4"
		case "ip6":
			return "tcp6"
		}
	}
	return "tcp"
}

// Resolve implements [Dialer]. When the request goes through a proxy
// that resolves names itself, the target is returned unresolved.
func (d *CoreDialer) Resolve(ctx context.Context, r *model.PreparedRequest) ([]string, error) {
	port := r.Port
	if port == "" {
		port = model.DefaultPort(r.Scheme)
	}
	proxy, err := d.proxyFor(ctx, r)
	if err != nil {
		return nil, err
	}
	if proxy != nil && (d.ProxyConfig == nil || !d.ProxyConfig.ResolveLocally) {
		return []string{net.JoinHostPort(r.Host, port)}, nil
	}
	cfg := d.ResolveConfig
	if proxy != nil && d.ProxyConfig.ResolveConfig != nil {
		cfg = d.ProxyConfig.ResolveConfig.Merge(d.ResolveConfig)
	}
	ips, err := d.lookup(ctx, cfg, r.Host)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = net.JoinHostPort(ip.String(), port)
	}
	return addrs, nil
}

// Connect implements [Dialer]. Addresses are tried in order and the
// error of the last attempt is returned if none succeeds.
func (d *CoreDialer) Connect(ctx context.Context, r *model.PreparedRequest, addrs []string) (net.Conn, error) {
	if len(addrs) == 0 {
		return nil, errors.New("no addresses to connect to")
	}
	proxy, err := d.proxyFor(ctx, r)
	if err != nil {
		return nil, err
	}
	if proxy != nil {
		return d.DialContextOverProxy(ctx, addrs[0], proxy)
	}
	var last error
	for _, addr := range addrs {
		conn, err := zeroDialer.DialContext(ctx, d.network(), addr)
		if err == nil {
			return conn, nil
		}
		last = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, last
}

// Handshake implements [Dialer].
func (d *CoreDialer) Handshake(ctx context.Context, r *model.PreparedRequest, conn net.Conn) (net.Conn, error) {
	return handshake(ctx, d.TLSConfig, r.Host, conn)
}

func handshake(ctx context.Context, base *tls.Config, serverName string, conn net.Conn) (net.Conn, error) {
	config := base.Clone()
	if config == nil {
		config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	config.ServerName = serverName
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
