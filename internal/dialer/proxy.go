package dialer

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/transport"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

var proxyPorts = map[string]string{
	"http": "80", "https": "443", "socks5": "1080", "socks5h": "1080",
}

func (d *CoreDialer) proxyFor(ctx context.Context, r *model.PreparedRequest) (*url.URL, error) {
	if d.GetProxy == nil {
		return nil, nil
	}
	p, err := d.GetProxy(ctx, r.Request)
	if err != nil || p == "" {
		return nil, err
	}
	u, err := url.Parse(p)
	if err != nil {
		return nil, err
	}
	if _, ok := proxyPorts[u.Scheme]; !ok {
		return nil, errors.New("unsupported proxy scheme: " + u.Scheme)
	}
	return u, nil
}

// DialContextOverProxy creates a connection to addr over an http or
// socks5 proxy.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, addr string, proxyU *url.URL) (net.Conn, error) {
	hp := proxyU.Host
	if proxyU.Port() == "" {
		hp = net.JoinHostPort(proxyU.Hostname(), proxyPorts[proxyU.Scheme])
	}

	if proxyU.Scheme == "socks5" || proxyU.Scheme == "socks5h" {
		return d.dialSOCKS(ctx, addr, proxyU)
	}

	conn, err := zeroDialer.DialContext(ctx, d.network(), hp)
	if err != nil {
		return nil, err
	}

	if proxyU.Scheme == "https" {
		tlsCfg := d.TLSConfig
		if d.ProxyConfig != nil && d.ProxyConfig.TLSConfig != nil {
			tlsCfg = d.ProxyConfig.TLSConfig
		}
		c, err := handshake(ctx, tlsCfg, proxyU.Hostname(), conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}

	if err := connect(ctx, conn, addr, proxyU); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func connect(ctx context.Context, conn net.Conn, addr string, proxyU *url.URL) error {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	connReq := &model.PreparedRequest{
		Request:       &model.Request{Method: model.MethodConnect, Scheme: "http", Host: host, Port: port, Path: addr},
		HeaderHost:    addr,
		ContentLength: -1,
	}
	connReq.Header.Set("Connection", "keep-alive")
	if u := proxyU.User; u != nil {
		pass, _ := u.Password()
		auth := base64.StdEncoding.EncodeToString([]byte(u.Username() + ":" + pass))
		connReq.Header.Set("Proxy-Authorization", "Basic "+auth)
	}
	if err := transport.HTTP1.Write(conn, connReq); err != nil {
		return err
	}
	rr := transport.HTTP1.NewReader(conn, connReq)
	resp, err := rr.ReadHeader()
	if err != nil {
		return err
	}
	if resp.Code != 200 {
		rr.ReadAll()
		return fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.Code, rr.Response().String())
	}
	return nil
}

func (d *CoreDialer) dialSOCKS(ctx context.Context, addr string, proxyU *url.URL) (net.Conn, error) {
	socks, err := proxy.FromURL(proxyU, &zeroDialer)
	if err != nil {
		return nil, err
	}
	if cd, ok := socks.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr)
	}
	return socks.Dial("tcp", addr)
}
