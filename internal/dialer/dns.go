package dialer

import (
	"context"
	"net"
)

type ResolveConfig struct {
	CustomDNSServer string
	Network         string            // one of "ip4", "ip6", default is "ip"
	StaticHosts     map[string]string // resembles /etc/hosts
}

func (c *ResolveConfig) Clone() *ResolveConfig {
	if c == nil {
		return nil
	}
	hosts := make(map[string]string, len(c.StaticHosts))
	for k, v := range c.StaticHosts {
		hosts[k] = v
	}
	return &ResolveConfig{
		CustomDNSServer: c.CustomDNSServer,
		Network:         c.Network,
		StaticHosts:     hosts,
	}
}

// Merge fills the fields c leaves empty from fallback.
func (c *ResolveConfig) Merge(fallback *ResolveConfig) *ResolveConfig {
	out := c.Clone()
	if out == nil {
		return fallback.Clone()
	}
	if fallback == nil {
		return out
	}
	if out.CustomDNSServer == "" {
		out.CustomDNSServer = fallback.CustomDNSServer
	}
	if out.Network == "" {
		out.Network = fallback.Network
	}
	for k, v := range fallback.StaticHosts {
		if _, ok := out.StaticHosts[k]; !ok {
			out.StaticHosts[k] = v
		}
	}
	return out
}

// this type should not be used outside this file.
// prevents non-custom DNS server contexts to iterate through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer to any object, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return zeroDialer.DialContext(ctx, network, v)
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

func (d *CoreDialer) lookup(ctx context.Context, cfg *ResolveConfig, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if cfg == nil {
		return net.DefaultResolver.LookupIP(ctx, "ip", host)
	}
	if static, ok := cfg.StaticHosts[host]; ok {
		if ip := net.ParseIP(static); ip != nil {
			return []net.IP{ip}, nil
		}
		host = static
	}
	network := cfg.Network
	if network == "" {
		network = "ip"
	}
	if cfg.CustomDNSServer == "" {
		return net.DefaultResolver.LookupIP(ctx, network, host)
	}
	return d.LookupIPServer(ctx, network, host, cfg.CustomDNSServer)
}

// LookupIPServer performs DNS lookup for a host on a custom dns server,
// it calls [net.Resolver.LookupIP] with a Go Resolver behind the scenes.
// This part of logic may be reused when wrapping *[CoreDialer] into
// a new custom [Dialer]
func (d *CoreDialer) LookupIPServer(ctx context.Context, network, host, dns string) ([]net.IP, error) {
	return customServerResolver.LookupIP(dnsServerCtx{ctx, dns}, network, host)
}
