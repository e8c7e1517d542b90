// Package config holds the settings shared by the command line and
// library users, loaded from defaults, a TOML file, HTTB_* environment
// variables and flags, in increasing order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/frankli0324/go-httb/internal"
	"github.com/frankli0324/go-httb/internal/dialer"
	"github.com/frankli0324/go-httb/internal/logging"
	"github.com/frankli0324/go-httb/internal/metrics"
	"github.com/frankli0324/go-httb/internal/model"
)

const (
	DefaultConcurrency = 8
	DefaultLogLevel    = "info"
)

type Config struct {
	Verbose         bool
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	FollowRedirects bool
	MaxBounces      int

	Concurrency int
	RateLimit   float64 // requests per second, 0 is unlimited

	LogLevel  string
	LogFormat string

	TrustDir string // directory of .crt/.pem roots
	TrustPEM string // PEM bundle file

	Proxy          string
	ResolveLocally bool
	DNSServer      string
	DNSNetwork     string // ip, ip4 or ip6
}

func Default() Config {
	return Config{
		ConnectTimeout:  internal.DefaultConnectTimeout,
		ReadTimeout:     internal.DefaultReadTimeout,
		FollowRedirects: true,
		MaxBounces:      internal.DefaultMaxBounces,
		Concurrency:     DefaultConcurrency,
		LogLevel:        DefaultLogLevel,
		LogFormat:       logging.FormatConsole,
	}
}

// Load returns the defaults overridden by the environment.
func Load() (Config, error) {
	cfg := Default()
	if err := ApplyEnvConfig(&cfg, nil); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.ConnectTimeout < 0 {
		return errors.New("connect timeout must not be negative")
	}
	if c.ReadTimeout < 0 {
		return errors.New("read timeout must not be negative")
	}
	if c.FollowRedirects && c.MaxBounces <= 0 {
		return errors.New("max bounces must be positive when following redirects")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.TrustDir != "" && c.TrustPEM != "" {
		return errors.New("trust dir and trust pem are mutually exclusive")
	}
	switch c.DNSNetwork {
	case "", "ip", "ip4", "ip6":
	default:
		return fmt.Errorf("invalid dns network %q", c.DNSNetwork)
	}
	if c.Proxy != "" {
		u, err := url.Parse(c.Proxy)
		if err != nil {
			return fmt.Errorf("parse proxy: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
	}
	return nil
}

// Logger builds the logger described by c. Verbose forces debug level.
func (c *Config) Logger() (zerolog.Logger, error) {
	level := c.LogLevel
	if c.Verbose {
		level = "debug"
	}
	return logging.New(level, c.LogFormat, os.Stderr)
}

// TrustStore returns nil when the host roots should be used.
func (c *Config) TrustStore() (dialer.TrustStore, error) {
	switch {
	case c.TrustDir != "":
		return dialer.DirTrustStore(c.TrustDir), nil
	case c.TrustPEM != "":
		b, err := os.ReadFile(c.TrustPEM)
		if err != nil {
			return nil, fmt.Errorf("read trust pem: %w", err)
		}
		return dialer.PEMTrustStore(b), nil
	}
	return nil, nil
}

// Dialer returns a dialer carrying the proxy and resolver settings, or
// nil if the client default does the job.
func (c *Config) Dialer() (dialer.Dialer, error) {
	if c.Proxy == "" && c.DNSServer == "" && c.DNSNetwork == "" {
		return nil, nil
	}
	ts, err := c.TrustStore()
	if err != nil {
		return nil, err
	}
	tlsCfg, err := dialer.TLSConfig(ts)
	if err != nil {
		return nil, err
	}
	d := &dialer.CoreDialer{TLSConfig: tlsCfg}
	if c.DNSServer != "" || c.DNSNetwork != "" {
		d.ResolveConfig = &dialer.ResolveConfig{
			CustomDNSServer: c.DNSServer,
			Network:         c.DNSNetwork,
		}
	}
	if c.Proxy != "" {
		proxy := c.Proxy
		d.GetProxy = func(context.Context, *model.Request) (string, error) { return proxy, nil }
		d.ProxyConfig = &dialer.ProxyConfig{ResolveLocally: c.ResolveLocally}
	}
	return d, nil
}

// Options converts c into client options. m may be nil.
func (c *Config) Options(logger zerolog.Logger, m *metrics.Metrics) ([]internal.Option, error) {
	opts := []internal.Option{
		internal.WithVerbose(c.Verbose),
		internal.WithConnectTimeout(c.ConnectTimeout),
		internal.WithReadTimeout(c.ReadTimeout),
		internal.WithFollowRedirects(c.FollowRedirects, c.MaxBounces),
		internal.WithLogger(logger),
		internal.WithMetrics(m),
	}
	d, err := c.Dialer()
	if err != nil {
		return nil, err
	}
	if d != nil {
		return append(opts, internal.WithDialer(d)), nil
	}
	ts, err := c.TrustStore()
	if err != nil {
		return nil, err
	}
	if ts != nil {
		opts = append(opts, internal.WithTrustStore(ts))
	}
	return opts, nil
}
