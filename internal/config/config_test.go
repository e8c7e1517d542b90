package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-httb/internal"
	"github.com/frankli0324/go-httb/internal/dialer"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, internal.DefaultMaxBounces, cfg.MaxBounces)
	assert.True(t, cfg.FollowRedirects)
}

func TestApplyFileConfig(t *testing.T) {
	p := writeFile(t, "config.toml", `
verbose = true
connect_timeout = "2s"
read_timeout = "500ms"
follow_redirects = false
concurrency = 3
rate_limit = 2.5
proxy = "socks5://127.0.0.1:1080"
dns_network = "ip4"
`)
	fc, err := LoadFileConfig(p)
	require.NoError(t, err)

	cfg := Default()
	require.NoError(t, ApplyFileConfig(&cfg, fc, map[string]bool{"concurrency": true}))
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.ReadTimeout)
	assert.False(t, cfg.FollowRedirects)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency, "changed flags win over the file")
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "socks5://127.0.0.1:1080", cfg.Proxy)
	assert.Equal(t, "ip4", cfg.DNSNetwork)
	require.NoError(t, cfg.Validate())
}

func TestApplyFileConfigBadDuration(t *testing.T) {
	cfg := Default()
	err := ApplyFileConfig(&cfg, FileConfig{ReadTimeout: "soon"}, nil)
	assert.ErrorContains(t, err, "read-timeout")
}

func TestLoadFileConfigMissing(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
	assert.False(t, FileExists(filepath.Join(t.TempDir(), "nope.toml")))
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("HTTB_READ_TIMEOUT", "3s")
	t.Setenv("HTTB_MAX_BOUNCES", "9")
	t.Setenv("HTTB_VERBOSE", "1")
	t.Setenv("HTTB_LOG_FORMAT", "json")
	t.Setenv("HTTB_CONCURRENCY", "4")

	cfg := Default()
	require.NoError(t, ApplyEnvConfig(&cfg, map[string]bool{"concurrency": true}))
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 9, cfg.MaxBounces)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)

	t.Setenv("HTTB_MAX_BOUNCES", "many")
	assert.Error(t, ApplyEnvConfig(&cfg, nil))
}

func TestLoad(t *testing.T) {
	t.Setenv("HTTB_CONNECT_TIMEOUT", "-1s")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("HTTB_CONNECT_TIMEOUT", "1s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.ConnectTimeout)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bounces":     func(c *Config) { c.MaxBounces = 0 },
		"concurrency": func(c *Config) { c.Concurrency = 0 },
		"rate":        func(c *Config) { c.RateLimit = -1 },
		"trust":       func(c *Config) { c.TrustDir, c.TrustPEM = "a", "b" },
		"network":     func(c *Config) { c.DNSNetwork = "tcp" },
		"proxy":       func(c *Config) { c.Proxy = "ftp://proxy" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.FollowRedirects, cfg.MaxBounces = false, 0
	assert.NoError(t, cfg.Validate())
}

func TestDialer(t *testing.T) {
	cfg := Default()
	d, err := cfg.Dialer()
	require.NoError(t, err)
	assert.Nil(t, d)

	cfg.Proxy = "http://127.0.0.1:8080"
	cfg.DNSServer = "1.1.1.1:53"
	d, err = cfg.Dialer()
	require.NoError(t, err)
	core, ok := d.(*dialer.CoreDialer)
	require.True(t, ok)
	require.NotNil(t, core.GetProxy)
	p, err := core.GetProxy(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Proxy, p)
	assert.Equal(t, "1.1.1.1:53", core.ResolveConfig.CustomDNSServer)
	assert.NotNil(t, core.TLSConfig)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.ReadTimeout = time.Second
	cfg.TrustPEM = filepath.Join(t.TempDir(), "missing.pem")
	_, err := cfg.Options(zerolog.Nop(), nil)
	assert.Error(t, err)

	cfg.TrustPEM = ""
	opts, err := cfg.Options(zerolog.Nop(), nil)
	require.NoError(t, err)
	o := internal.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, time.Second, o.ReadTimeout)
	assert.Nil(t, o.Dialer)
	assert.Nil(t, o.TrustStore)
}
