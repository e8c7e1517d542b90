package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "HTTB"

// envConfig holds the raw HTTB_* variables. Empty means unset.
type envConfig struct {
	Verbose         string `envconfig:"VERBOSE"`
	ConnectTimeout  string `envconfig:"CONNECT_TIMEOUT"`
	ReadTimeout     string `envconfig:"READ_TIMEOUT"`
	FollowRedirects string `envconfig:"FOLLOW_REDIRECTS"`
	MaxBounces      string `envconfig:"MAX_BOUNCES"`
	Concurrency     string `envconfig:"CONCURRENCY"`
	RateLimit       string `envconfig:"RATE_LIMIT"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
	LogFormat       string `envconfig:"LOG_FORMAT"`
	TrustDir        string `envconfig:"TRUST_DIR"`
	TrustPEM        string `envconfig:"TRUST_PEM"`
	Proxy           string `envconfig:"PROXY"`
	ResolveLocally  string `envconfig:"RESOLVE_LOCALLY"`
	DNSServer       string `envconfig:"DNS_SERVER"`
	DNSNetwork      string `envconfig:"DNS_NETWORK"`
}

// ApplyEnvConfig overrides cfg with HTTB_* environment variables,
// except for the flags in changed.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	var env envConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	s := newConfigSetter(changed)

	s.setBoolFromString("verbose", env.Verbose, &cfg.Verbose)
	s.setBoolFromString("follow-redirects", env.FollowRedirects, &cfg.FollowRedirects)
	s.setBoolFromString("resolve-locally", env.ResolveLocally, &cfg.ResolveLocally)

	if err := s.setDuration("connect-timeout", env.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", env.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("max-bounces", env.MaxBounces, &cfg.MaxBounces); err != nil {
		return err
	}
	if err := s.setIntFromString("concurrency", env.Concurrency, &cfg.Concurrency); err != nil {
		return err
	}
	if err := s.setFloatFromString("rate", env.RateLimit, &cfg.RateLimit); err != nil {
		return err
	}

	s.setString("log-level", env.LogLevel, &cfg.LogLevel)
	s.setString("log-format", env.LogFormat, &cfg.LogFormat)
	s.setString("trust-dir", env.TrustDir, &cfg.TrustDir)
	s.setString("trust-pem", env.TrustPEM, &cfg.TrustPEM)
	s.setString("proxy", env.Proxy, &cfg.Proxy)
	s.setString("dns-server", env.DNSServer, &cfg.DNSServer)
	s.setString("dns-network", env.DNSNetwork, &cfg.DNSNetwork)
	return nil
}
