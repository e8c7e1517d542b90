package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with string durations, for TOML.
type FileConfig struct {
	Verbose         *bool   `toml:"verbose"`
	ConnectTimeout  string  `toml:"connect_timeout"`
	ReadTimeout     string  `toml:"read_timeout"`
	FollowRedirects *bool   `toml:"follow_redirects"`
	MaxBounces      int     `toml:"max_bounces"`
	Concurrency     int     `toml:"concurrency"`
	RateLimit       float64 `toml:"rate_limit"`
	LogLevel        string  `toml:"log_level"`
	LogFormat       string  `toml:"log_format"`
	TrustDir        string  `toml:"trust_dir"`
	TrustPEM        string  `toml:"trust_pem"`
	Proxy           string  `toml:"proxy"`
	ResolveLocally  *bool   `toml:"resolve_locally"`
	DNSServer       string  `toml:"dns_server"`
	DNSNetwork      string  `toml:"dns_network"`
}

func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.httb/config.toml, or "" without a home
// directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".httb", "config.toml")
	}
	return ""
}

func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// ApplyFileConfig copies the values set in fc into cfg, skipping the
// ones whose flag is in changed.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)
	s.setBool("follow-redirects", fc.FollowRedirects, &cfg.FollowRedirects)
	s.setBool("resolve-locally", fc.ResolveLocally, &cfg.ResolveLocally)

	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}
	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}

	s.setInt("max-bounces", fc.MaxBounces, &cfg.MaxBounces)
	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	s.setFloat("rate", fc.RateLimit, &cfg.RateLimit)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("trust-dir", fc.TrustDir, &cfg.TrustDir)
	s.setString("trust-pem", fc.TrustPEM, &cfg.TrustPEM)
	s.setString("proxy", fc.Proxy, &cfg.Proxy)
	s.setString("dns-server", fc.DNSServer, &cfg.DNSServer)
	s.setString("dns-network", fc.DNSNetwork, &cfg.DNSNetwork)
	return nil
}
