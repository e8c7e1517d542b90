package dialer

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TrustStore provides the root certificates TLS peers are verified
// against.
type TrustStore interface {
	CertPool() (*x509.CertPool, error)
}

// SystemTrustStore uses the roots of the host.
type SystemTrustStore struct{}

func (SystemTrustStore) CertPool() (*x509.CertPool, error) {
	return x509.SystemCertPool()
}

// PEMTrustStore holds one or more PEM encoded certificates.
type PEMTrustStore []byte

func (p PEMTrustStore) CertPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(p) {
		return nil, errors.New("no certificates found in PEM data")
	}
	return pool, nil
}

// DirTrustStore loads every .crt and .pem file below a directory.
type DirTrustStore string

func (d DirTrustStore) CertPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	found := 0
	err := filepath.WalkDir(string(d), func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if e.IsDir() || (ext != ".crt" && ext != ".pem") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if pool.AppendCertsFromPEM(data) {
			found++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == 0 {
		return nil, fmt.Errorf("no certificates found in %s", string(d))
	}
	return pool, nil
}

// TLSConfig builds the client TLS configuration from ts. A nil ts
// keeps the host roots.
func TLSConfig(ts TrustStore) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if ts == nil {
		return cfg, nil
	}
	pool, err := ts.CertPool()
	if err != nil {
		return nil, err
	}
	cfg.RootCAs = pool
	return cfg, nil
}
