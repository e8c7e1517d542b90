package httb

import (
	"github.com/frankli0324/go-httb/internal/dialer"
)

type Dialer = dialer.Dialer
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig
type ResolveConfig = dialer.ResolveConfig

type TrustStore = dialer.TrustStore
type SystemTrustStore = dialer.SystemTrustStore
type PEMTrustStore = dialer.PEMTrustStore
type DirTrustStore = dialer.DirTrustStore
