package httb

import (
	"github.com/frankli0324/go-httb/internal"
	"github.com/frankli0324/go-httb/internal/metrics"
	"github.com/frankli0324/go-httb/internal/session"
)

type Client = internal.Client
type Options = internal.Options
type Option = internal.Option
type Handler = internal.Handler
type Middleware = internal.Middleware
type ResponseFunc = internal.ResponseFunc
type Call = internal.Call
type Batch = internal.Batch

// Reactor bounds how many sessions run at once. Share one between
// clients to bound them together.
type Reactor = session.Reactor
type ProgressFunc = session.ProgressFunc

type Metrics = metrics.Metrics

const (
	DefaultConnectTimeout = internal.DefaultConnectTimeout
	DefaultReadTimeout    = internal.DefaultReadTimeout
	DefaultMaxBounces     = internal.DefaultMaxBounces
)

var (
	New            = internal.New
	DefaultOptions = internal.DefaultOptions
	NewBatch       = internal.NewBatch
	NewReactor     = session.NewReactor
	NewMetrics     = metrics.New

	WithVerbose         = internal.WithVerbose
	WithConnectTimeout  = internal.WithConnectTimeout
	WithReadTimeout     = internal.WithReadTimeout
	WithFollowRedirects = internal.WithFollowRedirects
	WithLogger          = internal.WithLogger
	WithDialer          = internal.WithDialer
	WithTrustStore      = internal.WithTrustStore
	WithMetrics         = internal.WithMetrics
	WithOptions         = internal.WithOptions
)
