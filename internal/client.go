package internal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/frankli0324/go-httb/internal/dialer"
	"github.com/frankli0324/go-httb/internal/metrics"
	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/session"
	"github.com/frankli0324/go-httb/internal/transport"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultMaxBounces     = 5
)

// Handler performs one attempt of a request. It never fails: errors
// are reported as internal error responses, see [model.Response.IsInternalError].
type Handler = func(ctx context.Context, req *model.Request) *model.Response
type Middleware func(next Handler) Handler

type ResponseFunc func(resp *model.Response)

type Options struct {
	Verbose         bool
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	FollowRedirects bool
	MaxBounces      int

	Logger     zerolog.Logger
	Dialer     dialer.Dialer     // replaces the default dialer, TrustStore is ignored then
	TrustStore dialer.TrustStore // nil uses the host roots
	Metrics    *metrics.Metrics
}

func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  DefaultConnectTimeout,
		ReadTimeout:     DefaultReadTimeout,
		FollowRedirects: true,
		MaxBounces:      DefaultMaxBounces,
		Logger:          zerolog.Nop(),
	}
}

type Option func(*Options)

func WithVerbose(v bool) Option { return func(o *Options) { o.Verbose = v } }

func WithConnectTimeout(d time.Duration) Option { return func(o *Options) { o.ConnectTimeout = d } }

func WithReadTimeout(d time.Duration) Option { return func(o *Options) { o.ReadTimeout = d } }

// WithFollowRedirects enables the redirect loop, bounded by maxBounces
// re-executions.
func WithFollowRedirects(follow bool, maxBounces int) Option {
	return func(o *Options) { o.FollowRedirects, o.MaxBounces = follow, maxBounces }
}

func WithLogger(l zerolog.Logger) Option { return func(o *Options) { o.Logger = l } }

func WithDialer(d dialer.Dialer) Option { return func(o *Options) { o.Dialer = d } }

func WithTrustStore(ts dialer.TrustStore) Option { return func(o *Options) { o.TrustStore = ts } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *Options) { o.Metrics = m } }

func WithOptions(opts Options) Option { return func(o *Options) { *o = opts } }

// Client executes requests. The zero value is ready to use with
// [DefaultOptions].
type Client struct {
	opts       *Options
	optsOnce   sync.Once
	once       sync.Once
	dialer     dialer.Dialer
	initErr    error
	dialerWrap []func(dialer.Dialer) dialer.Dialer

	middlewares []Middleware
}

func New(opts ...Option) *Client {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{opts: &o}
}

func (c *Client) options() *Options {
	c.optsOnce.Do(func() {
		if c.opts == nil {
			o := DefaultOptions()
			c.opts = &o
		}
	})
	return c.opts
}

// Use appends mw to the end of the chain. The first "Use"d mw is the
// outermost one and executes first. Middlewares wrap every attempt,
// redirected ones included.
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer wraps the dialer in use. It must be called before the
// first request.
func (c *Client) UseDialer(wrap func(dialer.Dialer) dialer.Dialer) {
	c.dialerWrap = append(c.dialerWrap, wrap)
}

func (c *Client) init() error {
	c.once.Do(func() {
		o := c.options()
		d := o.Dialer
		if d == nil {
			cfg, err := dialer.TLSConfig(o.TrustStore)
			if err != nil {
				c.initErr = err
				return
			}
			// built once, each session clones it to set ServerName
			d = &dialer.CoreDialer{TLSConfig: cfg}
		}
		for _, wrap := range c.dialerWrap {
			d = wrap(d)
		}
		c.dialer = d
	})
	return c.initErr
}

func (c *Client) chain(next Handler) Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return next
}

// ExecuteBlocking runs req in the calling goroutine and returns the
// final response, redirects followed.
func (c *Client) ExecuteBlocking(ctx context.Context, req *model.Request) *model.Response {
	if err := c.init(); err != nil {
		return errorResponse(&session.PhaseError{Phase: session.TagPrepare, Err: err})
	}
	return c.follow(ctx, req.Clone(), c.chain(c.executeBlocking))
}

// Execute runs req on a private reactor and returns once onResponse
// has been called.
func (c *Client) Execute(ctx context.Context, req *model.Request, onResponse ResponseFunc, onProgress session.ProgressFunc) {
	reactor, err := session.NewReactor(1, c.options().Logger)
	if err != nil {
		if onResponse != nil {
			onResponse(errorResponse(err))
		}
		return
	}
	defer reactor.Release()
	c.ExecuteInContext(ctx, reactor, req, onResponse, onProgress)
	reactor.Wait()
}

// ExecuteInContext schedules req on reactor and returns immediately.
// The request is copied before returning. onResponse is called exactly
// once, from a reactor worker.
func (c *Client) ExecuteInContext(ctx context.Context, reactor *session.Reactor, req *model.Request,
	onResponse ResponseFunc, onProgress session.ProgressFunc,
) *Call {
	call := &Call{done: make(chan struct{})}
	snapshot := req.Clone()
	complete := func(resp *model.Response) {
		call.resp = resp
		defer close(call.done)
		if onResponse != nil {
			onResponse(resp)
		}
	}
	if err := c.init(); err != nil {
		complete(errorResponse(&session.PhaseError{Phase: session.TagPrepare, Err: err}))
		return call
	}
	err := reactor.Submit(func() {
		// redirects are followed inside this task, so a full reactor
		// never waits on itself
		complete(c.follow(ctx, snapshot, c.chain(c.executeSession(onProgress))))
	})
	if err != nil {
		complete(errorResponse(err))
	}
	return call
}

func (c *Client) sessionConfig(onProgress session.ProgressFunc) session.Config {
	o := c.options()
	cfg := session.Config{
		Dialer:         c.dialer,
		Transport:      transport.HTTP1,
		ConnectTimeout: o.ConnectTimeout,
		ReadTimeout:    o.ReadTimeout,
		Verbose:        o.Verbose,
		Logger:         o.Logger,
		OnProgress:     onProgress,
	}
	if o.Metrics != nil {
		cfg.Observer = o.Metrics
	}
	return cfg
}

func (c *Client) executeSession(onProgress session.ProgressFunc) Handler {
	return func(ctx context.Context, req *model.Request) *model.Response {
		s := session.New(ctx, req, c.sessionConfig(onProgress))
		s.Run()
		res := s.Result()
		if res.Err != nil {
			return errorResponse(res.Err)
		}
		return res.Response
	}
}

// Call is the handle of a request scheduled with ExecuteInContext.
type Call struct {
	done chan struct{}
	resp *model.Response
}

func (c *Call) Done() <-chan struct{} { return c.done }

// Response waits for the call to complete and returns its response.
func (c *Call) Response() *model.Response {
	<-c.done
	return c.resp
}
