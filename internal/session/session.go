// Package session drives a single request through its lifecycle:
// resolve, connect, optional TLS handshake, write, read and shutdown.
//
// Every step runs under its own deadline and a failure is tagged with
// the step it happened in, see [PhaseError].
package session

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/frankli0324/go-httb/internal/dialer"
	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/transport"
)

const maxLoggedHead = 1024

// ProgressFunc receives the bytes loaded so far, the declared total and
// their ratio. Both counts are zero when the length is not known.
type ProgressFunc func(loaded, total uint64, fraction float64)

// Observer is notified about the outcome of sessions.
type Observer interface {
	PhaseFailed(tag string)
	Finished(success bool, bytes int64, elapsed time.Duration)
}

type Config struct {
	Dialer    dialer.Dialer
	Transport transport.Transport

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	Verbose    bool
	Logger     zerolog.Logger
	OnProgress ProgressFunc
	Observer   Observer
}

// Result is the outcome of a finished session. Exactly one of Response
// and Err is set.
type Result struct {
	Response *model.Response
	Bytes    int64
	Err      *PhaseError
}

// Session is the state machine of one request. It operates on a copy
// of the request taken when it is created.
type Session struct {
	ID string

	cfg   Config
	ctx   context.Context
	raw   *model.Request
	req   *model.PreparedRequest
	phase Phase
	log   zerolog.Logger
	start time.Time

	addrs       []string
	tcp         net.Conn
	conn        net.Conn
	stopWatch   func() bool
	connectCtx  context.Context
	connectDone context.CancelFunc
	reader      *transport.ResponseReader

	result Result
	done   chan struct{}
}

func New(ctx context.Context, req *model.Request, cfg Config) *Session {
	if cfg.Transport == nil {
		cfg.Transport = transport.HTTP1
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &dialer.CoreDialer{}
	}
	id := uuid.NewString()
	return &Session{
		ID:   id,
		cfg:  cfg,
		ctx:  ctx,
		raw:  req.Clone(),
		log:  cfg.Logger.With().Str("session", id).Logger(),
		done: make(chan struct{}),
	}
}

func (s *Session) Phase() Phase { return s.phase }

// Run drives the session to completion in the calling goroutine. To run
// it asynchronously, submit Run to a [Reactor]. Completion is signalled
// on Done either way.
func (s *Session) Run() {
	s.start = time.Now()
	for s.phase != Done && s.phase != Failed {
		s.step()
	}
}

func (s *Session) Done() <-chan struct{} { return s.done }

// Result returns the outcome, it is only meaningful once Done is closed.
func (s *Session) Result() Result { return s.result }

func (s *Session) step() {
	switch s.phase {
	case Init:
		pr, err := s.raw.Prepare()
		if err == nil {
			err = transport.Validate(pr)
		}
		if err != nil {
			s.fail(TagPrepare, err)
			return
		}
		s.req = pr
		s.transition(Resolving, "resolve host "+pr.Host)
	case Resolving:
		addrs, err := s.cfg.Dialer.Resolve(s.ctx, s.req)
		if err != nil {
			s.fail(TagResolve, err)
			return
		}
		s.addrs = addrs
		s.transition(Connecting, "connecting to host...")
	case Connecting:
		if d := s.timeout(s.req.ConnectTimeout, s.cfg.ConnectTimeout); d > 0 {
			s.connectCtx, s.connectDone = context.WithTimeout(s.ctx, d)
		} else {
			s.connectCtx, s.connectDone = context.WithCancel(s.ctx)
		}
		conn, err := s.cfg.Dialer.Connect(s.connectCtx, s.req, s.addrs)
		if err != nil {
			s.fail(TagConnect, err)
			return
		}
		s.tcp, s.conn = conn, conn
		s.logHead()
		if s.req.SSL {
			s.transition(Handshaking, "handshaking...")
			return
		}
		s.transition(Writing, "writing request")
	case Handshaking:
		conn, err := s.cfg.Dialer.Handshake(s.connectCtx, s.req, s.tcp)
		if err != nil {
			s.fail(TagHandshake, err)
			return
		}
		s.conn = conn
		s.transition(Writing, "writing request")
	case Writing:
		s.leaveConnect()
		if err := s.cfg.Transport.Write(s.conn, s.req); err != nil && !transport.Ignorable(err) {
			s.fail(TagWrite, err)
			return
		}
		if d := s.timeout(s.req.ReadTimeout, s.cfg.ReadTimeout); d > 0 {
			s.conn.SetReadDeadline(time.Now().Add(d))
		}
		s.reader = s.cfg.Transport.NewReader(s.conn, s.req)
		s.transition(Reading, "read response...")
	case Reading:
		if err := s.read(); err != nil && !transport.Ignorable(err) {
			s.fail(TagRead, err)
			return
		}
		if s.reader.Done() {
			s.finish()
		} else {
			s.tick()
		}
	}
}

// leaveConnect ends the connect deadline and keeps honouring the
// caller's context for the remaining I/O.
func (s *Session) leaveConnect() {
	if s.connectDone != nil {
		s.connectDone()
		s.connectDone = nil
	}
	s.conn.SetDeadline(time.Time{})
	conn := s.conn
	s.stopWatch = context.AfterFunc(s.ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
}

func (s *Session) read() error {
	if s.reader.Response() == nil {
		_, err := s.reader.ReadHeader()
		return err
	}
	if s.cfg.OnProgress == nil {
		return s.reader.ReadAll()
	}
	_, err := s.reader.ReadSome()
	return err
}

func (s *Session) timeout(override, def time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return def
}

func (s *Session) tick() {
	if s.cfg.OnProgress == nil {
		return
	}
	total := s.reader.ContentLength()
	if total <= 0 {
		s.cfg.OnProgress(0, 0, 0)
		return
	}
	loaded := s.reader.Loaded()
	s.cfg.OnProgress(uint64(loaded), uint64(total), float64(loaded)/float64(total))
}

func (s *Session) finish() {
	s.logf("shutting down")
	// the TLS layer is not shut down, closing the socket is enough
	if cw, ok := s.tcp.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil && !transport.Ignorable(err) && !transport.IsNotConnected(err) {
			s.fail(TagShutdown, err)
			return
		}
	}
	if s.cfg.OnProgress != nil {
		if total := s.reader.ContentLength(); total > 0 {
			s.cfg.OnProgress(uint64(total), uint64(total), 1)
		} else {
			s.cfg.OnProgress(0, 0, 0)
		}
	}
	s.result = Result{Response: s.reader.Response(), Bytes: s.reader.BytesRead()}
	s.phase = Done
	s.release(true)
}

func (s *Session) transition(next Phase, msg string) {
	if s.cfg.Verbose {
		s.log.Debug().Stringer("from", s.phase).Stringer("to", next).Msg(msg)
	}
	s.phase = next
}

func (s *Session) logf(msg string) {
	if s.cfg.Verbose {
		s.log.Debug().Stringer("phase", s.phase).Msg(msg)
	}
}

func (s *Session) logHead() {
	if !s.cfg.Verbose {
		return
	}
	head := transport.Head(s.req)
	if len(head) >= maxLoggedHead {
		head = head[:maxLoggedHead-1] + " ...(too big for output)"
	}
	s.log.Debug().Str("request", head).Msg("request head")
}

func (s *Session) fail(tag string, err error) {
	s.log.Debug().Str("phase", tag).Err(err).Msg("session failed")
	s.result = Result{Err: &PhaseError{Phase: tag, Err: err}}
	if s.cfg.Observer != nil {
		s.cfg.Observer.PhaseFailed(tag)
	}
	s.phase = Failed
	s.release(false)
}

func (s *Session) release(success bool) {
	if s.connectDone != nil {
		s.connectDone()
	}
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	if s.tcp != nil && s.tcp != s.conn {
		s.tcp.Close()
	}
	if s.cfg.Observer != nil {
		s.cfg.Observer.Finished(success, s.result.Bytes, time.Since(s.start))
	}
	close(s.done)
}
