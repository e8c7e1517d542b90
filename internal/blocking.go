package internal

import (
	"context"
	"net"
	"time"

	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/session"
	"github.com/frankli0324/go-httb/internal/transport"
)

func timeout(override, def time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return def
}

// executeBlocking is one attempt in the calling goroutine. It performs
// the same steps as a session without going through its state machine.
func (c *Client) executeBlocking(ctx context.Context, req *model.Request) *model.Response {
	o := c.options()
	start := time.Now()
	resp, n, err := c.roundTrip(ctx, req)
	if err != nil {
		o.Logger.Debug().Err(err).Msg("blocking request failed")
		o.Metrics.PhaseFailed(err.Phase)
		o.Metrics.Finished(false, 0, time.Since(start))
		return errorResponse(err)
	}
	o.Metrics.Finished(true, n, time.Since(start))
	return resp
}

func fail(tag string, err error) *session.PhaseError {
	return &session.PhaseError{Phase: tag, Err: err}
}

func (c *Client) roundTrip(ctx context.Context, req *model.Request) (*model.Response, int64, *session.PhaseError) {
	o := c.options()
	pr, err := req.Prepare()
	if err == nil {
		err = transport.Validate(pr)
	}
	if err != nil {
		return nil, 0, fail(session.TagPrepare, err)
	}

	addrs, err := c.dialer.Resolve(ctx, pr)
	if err != nil {
		return nil, 0, fail(session.TagResolve, err)
	}

	var (
		connectCtx context.Context
		cancel     context.CancelFunc
	)
	if d := timeout(pr.ConnectTimeout, o.ConnectTimeout); d > 0 {
		connectCtx, cancel = context.WithTimeout(ctx, d)
	} else {
		connectCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	tcp, err := c.dialer.Connect(connectCtx, pr, addrs)
	if err != nil {
		return nil, 0, fail(session.TagConnect, err)
	}
	defer tcp.Close()
	if o.Verbose {
		o.Logger.Debug().Str("request", transport.Head(pr)).Msg("request head")
	}

	conn := tcp
	if pr.SSL {
		if conn, err = c.dialer.Handshake(connectCtx, pr, tcp); err != nil {
			return nil, 0, fail(session.TagHandshake, err)
		}
		defer conn.Close()
	}
	cancel()
	conn.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	if err := transport.HTTP1.Write(conn, pr); err != nil && !transport.Ignorable(err) {
		return nil, 0, fail(session.TagWrite, err)
	}
	if d := timeout(pr.ReadTimeout, o.ReadTimeout); d > 0 {
		conn.SetReadDeadline(time.Now().Add(d))
	}
	rr := transport.HTTP1.NewReader(conn, pr)
	if _, err := rr.ReadHeader(); err != nil {
		return nil, 0, fail(session.TagRead, err)
	}
	if err := rr.ReadAll(); err != nil {
		return nil, 0, fail(session.TagRead, err)
	}
	if err := closeWrite(tcp); err != nil {
		return nil, 0, fail(session.TagShutdown, err)
	}
	return rr.Response(), rr.BytesRead(), nil
}

func closeWrite(conn net.Conn) error {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return nil
	}
	if err := cw.CloseWrite(); err != nil && !transport.Ignorable(err) && !transport.IsNotConnected(err) {
		return err
	}
	return nil
}
