package session_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-httb/internal/dialer"
	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/session"
)

// TestDialer connects every request to an in-memory server.
type TestDialer struct {
	ResolveErr error
	Serve      func(conn net.Conn)
}

// Resolve implements dialer.Dialer.
func (t *TestDialer) Resolve(ctx context.Context, r *model.PreparedRequest) ([]string, error) {
	if t.ResolveErr != nil {
		return nil, t.ResolveErr
	}
	return []string{r.HostPort()}, nil
}

// Connect implements dialer.Dialer.
func (t *TestDialer) Connect(ctx context.Context, r *model.PreparedRequest, addrs []string) (net.Conn, error) {
	client, server := net.Pipe()
	go t.Serve(server)
	return client, nil
}

// Handshake implements dialer.Dialer.
func (t *TestDialer) Handshake(ctx context.Context, r *model.PreparedRequest, conn net.Conn) (net.Conn, error) {
	return conn, nil
}

// Unwrap implements dialer.Dialer.
func (t *TestDialer) Unwrap() dialer.Dialer { return nil }

func respond(raw string) func(net.Conn) {
	return func(c net.Conn) {
		defer c.Close()
		if _, err := http.ReadRequest(bufio.NewReader(c)); err != nil {
			return
		}
		io.WriteString(c, raw)
	}
}

func run(t *testing.T, req *model.Request, cfg session.Config) session.Result {
	t.Helper()
	s := session.New(context.Background(), req, cfg)
	s.Run()
	select {
	case <-s.Done():
	default:
		t.Fatal("session did not complete")
	}
	return s.Result()
}

func TestSessionSuccess(t *testing.T) {
	res := run(t, model.NewRequest("http://example.test/get"), session.Config{
		Dialer: &TestDialer{Serve: respond("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")},
	})
	require.Nil(t, res.Err)
	assert.Equal(t, 200, res.Response.Code)
	assert.Equal(t, "ok", res.Response.String())
	assert.Positive(t, res.Bytes)
}

type tick struct {
	loaded, total uint64
	fraction      float64
}

func TestSessionProgress(t *testing.T) {
	body := strings.Repeat("a", 100<<10)
	var ticks []tick
	res := run(t, model.NewRequest("http://example.test/"), session.Config{
		Dialer: &TestDialer{Serve: respond(fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body))},
		OnProgress: func(loaded, total uint64, fraction float64) {
			ticks = append(ticks, tick{loaded, total, fraction})
		},
	})
	require.Nil(t, res.Err)
	require.Len(t, res.Response.Body, len(body))
	require.Greater(t, len(ticks), 2)
	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i].fraction, ticks[i-1].fraction)
		assert.Equal(t, uint64(len(body)), ticks[i].total)
	}
	assert.Equal(t, tick{uint64(len(body)), uint64(len(body)), 1}, ticks[len(ticks)-1])
}

func TestSessionProgressUnknownLength(t *testing.T) {
	var ticks []tick
	res := run(t, model.NewRequest("http://example.test/"), session.Config{
		Dialer: &TestDialer{Serve: respond("HTTP/1.1 200 OK\r\n\r\nuntil close")},
		OnProgress: func(loaded, total uint64, fraction float64) {
			ticks = append(ticks, tick{loaded, total, fraction})
		},
	})
	require.Nil(t, res.Err)
	assert.Equal(t, "until close", res.Response.String())
	require.NotEmpty(t, ticks)
	for _, tk := range ticks {
		assert.Equal(t, tick{}, tk)
	}
}

type observer struct {
	mu      sync.Mutex
	failed  []string
	success []bool
}

func (o *observer) PhaseFailed(tag string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, tag)
}

func (o *observer) Finished(success bool, bytes int64, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.success = append(o.success, success)
}

func TestSessionFailures(t *testing.T) {
	obs := &observer{}
	dnsErr := &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}
	res := run(t, model.NewRequest("http://nope.invalid/"), session.Config{
		Dialer:   &TestDialer{ResolveErr: dnsErr},
		Observer: obs,
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, session.TagResolve, res.Err.Phase)
	assert.ErrorIs(t, res.Err, dnsErr)
	assert.Nil(t, res.Response)

	res = run(t, &model.Request{Method: model.MethodGet}, session.Config{Observer: obs})
	require.NotNil(t, res.Err)
	assert.Equal(t, session.TagPrepare, res.Err.Phase)

	res = run(t, model.NewRequest("http://example.test/"), session.Config{
		Dialer:   &TestDialer{Serve: respond("garbage\r\n\r\n")},
		Observer: obs,
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, session.TagRead, res.Err.Phase)

	assert.Equal(t, []string{session.TagResolve, session.TagPrepare, session.TagRead}, obs.failed)
	assert.Equal(t, []bool{false, false, false}, obs.success)
}

func TestSessionReadTimeout(t *testing.T) {
	req := model.NewRequest("http://example.test/")
	req.ReadTimeout = 50 * time.Millisecond
	res := run(t, req, session.Config{
		ReadTimeout: time.Hour,
		Dialer: &TestDialer{Serve: func(c net.Conn) {
			defer c.Close()
			io.Copy(io.Discard, c)
		}},
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, session.TagRead, res.Err.Phase)
	assert.True(t, errors.Is(res.Err, os.ErrDeadlineExceeded))
}

func TestSessionContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := session.New(ctx, model.NewRequest("http://example.test/"), session.Config{
		Dialer: &TestDialer{Serve: func(c net.Conn) {
			defer c.Close()
			io.Copy(io.Discard, c)
		}},
	})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	s.Run()
	require.NotNil(t, s.Result().Err)
	assert.Equal(t, session.TagRead, s.Result().Err.Phase)
}

func TestSessionSnapshot(t *testing.T) {
	seen := make(chan string, 1)
	req := model.NewRequest("http://example.test/before")
	s := session.New(context.Background(), req, session.Config{
		Dialer: &TestDialer{Serve: func(c net.Conn) {
			defer c.Close()
			r, err := http.ReadRequest(bufio.NewReader(c))
			if err != nil {
				return
			}
			seen <- r.URL.Path
			io.WriteString(c, "HTTP/1.1 204 No Content\r\n\r\n")
		}},
	})
	req.SetPath("after")
	s.Run()
	require.Nil(t, s.Result().Err)
	assert.Equal(t, "/before", <-seen)
	assert.Equal(t, session.Done, s.Phase())
}

func TestSessionVerbose(t *testing.T) {
	var sb strings.Builder
	var mu sync.Mutex
	logger := zerolog.New(zerolog.SyncWriter(writerFunc(func(p []byte) (int, error) {
		mu.Lock()
		defer mu.Unlock()
		return sb.Write(p)
	}))).Level(zerolog.DebugLevel)
	res := run(t, model.NewRequest("http://example.test/"), session.Config{
		Verbose: true,
		Logger:  logger,
		Dialer:  &TestDialer{Serve: respond("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")},
	})
	require.Nil(t, res.Err)
	out := sb.String()
	assert.Contains(t, out, `"to":"resolving"`)
	assert.Contains(t, out, `"to":"reading"`)
	assert.Contains(t, out, "GET / HTTP/1.1")
	assert.Contains(t, out, `"session":"`)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "handshaking", session.Handshaking.String())
	assert.Equal(t, "Phase(42)", session.Phase(42).String())
}
