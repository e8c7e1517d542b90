package internal_test

import (
	"context"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankli0324/go-httb/internal"
	"github.com/frankli0324/go-httb/internal/dialer"
	"github.com/frankli0324/go-httb/internal/metrics"
	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/session"
)

type executor func(c *internal.Client, req *model.Request) *model.Response

var executors = map[string]executor{
	"Blocking": func(c *internal.Client, req *model.Request) *model.Response {
		return c.ExecuteBlocking(context.Background(), req)
	},
	"Async": func(c *internal.Client, req *model.Request) *model.Response {
		var resp *model.Response
		c.Execute(context.Background(), req, func(r *model.Response) { resp = r }, nil)
		return resp
	},
}

func echoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Method", r.Method)
		fmt.Fprintf(w, `{"path":%q,"query":%q,"body":%q,"ua":%q}`, r.URL.Path, r.URL.RawQuery, body, r.UserAgent())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecute(t *testing.T) {
	srv := echoServer(t)
	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			req := model.NewRequestWithMethod(srv.URL+"/echo?a[]=1&a[]=2", model.MethodPost)
			req.SetBodyString("payload")
			resp := exec(internal.New(), req)
			require.Equal(t, 200, resp.Code, resp.String())
			assert.True(t, resp.Success())
			assert.Equal(t, "POST", resp.Header.Get("x-method"))
			assert.Equal(t, "/echo", resp.JSON("path").String())
			assert.Equal(t, "a[]=1&a[]=2", resp.JSON("query").String())
			assert.Equal(t, "payload", resp.JSON("body").String())
			assert.True(t, strings.HasPrefix(resp.JSON("ua").String(), "go-httb/"))
		})
	}
}

func TestBlockingAndAsyncAgree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Fixed", "1")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, "same")
	}))
	defer srv.Close()

	c := internal.New()
	a := executors["Blocking"](c, model.NewRequest(srv.URL))
	b := executors["Async"](c, model.NewRequest(srv.URL))
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, a.Body, b.Body)
	assert.Equal(t, a.Header.Get("X-Fixed"), b.Header.Get("X-Fixed"))
}

func TestRedirectBounded(t *testing.T) {
	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				http.Redirect(w, r, "/again", http.StatusMovedPermanently)
			}))
			defer srv.Close()

			resp := exec(internal.New(internal.WithFollowRedirects(true, 5)), model.NewRequest(srv.URL+"/start"))
			assert.Equal(t, 301, resp.Code)
			assert.Equal(t, int32(6), hits.Load())
		})
	}
}

func TestRedirectFollowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a/start":
			w.Header().Set("Location", "next?x=1")
			w.WriteHeader(http.StatusFound)
		case "/a/next":
			w.Header().Set("Location", "/final")
			w.WriteHeader(http.StatusTemporaryRedirect)
		case "/final":
			io.WriteString(w, r.Method+" "+r.URL.RawQuery)
		case "/noloc":
			w.WriteHeader(http.StatusFound)
		}
	}))
	defer srv.Close()

	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			req := model.NewRequestWithMethod(srv.URL+"/a/start", model.MethodPut)
			req.SetBodyString("keep")
			resp := exec(internal.New(), req)
			assert.Equal(t, 200, resp.Code)
			assert.Equal(t, "PUT ", resp.String())

			resp = exec(internal.New(), model.NewRequest(srv.URL+"/noloc"))
			assert.Equal(t, 302, resp.Code)

			resp = exec(internal.New(internal.WithFollowRedirects(false, 5)), model.NewRequest(srv.URL+"/a/start"))
			assert.Equal(t, 302, resp.Code)
			assert.Equal(t, "next?x=1", resp.Header.Get("Location"))
		})
	}
}

type failingDialer struct{ *dialer.CoreDialer }

func (failingDialer) Resolve(ctx context.Context, r *model.PreparedRequest) ([]string, error) {
	return nil, &net.DNSError{Err: "no such host", Name: r.Host, IsNotFound: true}
}

func TestUnresolvableHost(t *testing.T) {
	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			c := internal.New(internal.WithDialer(failingDialer{&dialer.CoreDialer{}}))
			resp := exec(c, model.NewRequest("http://nonexistent.invalid/"))
			assert.GreaterOrEqual(t, resp.Code, 1000)
			assert.False(t, resp.Success())
			assert.True(t, resp.IsInternalError())
			assert.Equal(t, "netdb[1001]: lookup nonexistent.invalid: no such host::resolve", resp.String())
		})
	}
}

func TestConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			resp := exec(internal.New(), model.NewRequest("http://"+addr+"/"))
			assert.True(t, resp.IsInternalError())
			assert.True(t, strings.HasPrefix(resp.String(), "system["), resp.String())
			assert.True(t, strings.HasSuffix(resp.String(), "::connect"), resp.String())
		})
	}
}

func TestReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			resp := exec(internal.New(internal.WithReadTimeout(50*time.Millisecond)), model.NewRequest(srv.URL))
			assert.True(t, resp.IsInternalError())
			assert.True(t, strings.HasSuffix(resp.String(), "::read"), resp.String())
		})
	}
}

func TestTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secure")
	}))
	defer srv.Close()
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})

	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			resp := exec(internal.New(internal.WithTrustStore(dialer.PEMTrustStore(certPEM))), model.NewRequest(srv.URL))
			require.Equal(t, 200, resp.Code, resp.String())
			assert.Equal(t, "secure", resp.String())

			resp = exec(internal.New(), model.NewRequest(srv.URL))
			assert.True(t, resp.IsInternalError())
			assert.True(t, strings.HasPrefix(resp.String(), "tls[1001]"), resp.String())
			assert.True(t, strings.HasSuffix(resp.String(), "::handshake"), resp.String())
		})
	}
}

func TestMiddlewareWrapsEveryAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		io.WriteString(w, r.Header.Get("X-Order"))
	}))
	defer srv.Close()

	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			var attempts []string
			c := internal.New()
			mw := func(tag string) internal.Middleware {
				return func(next internal.Handler) internal.Handler {
					return func(ctx context.Context, req *model.Request) *model.Response {
						mu.Lock()
						attempts = append(attempts, tag+req.GetPath())
						mu.Unlock()
						req.Header.Add("X-Order", req.Header.Get("X-Order")+tag)
						return next(ctx, req)
					}
				}
			}
			c.Use(mw("a"), mw("b"))
			resp := exec(c, model.NewRequest(srv.URL+"/start"))
			assert.Equal(t, "ab", resp.String())
			assert.Equal(t, []string{"a/start", "b/start", "a/end", "b/end"}, attempts)
		})
	}
}

func TestProgress(t *testing.T) {
	body := strings.Repeat("z", 64<<10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		io.WriteString(w, body)
	}))
	defer srv.Close()

	var fractions []float64
	var resp *model.Response
	internal.New().Execute(context.Background(), model.NewRequest(srv.URL), func(r *model.Response) { resp = r },
		func(loaded, total uint64, fraction float64) { fractions = append(fractions, fraction) })
	require.Equal(t, 200, resp.Code)
	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestExecuteInContext(t *testing.T) {
	srv := echoServer(t)
	reactor, err := session.NewReactor(2, internal.DefaultOptions().Logger)
	require.NoError(t, err)
	defer reactor.Release()

	c := internal.New()
	req := model.NewRequest(srv.URL + "/first")
	call := c.ExecuteInContext(context.Background(), reactor, req, nil, nil)
	req.SetPath("/mutated")
	<-call.Done()
	assert.Equal(t, "/first", call.Response().JSON("path").String())
	reactor.Wait()
}

func TestZeroValueClient(t *testing.T) {
	srv := echoServer(t)
	var c internal.Client
	resp := c.ExecuteBlocking(context.Background(), model.NewRequest(srv.URL+"/zero"))
	assert.Equal(t, "/zero", resp.JSON("path").String())
}

func TestZeroValueClientConcurrent(t *testing.T) {
	srv := echoServer(t)
	var c internal.Client
	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := model.NewRequest(srv.URL + "/zero")
			if i%2 == 0 {
				c.Execute(context.Background(), req, func(r *model.Response) { codes[i] = r.Code }, nil)
				return
			}
			codes[i] = c.ExecuteBlocking(context.Background(), req).Code
		}(i)
	}
	wg.Wait()
	for i, code := range codes {
		assert.Equal(t, 200, code, i)
	}
}

func TestCallDoneAfterCallbackPanic(t *testing.T) {
	srv := echoServer(t)
	reactor, err := session.NewReactor(1, internal.DefaultOptions().Logger)
	require.NoError(t, err)
	defer reactor.Release()

	call := internal.New().ExecuteInContext(context.Background(), reactor, model.NewRequest(srv.URL+"/boom"),
		func(*model.Response) { panic("callback failed") }, nil)
	select {
	case <-call.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("call never completed")
	}
	assert.Equal(t, "/boom", call.Response().JSON("path").String())
	reactor.Wait()
}

func TestRedirectLocationForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.Header().Set("Location", "/final#top")
			w.WriteHeader(http.StatusMovedPermanently)
		case "/list/items":
			if r.URL.RawQuery == "" {
				w.Header().Set("Location", "?page=2")
				w.WriteHeader(http.StatusFound)
				return
			}
			io.WriteString(w, r.URL.Path+"?"+r.URL.RawQuery)
		case "/final":
			io.WriteString(w, "final")
		}
	}))
	defer srv.Close()

	for name, exec := range executors {
		t.Run(name, func(t *testing.T) {
			resp := exec(internal.New(), model.NewRequest(srv.URL+"/start"))
			assert.Equal(t, 200, resp.Code)
			assert.Equal(t, "final", resp.String())

			resp = exec(internal.New(), model.NewRequest(srv.URL+"/list/items"))
			assert.Equal(t, 200, resp.Code)
			assert.Equal(t, "/list/items?page=2", resp.String())
		})
	}
}

func TestMetricsWired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/r" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	c := internal.New(internal.WithMetrics(m))
	for _, exec := range executors {
		exec(c, model.NewRequest(srv.URL+"/r"))
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Sessions.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Redirects))
	assert.Positive(t, testutil.ToFloat64(m.BytesRead))
}
