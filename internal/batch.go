package internal

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/frankli0324/go-httb/internal/model"
	"github.com/frankli0324/go-httb/internal/session"
)

// Batch executes many requests with bounded concurrency. Requests are
// consumed by a run.
type Batch struct {
	client      *Client
	concurrency int
	limiter     *rate.Limiter
	requests    []*model.Request
}

// NewBatch creates a batch running at most concurrency requests at a
// time, runtime.NumCPU() if concurrency is not positive.
func NewBatch(client *Client, concurrency int) *Batch {
	if client == nil {
		client = New()
	}
	return &Batch{client: client, concurrency: concurrency}
}

func (b *Batch) Add(reqs ...*model.Request) *Batch {
	for _, r := range reqs {
		b.requests = append(b.requests, r.Clone())
	}
	return b
}

// SetRateLimit paces request starts to rps per second, 0 removes the
// limit.
func (b *Batch) SetRateLimit(rps float64) *Batch {
	if rps <= 0 {
		b.limiter = nil
		return b
	}
	b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return b
}

func (b *Batch) Len() int { return len(b.requests) }

// RunEach calls onResponse once per request, in completion order. Calls
// are serialised. It returns after every request completed.
func (b *Batch) RunEach(ctx context.Context, onResponse ResponseFunc) error {
	var mu sync.Mutex
	return b.run(ctx, func(resp *model.Response) {
		mu.Lock()
		defer mu.Unlock()
		if onResponse != nil {
			onResponse(resp)
		}
	})
}

// RunAll collects every response and delivers them at once after the
// last request completed.
func (b *Batch) RunAll(ctx context.Context, onAll func([]*model.Response)) error {
	var mu sync.Mutex
	out := make([]*model.Response, 0, len(b.requests))
	err := b.run(ctx, func(resp *model.Response) {
		mu.Lock()
		defer mu.Unlock()
		out = append(out, resp)
	})
	if err != nil {
		return err
	}
	onAll(out)
	return nil
}

func (b *Batch) run(ctx context.Context, onResponse ResponseFunc) error {
	reactor, err := session.NewReactor(b.concurrency, b.client.options().Logger)
	if err != nil {
		return err
	}
	defer reactor.Release()

	reqs := b.requests
	b.requests = nil
	for len(reqs) > 0 {
		req := reqs[len(reqs)-1]
		reqs = reqs[:len(reqs)-1]
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				// still one response per request
				onResponse(errorResponse(err))
				continue
			}
		}
		b.client.ExecuteInContext(ctx, reactor, req, onResponse, nil)
	}
	reactor.Wait()
	return nil
}
