package session

import (
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// Reactor runs sessions on a bounded set of workers. Submit never
// blocks on a full reactor: tasks beyond the worker count are queued
// and picked up by the next worker that finishes.
type Reactor struct {
	pool *ants.Pool
	log  zerolog.Logger

	mu      sync.Mutex
	size    int
	running int
	pending []func()

	wg sync.WaitGroup
}

// NewReactor starts a reactor with size workers, runtime.NumCPU() if
// size is not positive.
func NewReactor(size int, log zerolog.Logger) (*Reactor, error) {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	r := &Reactor{size: size, log: log}
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		r.log.Error().Interface("panic", v).Msg("reactor task panicked")
	}))
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r, nil
}

func (r *Reactor) Size() int { return r.size }

// Submit schedules task.
func (r *Reactor) Submit(task func()) error {
	r.wg.Add(1)
	r.mu.Lock()
	if r.running >= r.size {
		r.pending = append(r.pending, task)
		r.mu.Unlock()
		return nil
	}
	r.running++
	r.mu.Unlock()

	if err := r.pool.Submit(func() { r.work(task) }); err != nil {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
		r.wg.Done()
		return err
	}
	return nil
}

func (r *Reactor) work(task func()) {
	for task != nil {
		r.run(task)

		r.mu.Lock()
		if len(r.pending) > 0 {
			task = r.pending[0]
			r.pending[0] = nil
			r.pending = r.pending[1:]
		} else {
			task = nil
			r.running--
		}
		r.mu.Unlock()
	}
}

func (r *Reactor) run(task func()) {
	defer r.wg.Done()
	defer func() {
		if v := recover(); v != nil {
			r.log.Error().Interface("panic", v).Msg("reactor task panicked")
		}
	}()
	task()
}

// Wait blocks until every submitted task, including the ones submitted
// while waiting, has finished.
func (r *Reactor) Wait() { r.wg.Wait() }

// Release stops the workers. The reactor cannot be used afterwards.
func (r *Reactor) Release() { r.pool.Release() }
