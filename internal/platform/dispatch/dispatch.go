package dispatch

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/semaphore"
)

const defaultIOConcurrency = 64

// Pool bounds how many callers may run work of one class at a time.
type Pool struct {
	name string
	sem  *semaphore.Weighted
	size int64
}

// NewPool constructs a pool admitting at most size concurrent calls.
func NewPool(name string, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{name: name, sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Name returns the pool label used in logs and errors.
func (p *Pool) Name() string {
	return p.name
}

// Size returns the configured concurrency limit.
func (p *Pool) Size() int {
	return int(p.size)
}

// Do runs fn once a slot is free. It returns early with the context error when ctx ends before
// a slot becomes available.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p == nil {
		return fn(ctx)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return eris.Wrapf(err, "waiting for %s slot", p.name)
	}
	defer p.sem.Release(1)

	return fn(ctx)
}

// Options configures the dispatcher pool sizes. Zero values select defaults.
type Options struct {
	IOConcurrency          int
	ComputationConcurrency int
}

// Dispatchers groups the blocking I/O pool and the CPU-bound pool.
type Dispatchers struct {
	IO          *Pool
	Computation *Pool
}

// New constructs dispatchers from the supplied options.
func New(opts Options) Dispatchers {
	ioSize := opts.IOConcurrency
	if ioSize <= 0 {
		ioSize = defaultIOConcurrency
	}

	computeSize := opts.ComputationConcurrency
	if computeSize <= 0 {
		computeSize = runtime.NumCPU()
	}

	return Dispatchers{
		IO:          NewPool("io", ioSize),
		Computation: NewPool("computation", computeSize),
	}
}
