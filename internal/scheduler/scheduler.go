// Package scheduler runs background jobs on a bounded worker pool with
// per-key exclusivity, so the same campaign never has two overlapping runs.
package scheduler

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Enqueue failure modes.
var (
	// ErrJobActive means a job with the same key is queued or running.
	ErrJobActive = eris.New("scheduler: job already active for key")
	// ErrQueueFull means the queue has no room for another job.
	ErrQueueFull = eris.New("scheduler: queue full")
	// ErrClosed means the pool is shutting down.
	ErrClosed = eris.New("scheduler: pool closed")
)

// Job is one unit of background work. Jobs with equal keys are mutually
// exclusive; the key is released when Run returns.
type Job struct {
	Key  string
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a fixed-size worker pool over a bounded queue.
type Pool struct {
	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]bool
	closed bool
}

// NewPool starts workers goroutines consuming a queue of queueSize.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan Job, queueSize),
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]bool),
		logger: zap.L().With(zap.String("component", "scheduler")),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Enqueue adds a job to the queue. It never blocks: a full queue, a
// duplicate key, or a closed pool fails immediately.
func (p *Pool) Enqueue(job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if job.Key != "" && p.active[job.Key] {
		p.mu.Unlock()
		return ErrJobActive
	}
	if job.Key != "" {
		p.active[job.Key] = true
	}
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		return nil
	default:
		p.release(job.Key)
		return ErrQueueFull
	}
}

// Active reports whether a job with the key is queued or running.
func (p *Pool) Active(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[key]
}

// Close stops accepting jobs, lets queued and running jobs finish, and
// returns when all workers have exited.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	defer p.release(job.Key)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r))
		}
	}()

	if err := job.Run(p.ctx); err != nil {
		p.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.String("key", job.Key),
			zap.Error(err))
		return
	}
	p.logger.Info("job complete", zap.String("job", job.Name), zap.String("key", job.Key))
}

func (p *Pool) release(key string) {
	if key == "" {
		return
	}
	p.mu.Lock()
	delete(p.active, key)
	p.mu.Unlock()
}
