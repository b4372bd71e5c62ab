package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asynckit/asynckit/errors"
	"github.com/asynckit/asynckit/logging"
)

// Config controls pool sizing. Zero values fall back to defaults.
type Config struct {
	// Workers is the number of goroutines consuming the queue.
	// Defaults to GOMAXPROCS.
	Workers int

	// QueueDepth is the submission buffer size. Submit blocks once the
	// buffer is full, providing backpressure. Defaults to Workers*2.
	QueueDepth int

	// Logger receives pool lifecycle events. Optional.
	Logger *logging.Logger
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
		if c.Workers <= 0 {
			c.Workers = 1
		}
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = c.Workers * 2
	}
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers    int
	QueueDepth int
	Submitted  int64
	Completed  int64
	Dropped    int64
	Active     int64
	PeakActive int64
}

// Pool executes submitted work on a fixed set of workers. It satisfies
// future.Executor, so tasks can be scheduled onto it directly.
type Pool struct {
	workers    int
	queueDepth int
	logger     *logging.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan func()
	wg     sync.WaitGroup

	stopOnce sync.Once
	stopErr  error

	submitted atomic.Int64
	completed atomic.Int64
	dropped   atomic.Int64
	active    atomic.Int64
	peak      atomic.Int64
}

// New creates a pool and starts its workers.
func New(cfg Config) *Pool {
	cfg.applyDefaults()

	p := &Pool{
		workers:    cfg.Workers,
		queueDepth: cfg.QueueDepth,
		logger:     cfg.Logger,
		queue:      make(chan func(), cfg.QueueDepth),
	}
	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	if p.logger != nil {
		p.logger.PoolStarted(cfg.Workers, cfg.QueueDepth)
	}
	return p
}

// Submit enqueues fn for execution. It blocks while the queue is full.
// After Stop, submissions are dropped with a logged warning rather than
// executed; callers that need stronger guarantees should stop submitting
// before draining.
func (p *Pool) Submit(fn func()) {
	if fn == nil {
		return
	}
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.dropped.Add(1)
		if p.logger != nil {
			p.logger.SubmitDropped()
		}
		return
	}
	p.submitted.Add(1)
	// Send under the read lock so Stop cannot close the queue while a
	// submission is in flight.
	p.queue <- fn
	p.mu.RUnlock()
}

// Stop stops intake and waits for in-flight and queued work to finish.
// The context bounds the drain; on expiry the pool reports a timeout but
// workers continue finishing in the background. Subsequent calls return
// the first call's result.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		start := time.Now()

		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(drained)
		}()

		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case <-drained:
		case <-ctx.Done():
			p.stopErr = errors.Timeout("pool drain deadline exceeded",
				errors.WithCause(ctx.Err()),
				errors.WithMetadata("workers", fmt.Sprintf("%d", p.workers)),
			)
		}
		if p.logger != nil {
			p.logger.PoolDrained(time.Since(start), p.stopErr)
		}
	})
	return p.stopErr
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:    p.workers,
		QueueDepth: p.queueDepth,
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Dropped:    p.dropped.Load(),
		Active:     p.active.Load(),
		PeakActive: p.peak.Load(),
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for fn := range p.queue {
		current := p.active.Add(1)
		p.updatePeak(current)
		p.runOne(fn)
		p.active.Add(-1)
		p.completed.Add(1)
	}
}

// runOne isolates a recover so a panicking submission cannot kill the
// worker. Task-level work arrives already protected by the future engine;
// this guards raw submissions.
func (p *Pool) runOne(fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil && p.logger != nil {
			p.logger.Error("panic_in_submitted_work", map[string]interface{}{
				"panic": fmt.Sprintf("%v", recovered),
			})
		}
	}()
	fn()
}

func (p *Pool) updatePeak(current int64) {
	for {
		peak := p.peak.Load()
		if current <= peak {
			return
		}
		if p.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}
