package manager

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/asynckit/asynckit/cancellation"
	"github.com/asynckit/asynckit/errors"
	"github.com/asynckit/asynckit/future"
	"github.com/asynckit/asynckit/logging"
)

// Fn is a managed computation. It receives the task's cancellation
// token and may be invoked multiple times when retries are enabled.
type Fn func(token *cancellation.Token) (any, error)

// record holds the mutable state backing one managed task. A record is
// published in the manager's map before its future exists; scheduled is
// closed once the future has been handed to the executor.
type record struct {
	mu        sync.Mutex
	task      Task
	fut       *future.Task[any]
	source    *cancellation.Source
	scheduled chan struct{}
}

// snapshot returns a copy of the record's task under its lock.
func (r *record) snapshot() Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.task
}

// setFuture publishes the scheduled future. Called exactly once.
func (r *record) setFuture(fut *future.Task[any]) {
	r.mu.Lock()
	r.fut = fut
	r.mu.Unlock()
	close(r.scheduled)
}

// future returns the record's future once scheduling has happened,
// bounded by ctx.
func (r *record) future(ctx context.Context) (*future.Task[any], error) {
	select {
	case <-r.scheduled:
	default:
		select {
		case <-r.scheduled:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fut, nil
}

// tryFuture returns the future, or nil if scheduling is still underway.
func (r *record) tryFuture() *future.Task[any] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fut
}

// markRunning records the start of an attempt.
func (r *record) markRunning(attempt int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task.Status = StatusRunning
	r.task.Attempts = attempt
	if r.task.StartedAt == nil {
		now := time.Now()
		r.task.StartedAt = &now
	}
}

// duration reports wall time from first attempt to settlement.
func (r *record) duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.task.StartedAt == nil || r.task.FinishedAt == nil {
		return 0
	}
	return r.task.FinishedAt.Sub(*r.task.StartedAt)
}

// finish records a terminal state. Terminal states never change once set.
func (r *record) finish(status Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.task.Status.IsTerminal() {
		return
	}
	r.task.Status = status
	now := time.Now()
	r.task.FinishedAt = &now
	if err != nil {
		r.task.Error = err.Error()
	}
}

// Manager tracks submitted tasks by ID, deduplicates submissions by
// idempotency key, and retries failed computations with exponential
// backoff. Execution runs through the futures engine, so every managed
// task is also an ordinary task that can be joined or composed.
type Manager struct {
	exec           future.Executor
	logger         *logging.Logger
	idGen          func() string
	initialBackoff time.Duration
	maxBackoff     time.Duration

	records *xsync.MapOf[string, *record]
	keys    *xsync.MapOf[string, string]

	root *cancellation.Source
	wg   sync.WaitGroup

	// closeMu excludes Close from in-flight submissions, so every
	// wg.Add happens before Close's wg.Wait.
	closeMu sync.RWMutex
	closed  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for task lifecycle events.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator overrides the task ID generator. Useful in tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.idGen = gen
		}
	}
}

// WithBackoff sets the initial and maximum retry intervals.
func WithBackoff(initial, max time.Duration) Option {
	return func(m *Manager) {
		if initial > 0 {
			m.initialBackoff = initial
		}
		if max > 0 {
			m.maxBackoff = max
		}
	}
}

// New creates a Manager that runs computations on exec. A nil exec
// falls back to one goroutine per task.
func New(exec future.Executor, opts ...Option) *Manager {
	if exec == nil {
		exec = future.Go
	}
	m := &Manager{
		exec:           exec,
		idGen:          uuid.NewString,
		initialBackoff: 100 * time.Millisecond,
		maxBackoff:     10 * time.Second,
		records:        xsync.NewMapOf[string, *record](),
		keys:           xsync.NewMapOf[string, string](),
		root:           cancellation.NewSource(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit registers fn for execution and returns the task's ID. If the
// spec carries an idempotency key already seen by this manager, the
// existing task's ID is returned and fn is not scheduled again.
func (m *Manager) Submit(spec Spec, fn Fn) (string, error) {
	if fn == nil {
		return "", ErrNilFn
	}

	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}

	maxAttempts := spec.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	id := m.idGen()
	rec := &record{
		task: Task{
			ID:             id,
			IdempotencyKey: spec.IdempotencyKey,
			Status:         StatusPending,
			MaxAttempts:    maxAttempts,
			CreatedAt:      time.Now(),
		},
		source:    cancellation.NewLinkedSource(m.root.Token()),
		scheduled: make(chan struct{}),
	}

	// The record must be resolvable before the key naming it is
	// published: a deduplicated submission returns the winner's ID and
	// may look it up immediately, while the winner can still be blocked
	// handing its computation to the executor.
	m.records.Store(id, rec)
	if spec.IdempotencyKey != "" {
		existing, loaded := m.keys.LoadOrStore(spec.IdempotencyKey, id)
		if loaded {
			m.records.Delete(id)
			return existing, nil
		}
	}

	logger := m.logger
	if logger != nil {
		logger = logger.WithTaskID(id)
		logger.TaskScheduled(id)
	}

	m.wg.Add(1)
	hooks := future.Hooks{
		OnComplete: func(future.Event) {
			rec.finish(StatusCompleted, nil)
			if logger != nil {
				logger.TaskCompleted(id, rec.duration())
			}
			m.wg.Done()
		},
		OnFault: func(e future.Event) {
			rec.finish(StatusFaulted, e.Err)
			if logger != nil {
				logger.TaskFaulted(id, rec.duration(), e.Err)
			}
			m.wg.Done()
		},
		OnCancel: func(future.Event) {
			rec.finish(StatusCanceled, cancellation.ErrCanceled)
			if logger != nil {
				logger.TaskCanceled(id)
			}
			m.wg.Done()
		},
	}

	rec.setFuture(future.Run(m.exec, rec.source.Token(),
		m.runner(id, rec, fn, maxAttempts, logger),
		future.WithHooks(hooks)))
	return id, nil
}

// runner wraps fn in the retry loop executed by the futures engine.
func (m *Manager) runner(id string, rec *record, fn Fn, maxAttempts int, logger *logging.Logger) future.Fn[any] {
	return func(token *cancellation.Token) (any, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = m.initialBackoff
		bo.MaxInterval = m.maxBackoff
		bo.MaxElapsedTime = 0
		bo.Reset()

		var lastErr error
		for attempt := 1; ; attempt++ {
			rec.markRunning(attempt)
			if logger != nil {
				logger.TaskStarted(id, attempt)
			}

			value, err := fn(token)
			if err == nil {
				return value, nil
			}
			if stderrors.Is(err, cancellation.ErrCanceled) {
				return nil, err
			}
			lastErr = err
			if !errors.IsRetryable(err) {
				return nil, errors.Wrap(err, "task failed", errors.WithTaskID(id))
			}
			if attempt >= maxAttempts {
				if maxAttempts > 1 {
					return nil, errors.MaxAttempts(id, maxAttempts, errors.WithCause(lastErr))
				}
				return nil, errors.Wrap(lastErr, "task failed", errors.WithTaskID(id))
			}

			wait := bo.NextBackOff()
			if logger != nil {
				logger.TaskRetry(id, attempt, wait)
			}
			select {
			case <-token.Done():
				return nil, cancellation.ErrCanceled
			case <-time.After(wait):
			}
		}
	}
}

// Get returns a snapshot of the task with the given ID.
func (m *Manager) Get(id string) (Task, error) {
	rec, ok := m.records.Load(id)
	if !ok {
		return Task{}, ErrNotFound
	}
	return rec.snapshot(), nil
}

// List returns snapshots of all tasks with the given status. An empty
// status returns everything. Order is unspecified.
func (m *Manager) List(status Status) []Task {
	var tasks []Task
	m.records.Range(func(_ string, rec *record) bool {
		snap := rec.snapshot()
		if status == "" || snap.Status == status {
			tasks = append(tasks, snap)
		}
		return true
	})
	return tasks
}

// Future returns the underlying task so callers can join or compose it,
// waiting if the submission is still being handed to the executor.
func (m *Manager) Future(id string) (*future.Task[any], error) {
	rec, ok := m.records.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	<-rec.scheduled
	return rec.tryFuture(), nil
}

// Result blocks until the task reaches a terminal state, honoring ctx,
// and returns its value or failure.
func (m *Manager) Result(ctx context.Context, id string) (any, error) {
	rec, ok := m.records.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	fut, err := rec.future(ctx)
	if err != nil {
		return nil, err
	}
	return fut.Result(ctx)
}

// Cancel requests cooperative cancellation of the task. A task that has
// not started is canceled immediately; a running computation observes
// the request through its token. If the submission is still being
// scheduled, the pre-canceled token stops it before the computation
// ever runs.
func (m *Manager) Cancel(id string) error {
	rec, ok := m.records.Load(id)
	if !ok {
		return ErrNotFound
	}
	if fut := rec.tryFuture(); fut != nil {
		fut.Cancel()
	}
	rec.source.Cancel()
	return nil
}

// CancelAll requests cancellation of every tracked task.
func (m *Manager) CancelAll() {
	m.records.Range(func(_ string, rec *record) bool {
		if fut := rec.tryFuture(); fut != nil {
			fut.Cancel()
		}
		return true
	})
	m.root.Cancel()
}

// Delete removes a terminal task's record. Running tasks must be
// canceled and joined first.
func (m *Manager) Delete(id string) error {
	rec, ok := m.records.Load(id)
	if !ok {
		return ErrNotFound
	}
	snap := rec.snapshot()
	if !snap.Status.IsTerminal() {
		return ErrNotTerminal
	}
	m.records.Delete(id)
	if snap.IdempotencyKey != "" {
		m.keys.Delete(snap.IdempotencyKey)
	}
	return nil
}

// Close stops accepting submissions and waits for all outstanding
// tasks to settle, bounded by ctx. A submission that already passed the
// closed check finishes scheduling before Close starts waiting. Tasks
// are not canceled; call CancelAll first for a forced shutdown.
func (m *Manager) Close(ctx context.Context) error {
	m.closeMu.Lock()
	m.closed = true
	m.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Timeout("manager close", errors.WithCause(ctx.Err()))
	}
}
