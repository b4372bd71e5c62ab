package future

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asynckit/asynckit/cancellation"
)

// Common errors. Operating on a nil task handle or supplying a nil
// computation is a caller bug and panics rather than failing silently.
var (
	// ErrNilTask indicates an operation on a nil task handle.
	ErrNilTask = errors.New("future: operation on nil task handle")

	// ErrNilFunc indicates a task was created without a computation.
	ErrNilFunc = errors.New("future: task function must not be nil")

	// ErrNoTasks indicates WhenAny was called with no tasks.
	ErrNoTasks = errors.New("future: at least one task required")
)

// PanicError wraps a panic recovered from a task computation. The panic is
// captured as a fault instead of crossing the asynchronous boundary.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("future: panic in task: %v", e.Value)
}

// Unit is the result type for computations that produce no value, so that
// void work shares the same generic machinery as value-producing work.
type Unit struct{}

// Fn is a value-producing computation. It receives the task's cancellation
// token and should return cancellation.ErrCanceled (directly or wrapped)
// when it stops early in response to the token.
type Fn[T any] func(*cancellation.Token) (T, error)

// Task is a handle to a deferred, possibly asynchronous computation with an
// eventual result or fault. Tasks are shared between their creator and any
// continuation chains attached to them; all methods are safe for concurrent
// use.
type Task[T any] struct {
	token *cancellation.Token
	hooks Hooks

	mu    sync.Mutex
	state State
	value T
	fault error
	conts []func()
	done  chan struct{}
}

// Option configures task creation.
type Option func(*taskConfig)

type taskConfig struct {
	hooks Hooks
}

// WithHooks attaches lifecycle hooks to the task being created.
func WithHooks(h Hooks) Option {
	return func(cfg *taskConfig) {
		cfg.hooks = cfg.hooks.Merge(h)
	}
}

func newTask[T any](token *cancellation.Token, opts []Option) *Task[T] {
	cfg := taskConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Task[T]{
		token: token,
		hooks: cfg.hooks,
		state: StateCreated,
		done:  make(chan struct{}),
	}
}

// Run wraps a value-producing computation, schedules it on the executor,
// and returns a task handle immediately. A nil executor uses Go. If the
// token is already canceled the task transitions directly to canceled
// without invoking the computation.
func Run[T any](exec Executor, token *cancellation.Token, fn Fn[T], opts ...Option) *Task[T] {
	if fn == nil {
		panic(ErrNilFunc)
	}
	if exec == nil {
		exec = Go
	}

	t := newTask[T](token, opts)
	t.toScheduled()

	if token.Canceled() {
		var zero T
		t.settle(StateCanceled, zero, cancellation.ErrCanceled)
		return t
	}

	exec.Submit(func() {
		t.execute(fn)
	})
	return t
}

// RunAction wraps a computation with no result.
func RunAction(exec Executor, token *cancellation.Token, fn func(*cancellation.Token) error, opts ...Option) *Task[Unit] {
	if fn == nil {
		panic(ErrNilFunc)
	}
	return Run(exec, token, func(tok *cancellation.Token) (Unit, error) {
		return Unit{}, fn(tok)
	}, opts...)
}

// Completed constructs a task already completed with the given value, for
// composing uniform APIs around already-known results.
func Completed[T any](value T, opts ...Option) *Task[T] {
	t := newTask[T](cancellation.None(), opts)
	t.settle(StateCompleted, value, nil)
	return t
}

// Faulted constructs a task already faulted with the given error.
func Faulted[T any](fault error, opts ...Option) *Task[T] {
	t := newTask[T](cancellation.None(), opts)
	var zero T
	t.settle(StateFaulted, zero, fault)
	return t
}

// Canceled constructs a task already in the canceled state.
func Canceled[T any](opts ...Option) *Task[T] {
	t := newTask[T](cancellation.None(), opts)
	var zero T
	t.settle(StateCanceled, zero, cancellation.ErrCanceled)
	return t
}

// State returns the task's current lifecycle state.
func (t *Task[T]) State() State {
	if t == nil {
		panic(ErrNilTask)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsCompleted reports whether the task completed with a value.
func (t *Task[T]) IsCompleted() bool { return t.State() == StateCompleted }

// IsFaulted reports whether the task captured a fault.
func (t *Task[T]) IsFaulted() bool { return t.State() == StateFaulted }

// IsCanceled reports whether the task was canceled.
func (t *Task[T]) IsCanceled() bool { return t.State() == StateCanceled }

// Done returns a channel closed when the task reaches a terminal state.
func (t *Task[T]) Done() <-chan struct{} {
	if t == nil {
		panic(ErrNilTask)
	}
	return t.done
}

// Token returns the cancellation token the task observes.
func (t *Task[T]) Token() *cancellation.Token {
	if t == nil {
		panic(ErrNilTask)
	}
	return t.token
}

// Fault returns the captured fault if the task faulted, nil otherwise.
func (t *Task[T]) Fault() error {
	if t == nil {
		panic(ErrNilTask)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateFaulted {
		return t.fault
	}
	return nil
}

// Cancel transitions a task that has not started running directly to
// canceled, without invoking its computation. A running task is not
// pre-empted: it keeps executing until it polls its token. Returns true if
// this call performed the transition.
func (t *Task[T]) Cancel() bool {
	if t == nil {
		panic(ErrNilTask)
	}
	t.mu.Lock()
	if t.state != StateCreated && t.state != StateScheduled {
		t.mu.Unlock()
		return false
	}
	var zero T
	conts := t.transitionLocked(StateCanceled, zero, cancellation.ErrCanceled)
	t.mu.Unlock()

	t.fire(StateCanceled, zero, cancellation.ErrCanceled, conts)
	return true
}

// Result blocks until the task reaches a terminal state and returns the
// stored value, the captured fault, or cancellation.ErrCanceled. On an
// already-terminal task it returns immediately. The context bounds the
// wait only; it does not cancel the task.
func (t *Task[T]) Result(ctx context.Context) (T, error) {
	if t == nil {
		panic(ErrNilTask)
	}
	var zero T

	select {
	case <-t.done:
	default:
		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case <-t.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StateCompleted:
		return t.value, nil
	case StateFaulted:
		return zero, t.fault
	default:
		return zero, cancellation.ErrCanceled
	}
}

// Wait blocks until the task reaches a terminal state and returns its
// fault or cancellation error, discarding the value.
func (t *Task[T]) Wait(ctx context.Context) error {
	_, err := t.Result(ctx)
	return err
}

// toScheduled moves Created to Scheduled and emits OnSchedule. No-op for
// any other state.
func (t *Task[T]) toScheduled() {
	t.mu.Lock()
	if t.state != StateCreated {
		t.mu.Unlock()
		return
	}
	t.state = StateScheduled
	t.mu.Unlock()
	emit(t.hooks.OnSchedule, Event{State: StateScheduled})
}

// execute runs the computation with panic capture and settles the task.
// Called from the executor's worker.
func (t *Task[T]) execute(fn Fn[T]) {
	var zero T

	t.mu.Lock()
	if t.state != StateScheduled {
		// Canceled between submission and pickup.
		t.mu.Unlock()
		return
	}
	if t.token.Canceled() {
		conts := t.transitionLocked(StateCanceled, zero, cancellation.ErrCanceled)
		t.mu.Unlock()
		t.fire(StateCanceled, zero, cancellation.ErrCanceled, conts)
		return
	}
	t.state = StateRunning
	t.mu.Unlock()
	emit(t.hooks.OnStart, Event{State: StateRunning})

	value, err := runProtected(t.token, fn)
	switch {
	case err == nil:
		t.settle(StateCompleted, value, nil)
	case errors.Is(err, cancellation.ErrCanceled):
		t.settle(StateCanceled, zero, cancellation.ErrCanceled)
	default:
		t.settle(StateFaulted, zero, err)
	}
}

// runProtected invokes fn, converting a panic into a captured fault.
func runProtected[T any](tok *cancellation.Token, fn Fn[T]) (value T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			var zero T
			value = zero
			err = PanicError{Value: recovered}
		}
	}()
	return fn(tok)
}

// settle performs the terminal transition. Returns false if the task was
// already terminal, in which case nothing is observable.
func (t *Task[T]) settle(state State, value T, fault error) bool {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return false
	}
	conts := t.transitionLocked(state, value, fault)
	t.mu.Unlock()

	t.fire(state, value, fault, conts)
	return true
}

// transitionLocked records the terminal state and detaches the continuation
// list. Caller must hold t.mu and have verified the task is not terminal.
func (t *Task[T]) transitionLocked(state State, value T, fault error) []func() {
	t.state = state
	t.value = value
	t.fault = fault
	conts := t.conts
	t.conts = nil
	close(t.done)
	return conts
}

// fire emits the terminal hook and invokes detached continuations in
// registration order, outside the task lock so a continuation may touch
// the task itself.
func (t *Task[T]) fire(state State, value T, fault error, conts []func()) {
	switch state {
	case StateCompleted:
		emit(t.hooks.OnComplete, Event{State: state, Value: value})
	case StateFaulted:
		emit(t.hooks.OnFault, Event{State: state, Err: fault})
	case StateCanceled:
		emit(t.hooks.OnCancel, Event{State: state, Err: fault})
	}
	for _, fn := range conts {
		fn()
	}
}

// addContinuation registers fn to run once the task reaches a terminal
// state. If the task is already terminal, fn runs immediately on the
// calling goroutine. Each registered continuation runs exactly once.
func (t *Task[T]) addContinuation(fn func()) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		fn()
		return
	}
	t.conts = append(t.conts, fn)
	t.mu.Unlock()
}

// snapshot returns the task's terminal outcome. Only meaningful once the
// task is terminal.
func (t *Task[T]) snapshot() (State, T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.value, t.fault
}
