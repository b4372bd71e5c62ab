package future

import (
	"github.com/asynckit/asynckit/cancellation"
)

// Then returns a task that becomes runnable once the antecedent reaches a
// terminal state. If the antecedent completed, fn receives its value and
// runs on the goroutine that completed the antecedent. If the antecedent
// faulted or was canceled, the outcome propagates to the new task and fn is
// never invoked.
//
// Continuations registered against the same antecedent begin in
// registration order.
func Then[T, U any](t *Task[T], fn func(T) (U, error), opts ...Option) *Task[U] {
	if t == nil {
		panic(ErrNilTask)
	}
	if fn == nil {
		panic(ErrNilFunc)
	}

	child := newTask[U](t.token, opts)
	child.toScheduled()

	t.addContinuation(func() {
		state, value, fault := t.snapshot()
		var zero U
		switch state {
		case StateCompleted:
			child.execute(func(*cancellation.Token) (U, error) {
				return fn(value)
			})
		case StateFaulted:
			child.settle(StateFaulted, zero, fault)
		case StateCanceled:
			child.settle(StateCanceled, zero, cancellation.ErrCanceled)
		}
	})
	return child
}

// ThenAction chains a continuation that produces no value.
func ThenAction[T any](t *Task[T], fn func(T) error, opts ...Option) *Task[Unit] {
	if fn == nil {
		panic(ErrNilFunc)
	}
	return Then(t, func(value T) (Unit, error) {
		return Unit{}, fn(value)
	}, opts...)
}

// Catch returns a task that absorbs the antecedent's fault. If the
// antecedent faulted, handler receives the fault and may convert it back
// into a normal result or replace it. Completion and cancellation pass
// through untouched; a handler never observes a deliberate cancel.
func Catch[T any](t *Task[T], handler func(error) (T, error), opts ...Option) *Task[T] {
	if t == nil {
		panic(ErrNilTask)
	}
	if handler == nil {
		panic(ErrNilFunc)
	}

	child := newTask[T](t.token, opts)
	child.toScheduled()

	t.addContinuation(func() {
		state, value, fault := t.snapshot()
		var zero T
		switch state {
		case StateCompleted:
			child.settle(StateCompleted, value, nil)
		case StateFaulted:
			child.execute(func(*cancellation.Token) (T, error) {
				return handler(fault)
			})
		case StateCanceled:
			child.settle(StateCanceled, zero, cancellation.ErrCanceled)
		}
	})
	return child
}
