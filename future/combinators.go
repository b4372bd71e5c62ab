package future

import (
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/asynckit/asynckit/cancellation"
)

// WhenAll returns a task that reaches a terminal state once every input
// task has. On success the values appear in input order. Faults from all
// faulted inputs are aggregated into a single multierror; if no input
// faulted but at least one was canceled, the aggregate is canceled.
// WhenAll of no tasks completes immediately with an empty slice.
func WhenAll[T any](tasks ...*Task[T]) *Task[[]T] {
	for _, t := range tasks {
		if t == nil {
			panic(ErrNilTask)
		}
	}

	agg := newTask[[]T](cancellation.None(), nil)
	agg.toScheduled()

	if len(tasks) == 0 {
		agg.settle(StateCompleted, []T{}, nil)
		return agg
	}

	var remaining atomic.Int32
	remaining.Store(int32(len(tasks)))

	for _, t := range tasks {
		t.addContinuation(func() {
			if remaining.Add(-1) == 0 {
				settleWhenAll(agg, tasks)
			}
		})
	}
	return agg
}

func settleWhenAll[T any](agg *Task[[]T], tasks []*Task[T]) {
	values := make([]T, len(tasks))
	var faults *multierror.Error
	canceled := false

	for i, t := range tasks {
		state, value, fault := t.snapshot()
		switch state {
		case StateCompleted:
			values[i] = value
		case StateFaulted:
			faults = multierror.Append(faults, fault)
		case StateCanceled:
			canceled = true
		}
	}

	switch {
	case faults != nil:
		agg.settle(StateFaulted, nil, faults.ErrorOrNil())
	case canceled:
		agg.settle(StateCanceled, nil, cancellation.ErrCanceled)
	default:
		agg.settle(StateCompleted, values, nil)
	}
}

// AnyResult carries the outcome of WhenAny: the index of the first task to
// reach a terminal state and, if it completed, its value.
type AnyResult[T any] struct {
	Index int
	Value T
}

// WhenAny returns a task that mirrors the first input task to reach a
// terminal state: its value on completion, its fault, or cancellation.
// Later terminals have no further observable effect. Calling WhenAny with
// no tasks is a caller bug.
func WhenAny[T any](tasks ...*Task[T]) *Task[AnyResult[T]] {
	if len(tasks) == 0 {
		panic(ErrNoTasks)
	}
	for _, t := range tasks {
		if t == nil {
			panic(ErrNilTask)
		}
	}

	agg := newTask[AnyResult[T]](cancellation.None(), nil)
	agg.toScheduled()

	for i, t := range tasks {
		index := i
		task := t
		t.addContinuation(func() {
			state, value, fault := task.snapshot()
			var zero AnyResult[T]
			switch state {
			case StateCompleted:
				agg.settle(StateCompleted, AnyResult[T]{Index: index, Value: value}, nil)
			case StateFaulted:
				agg.settle(StateFaulted, zero, fault)
			case StateCanceled:
				agg.settle(StateCanceled, zero, cancellation.ErrCanceled)
			}
		})
	}
	return agg
}
