// Package future provides a task/continuation engine: a handle to deferred,
// possibly asynchronous computation with an eventual result or fault, and
// the ability to attach follow-up work without blocking the calling thread.
//
// # Task Lifecycle
//
// Tasks move through the following states:
//
//	Created → Scheduled → Running → {Completed | Faulted | Canceled}
//
// The three terminal states are absorbing: they are set at most once and
// duplicate transition attempts are no-ops. Cancellation is a deliberate
// outcome, kept distinct from faults so callers never mistake a cancel for
// a defect.
//
// # Basic Usage
//
//	src := cancellation.NewSource()
//	t := future.Run(nil, src.Token(), func(tok *cancellation.Token) (int, error) {
//	    return computePrice(tok)
//	})
//
//	doubled := future.Then(t, func(price int) (int, error) {
//	    return price * 2, nil
//	})
//
//	value, err := doubled.Result(ctx)
//
// The first argument selects the execution context; nil means one goroutine
// per task, and pool.Pool provides a fixed-size alternative.
//
// # Fault Semantics
//
// An error (or panic) raised inside the computation is captured on the
// task, never propagated across the asynchronous boundary. It is replayed
// when a caller joins via Result, or propagates through continuation chains
// until a Catch absorbs it:
//
//	recovered := future.Catch(t, func(err error) (int, error) {
//	    return fallbackPrice, nil
//	})
//
// # Cancellation
//
// Cancellation is cooperative. Canceling a task that has not started runs
// nothing; a running computation keeps executing until it polls its token
// and returns cancellation.ErrCanceled. Cancellation propagates through
// continuation chains the same way faults do, but Catch does not absorb it.
//
// # Composition
//
// WhenAll joins a set of tasks into one, aggregating faults; WhenAny
// mirrors the first task to finish.
//
// # Continuation Ordering
//
// Continuations registered against the same antecedent begin in
// registration order. There is no ordering guarantee between continuations
// of unrelated tasks. Continuations are invoked outside the task lock, so
// they may freely inspect the task that triggered them.
package future
