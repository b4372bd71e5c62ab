// Package pool provides a fixed-size worker pool implementing the
// future.Executor contract.
//
// The pool is the supplied execution context for task scheduling: the
// engine submits units of work, the pool runs them on N workers over a
// bounded queue. Submit blocks when the queue is full, giving natural
// backpressure instead of unbounded buffering.
//
// # Basic Usage
//
//	p := pool.New(pool.Config{Workers: 8, QueueDepth: 64})
//	defer p.Stop(context.Background())
//
//	t := future.Run(p, tok, func(*cancellation.Token) (int, error) {
//	    return 42, nil
//	})
//
// # Graceful Drain
//
// Stop closes intake and waits for queued and in-flight work:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := p.Stop(ctx); err != nil {
//	    // drain deadline exceeded; workers finish in the background
//	}
//
// Submissions after Stop are dropped with a logged warning. Counters for
// submitted, completed, dropped, and peak-active work are available via
// Stats for monitoring.
package pool
