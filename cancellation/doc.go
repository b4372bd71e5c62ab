// Package cancellation provides cooperative cancellation tokens for
// asynchronous task chains.
//
// A Source owns the cancellation signal; the Token it hands out is the
// read-only side shared by reference among all tasks created from the same
// root. Cancellation is advisory: requesting it never pre-empts running
// work, it only flips a flag that downstream code observes at its own
// checkpoints.
//
// # Basic Usage
//
//	src := cancellation.NewSource()
//	tok := src.Token()
//
//	go func() {
//	    for !tok.Canceled() {
//	        // ... unit of work ...
//	    }
//	}()
//
//	src.Cancel() // at-most-once; later calls are no-ops
//
// Tokens expose a channel for select-based waiting:
//
//	select {
//	case <-tok.Done():
//	    return tok.Err()
//	case item := <-work:
//	    process(item)
//	}
//
// # Callbacks
//
// OnCancel registers a callback invoked exactly once when the token is
// canceled. Registering against an already-canceled token invokes the
// callback immediately on the caller's goroutine:
//
//	tok.OnCancel(func() { conn.Close() })
//
// # Linked Sources
//
// NewLinkedSource builds a source that cancels when any of its parents
// cancel, allowing one root signal to fan out across task subtrees.
package cancellation
