package future

// Executor submits work for execution. The engine consumes this capability
// from an external scheduler and never manages threads itself; any type
// with a compatible Submit can serve, including pool.Pool.
type Executor interface {
	Submit(func())
}

// goroutineExecutor runs every submitted computation on its own goroutine.
type goroutineExecutor struct{}

func (goroutineExecutor) Submit(fn func()) {
	go fn()
}

// Go is the default executor: one goroutine per task.
var Go Executor = goroutineExecutor{}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(func())

// Submit implements Executor.
func (f ExecutorFunc) Submit(fn func()) {
	f(fn)
}

// Synchronous is an executor that runs submissions inline on the calling
// goroutine. Useful in tests and for deterministic pipelines.
var Synchronous Executor = ExecutorFunc(func(fn func()) { fn() })
