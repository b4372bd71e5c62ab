package errors

// Category classifies errors by their nature in the task runtime.
type Category string

// Categories define how errors should be handled.
const (
	// CategoryFault indicates an error raised inside user-supplied work.
	// Faults are captured at the async boundary and replayed to whoever
	// joins or chains without a handler.
	CategoryFault Category = "fault"

	// CategoryCancellation marks cooperative cancellation. It is a
	// deliberate terminal outcome, not a defect, and must never be
	// conflated with a fault.
	CategoryCancellation Category = "cancellation"

	// CategoryMisuse indicates a caller bug: operating on a nil task
	// handle, submitting to a closed pool, deleting a live task.
	// Never retryable.
	CategoryMisuse Category = "misuse"

	// CategoryResource indicates exhaustion of runtime resources.
	// Examples: full submission queue, drain timeout, attempt budget.
	CategoryResource Category = "resource"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c Category) IsRetryable() bool {
	switch c {
	case CategoryFault, CategoryResource:
		return true
	default:
		return false
	}
}

// Code identifies specific error types within categories.
type Code string

// Error codes for task runtime failures.
const (
	// Fault errors
	CodeFaulted Code = "FAULTED" // User-supplied work returned an error
	CodePanic   Code = "PANIC"   // Recovered panic inside user-supplied work
	CodeTimeout Code = "TIMEOUT" // Join or drain deadline exceeded

	// Cancellation
	CodeCanceled Code = "CANCELED" // Task canceled cooperatively

	// Misuse errors
	CodeNilTask         Code = "NIL_TASK"         // Operation on a nil task handle
	CodeNotFound        Code = "NOT_FOUND"        // Task ID does not exist
	CodeNotTerminal     Code = "NOT_TERMINAL"     // Operation requires a terminal task
	CodeAlreadyTerminal Code = "ALREADY_TERMINAL" // Duplicate terminal transition attempt
	CodeInvalidConfig   Code = "INVALID_CONFIG"   // Malformed runtime configuration

	// Resource errors
	CodeQueueFull     Code = "QUEUE_FULL"     // Submission queue at capacity
	CodePoolClosed    Code = "POOL_CLOSED"    // Submit after pool shutdown
	CodeManagerClosed Code = "MANAGER_CLOSED" // Operation after manager close
	CodeMaxAttempts   Code = "MAX_ATTEMPTS"   // Retry budget exhausted
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// DefaultCategory returns the default category for a code.
func (c Code) DefaultCategory() Category {
	switch c {
	case CodeFaulted, CodePanic, CodeTimeout:
		return CategoryFault

	case CodeCanceled:
		return CategoryCancellation

	case CodeNilTask, CodeNotFound, CodeNotTerminal, CodeAlreadyTerminal,
		CodeInvalidConfig:
		return CategoryMisuse

	case CodeQueueFull, CodePoolClosed, CodeManagerClosed, CodeMaxAttempts:
		return CategoryResource

	default:
		return CategoryFault
	}
}

// DefaultRetryable returns whether this code is typically retryable.
func (c Code) DefaultRetryable() bool {
	switch c {
	// Shutdown and exhausted budgets do not recover on retry even though
	// they are resource errors.
	case CodePoolClosed, CodeManagerClosed, CodeMaxAttempts, CodePanic:
		return false
	}
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for codes.
var codeDescriptions = map[Code]string{
	CodeFaulted:         "task computation faulted",
	CodePanic:           "recovered panic in task computation",
	CodeTimeout:         "deadline exceeded",
	CodeCanceled:        "task canceled",
	CodeNilTask:         "operation on nil task handle",
	CodeNotFound:        "task not found",
	CodeNotTerminal:     "task has not reached a terminal state",
	CodeAlreadyTerminal: "task already in a terminal state",
	CodeInvalidConfig:   "invalid configuration",
	CodeQueueFull:       "submission queue full",
	CodePoolClosed:      "pool is closed",
	CodeManagerClosed:   "manager is closed",
	CodeMaxAttempts:     "maximum attempts reached",
}

// Description returns a human-readable description for the code.
func (c Code) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
