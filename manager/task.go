package manager

import (
	"errors"
	"time"
)

// Common errors.
var (
	// ErrNotFound indicates the requested task does not exist.
	ErrNotFound = errors.New("manager: task not found")

	// ErrClosed indicates the manager has been closed.
	ErrClosed = errors.New("manager: closed")

	// ErrNotTerminal indicates the task must reach a terminal state first.
	ErrNotTerminal = errors.New("manager: task not in a terminal state")

	// ErrNilFn indicates a task was submitted without a computation.
	ErrNilFn = errors.New("manager: task function must not be nil")
)

// Status represents the tracked state of a managed task.
type Status string

const (
	// StatusPending indicates the task is scheduled but not yet running.
	StatusPending Status = "pending"

	// StatusRunning indicates the task's computation is executing.
	StatusRunning Status = "running"

	// StatusCompleted indicates the task finished with a value.
	StatusCompleted Status = "completed"

	// StatusFaulted indicates the task exhausted its attempts or hit a
	// non-retryable failure.
	StatusFaulted Status = "faulted"

	// StatusCanceled indicates the task was canceled cooperatively.
	StatusCanceled Status = "canceled"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFaulted || s == StatusCanceled
}

// Task is a point-in-time snapshot of a managed task's record.
type Task struct {
	// ID is the unique identifier, generated on submission.
	ID string

	// IdempotencyKey deduplicates submissions: tasks sharing a key map
	// to the same record.
	IdempotencyKey string

	// Status is the tracked state at snapshot time.
	Status Status

	// Attempts is the number of times the computation has started.
	Attempts int

	// MaxAttempts is the attempt budget. Zero means a single attempt.
	MaxAttempts int

	// CreatedAt is when the task was submitted.
	CreatedAt time.Time

	// StartedAt is when the first attempt began.
	StartedAt *time.Time

	// FinishedAt is when the task reached a terminal state.
	FinishedAt *time.Time

	// Error is the final failure, if the task faulted.
	Error string
}

// Spec describes a task submission.
type Spec struct {
	// IdempotencyKey deduplicates submissions. Optional.
	IdempotencyKey string

	// MaxAttempts is the attempt budget. Zero or one means no retries.
	MaxAttempts int
}
