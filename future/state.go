package future

// State represents the lifecycle phase of a task.
type State int32

const (
	// StateCreated indicates the task exists but has not been scheduled.
	StateCreated State = iota

	// StateScheduled indicates the task has been handed to an executor
	// and is waiting to run.
	StateScheduled

	// StateRunning indicates the task's computation is executing.
	StateRunning

	// StateCompleted indicates the computation finished with a value.
	StateCompleted

	// StateFaulted indicates the computation raised an error or panicked.
	StateFaulted

	// StateCanceled indicates the task was canceled before or during
	// execution. Distinct from a fault.
	StateCanceled
)

// Terminal reports whether the state is absorbing. Terminal states are set
// at most once; duplicate transition attempts are no-ops.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFaulted, StateCanceled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}
