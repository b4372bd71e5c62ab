package future

// Event describes a task lifecycle transition for hook callbacks. Value is
// only set for completions, Err only for faults and cancellations.
type Event struct {
	State State
	Value any
	Err   error
}

// HookFunc is invoked for lifecycle notifications. Hooks are observational:
// scheduling never depends on them, and a nil hook costs nothing.
type HookFunc func(Event)

// Hooks aggregates optional lifecycle callbacks for a single task.
type Hooks struct {
	OnSchedule HookFunc
	OnStart    HookFunc
	OnComplete HookFunc
	OnFault    HookFunc
	OnCancel   HookFunc
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnSchedule: chainHooks(h.OnSchedule, other.OnSchedule),
		OnStart:    chainHooks(h.OnStart, other.OnStart),
		OnComplete: chainHooks(h.OnComplete, other.OnComplete),
		OnFault:    chainHooks(h.OnFault, other.OnFault),
		OnCancel:   chainHooks(h.OnCancel, other.OnCancel),
	}
}

func chainHooks(first, second HookFunc) HookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(event Event) {
			first(event)
			second(event)
		}
	}
}

func emit(hook HookFunc, event Event) {
	if hook != nil {
		hook(event)
	}
}
