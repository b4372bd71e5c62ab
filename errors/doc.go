// Package errors provides structured errors for the task runtime.
//
// Every failure carries a code identifying what went wrong and a category
// describing its nature. The taxonomy follows the runtime's three failure
// classes: computation faults raised inside user-supplied work, cooperative
// cancellation, and caller misuse. Categories drive retry decisions;
// cancellation and misuse are never retried.
//
// # Creating Errors
//
//	err := errors.New(errors.CodeFaulted, "image decode failed")
//	err := errors.Faulted(taskID, cause)
//	err := errors.MaxAttempts(taskID, 3)
//
// Functional options attach context:
//
//	err := errors.New(errors.CodeTimeout, "drain deadline exceeded",
//	    errors.WithTaskID(id),
//	    errors.WithMetadata("workers", "8"),
//	    errors.WithRetryable(false),
//	)
//
// # Wrapping
//
// Wrap preserves existing task errors and classifies foreign ones: context
// deadline errors become CodeTimeout, cancellation becomes CodeCanceled,
// everything else a computation fault.
//
//	if err := op(); err != nil {
//	    return errors.Wrap(err, "processing order")
//	}
//
// # Inspection
//
//	if errors.Is(err, errors.CodeCanceled) {
//	    // deliberate cancel, not a defect
//	}
//	if errors.IsRetryable(err) {
//	    // schedule another attempt
//	}
//
// Errors round-trip through JSON so task records can persist them.
package errors
