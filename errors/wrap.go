package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/asynckit/asynckit/cancellation"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a task Error, its code and properties are preserved.
// Otherwise the error is classified: context and cancellation errors map to
// their runtime codes, everything else becomes a computation fault.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a task Error, preserve its properties
	var taskErr *Error
	if errors.As(err, &taskErr) {
		wrapped := &Error{
			code:      taskErr.code,
			category:  taskErr.category,
			message:   message,
			cause:     err,
			metadata:  taskErr.Metadata(),
			retryable: taskErr.retryable,
			taskID:    taskErr.taskID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Classify well-known errors before defaulting to a fault
	if errors.Is(err, context.DeadlineExceeded) {
		return New(CodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, cancellation.ErrCanceled) {
		return New(CodeCanceled, message, append(opts, WithCause(err))...)
	}

	return New(CodeFaulted, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code Code, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsTaskError attempts to extract a TaskError from an error chain.
// Returns nil if no TaskError is found.
func AsTaskError(err error) TaskError {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code Code) bool {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.code == code
	}
	return false
}

// CodeOf returns the code of the first task Error in the chain, or
// CodeFaulted if the chain carries no structured error.
func CodeOf(err error) Code {
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.code
	}
	return CodeFaulted
}

// IsRetryable reports whether the error chain permits a retry. Unstructured
// errors are treated as retryable computation faults.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var taskErr *Error
	if errors.As(err, &taskErr) {
		return taskErr.Retryable()
	}
	if errors.Is(err, cancellation.ErrCanceled) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
