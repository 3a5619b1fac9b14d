// Package errors provides standardized error types for dispatcher operations.
// This package defines DispatchError for consistent error handling across
// all public APIs, with operation context and error wrapping support.
package errors

import (
	"fmt"
)

// NoIndex marks a DispatchError that is not tied to a task index.
const NoIndex = -1

// DispatchError represents standardized errors across all dispatcher operations
type DispatchError struct {
	Op      string // Operation name (e.g., "New", "Run", "Execute")
	Index   int    // Task index if applicable, NoIndex otherwise
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	msg := fmt.Sprintf("%s operation failed: %s", e.Op, e.Message)
	if e.Index != NoIndex {
		msg = fmt.Sprintf("%s operation failed at index %d: %s", e.Op, e.Index, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error wrapping support
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// Sentinels match any error with the same Op and Message regardless of index.
func (e *DispatchError) Is(target error) bool {
	de, ok := target.(*DispatchError)
	if !ok {
		return false
	}
	if e.Op != de.Op || e.Message != de.Message {
		return false
	}
	return de.Index == NoIndex || e.Index == de.Index
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *DispatchError {
	return &DispatchError{
		Op:      op,
		Index:   NoIndex,
		Message: message,
	}
}

// NewTaskError creates an error for a task that failed while executing index.
func NewTaskError(index int, cause error) *DispatchError {
	return &DispatchError{
		Op:      ErrTaskFailed.Op,
		Index:   index,
		Message: ErrTaskFailed.Message,
		Cause:   cause,
	}
}

// NewPanicError converts a recovered panic value into a task error.
func NewPanicError(index int, value any) *DispatchError {
	cause, ok := value.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", value)
	} else {
		cause = fmt.Errorf("panic: %w", cause)
	}
	return NewTaskError(index, cause)
}

// NewInterruptedError creates an error for a round cut short by cancellation.
func NewInterruptedError(cause error) *DispatchError {
	return &DispatchError{
		Op:      ErrInterrupted.Op,
		Index:   NoIndex,
		Message: ErrInterrupted.Message,
		Cause:   cause,
	}
}

// Predefined error variables for common cases
var (
	// ErrFinished indicates a round requested after teardown
	ErrFinished = &DispatchError{
		Op:      "run",
		Index:   NoIndex,
		Message: "dispatcher is finished",
	}

	// ErrInterrupted indicates the controller was interrupted while waiting
	// for a round and the dispatcher has been torn down
	ErrInterrupted = &DispatchError{
		Op:      "run",
		Index:   NoIndex,
		Message: "round interrupted",
	}

	// ErrTaskFailed indicates a task returned an error or panicked
	ErrTaskFailed = &DispatchError{
		Op:      "execute",
		Index:   NoIndex,
		Message: "task failed",
	}
)
