package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while advancing a program.
//
// Runtime errors include:
//   - Duplicate thread: a registered or spawned name is already live
//   - Thread panic: thread code panicked during a step
//   - Inadmissible event: Step was asked to fire an event no thread may fire
//   - Invalid resumption: a terminal snapshot was resumed (fatal)
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Thread identifies the affected b-thread, if any.
	Thread string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateThread indicates two live threads share a name.
	ErrCodeDuplicateThread RuntimeErrorCode = "DUPLICATE_THREAD"

	// ErrCodeThreadPanic indicates thread code panicked.
	ErrCodeThreadPanic RuntimeErrorCode = "THREAD_PANIC"

	// ErrCodeInadmissibleEvent indicates an event that is not admissible in
	// the current state was fired.
	ErrCodeInadmissibleEvent RuntimeErrorCode = "INADMISSIBLE_EVENT"

	// ErrCodeStepsExceeded indicates a live run hit its max-steps quota.
	ErrCodeStepsExceeded RuntimeErrorCode = "STEPS_EXCEEDED"

	// ErrCodeInvalidResumption indicates a terminal snapshot was resumed.
	ErrCodeInvalidResumption RuntimeErrorCode = "INVALID_RESUMPTION"

	// ErrCodeUnknownThread indicates a lookup of a thread that is not live.
	ErrCodeUnknownThread RuntimeErrorCode = "UNKNOWN_THREAD"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Thread != "" {
		msg = fmt.Sprintf("%s (thread=%s)", msg, e.Thread)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsDuplicateThreadError returns true if err is a duplicate thread error.
func IsDuplicateThreadError(err error) bool {
	return hasCode(err, ErrCodeDuplicateThread)
}

// IsThreadPanicError returns true if err reports a panicking thread.
func IsThreadPanicError(err error) bool {
	return hasCode(err, ErrCodeThreadPanic)
}

// IsInadmissibleEventError returns true if err is an inadmissible event error.
// Uses errors.As to handle wrapped errors.
func IsInadmissibleEventError(err error) bool {
	return hasCode(err, ErrCodeInadmissibleEvent)
}

// IsUnknownThreadError returns true if err is an unknown thread error.
func IsUnknownThreadError(err error) bool {
	return hasCode(err, ErrCodeUnknownThread)
}

// IsQuotaError returns true if the error is a steps-exceeded error.
// Matches both RuntimeError with ErrCodeStepsExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeStepsExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewDuplicateThreadError creates a RuntimeError for a name clash.
func NewDuplicateThreadError(thread string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDuplicateThread,
		Message: "a live b-thread with this name already exists",
		Thread:  thread,
	}
}

// NewThreadPanicError wraps a recovered thread panic.
func NewThreadPanicError(thread string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeThreadPanic,
		Message: "b-thread code panicked",
		Thread:  thread,
		Err:     cause,
	}
}

// NewInadmissibleEventError creates a RuntimeError for an event that may
// not fire in the current state.
func NewInadmissibleEventError(event string, iteration int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInadmissibleEvent,
		Message: fmt.Sprintf("event %s is not admissible", event),
		Details: map[string]string{
			"event":     event,
			"iteration": fmt.Sprintf("%d", iteration),
		},
	}
}

// NewInvalidResumptionError creates the panic value raised when a terminal
// snapshot is resumed.
func NewInvalidResumptionError(thread string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidResumption,
		Message: "resumed a terminal snapshot",
		Thread:  thread,
	}
}

// NewUnknownThreadError creates a RuntimeError for a missing thread.
func NewUnknownThreadError(thread string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownThread,
		Message: "no live b-thread with this name",
		Thread:  thread,
	}
}
