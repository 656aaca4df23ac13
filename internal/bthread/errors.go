package bthread

import (
	"errors"
	"fmt"
)

// ErrTerminalSnapshot is the panic value raised when a finished or zero
// snapshot is resumed.
var ErrTerminalSnapshot = errors.New("bthread: resuming a terminal snapshot")

// ThreadError reports a panic raised by thread code during a step.
type ThreadError struct {
	Thread string
	Value  any
}

// Error implements the error interface.
func (e *ThreadError) Error() string {
	return fmt.Sprintf("b-thread %q panicked: %v", e.Thread, e.Value)
}

// IsThreadError returns true if err is, or wraps, a ThreadError.
func IsThreadError(err error) bool {
	var te *ThreadError
	return errors.As(err, &te)
}
