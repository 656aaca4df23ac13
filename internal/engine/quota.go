package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts supersteps of a live run and enforces a maximum.
//
// A b-program may legitimately run forever (a thread requesting "tick" in a
// loop), so live runs are bounded by a step quota. The verifier does not use
// the quota; its bound is the max trace length.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed supersteps
	current  int // Supersteps taken so far
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit <= 0 disables the quota.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
// Called before each superstep fires its event.
func (q *QuotaEnforcer) Check(runID string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			RunID: runID,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset resets the step counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a run exceeds the max steps quota.
//
// The Runner turns it into a Halted result rather than failing the run.
type StepsExceededError struct {
	RunID string // The run that exceeded the quota
	Steps int    // Number of steps attempted
	Limit int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.RunID, e.Steps, e.Limit)
}

// RuntimeError converts the quota error to a coded RuntimeError.
func (e *StepsExceededError) RuntimeError() *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStepsExceeded,
		Message: fmt.Sprintf("run exceeded max steps (%d > %d)", e.Steps, e.Limit),
		Details: map[string]string{
			"run_id":    e.RunID,
			"steps":     fmt.Sprintf("%d", e.Steps),
			"max_steps": fmt.Sprintf("%d", e.Limit),
		},
		Err: e,
	}
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
