package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the events selected during one cascade and enforces a
// maximum.
//
// A cascade is everything one Trigger or Run call does before control
// returns. Strands that request forever (a looped request with nothing
// blocking it) would otherwise never return control to the caller; the quota
// turns that into an error.
type QuotaEnforcer struct {
	maxSteps int // Maximum allowed selections per cascade
	current  int // Selections so far
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit of zero or less disables enforcement.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{
		maxSteps: maxSteps,
		current:  0,
	}
}

// Check increments the step counter and validates against the limit.
//
// Returns StepsExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(sessionID string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			SessionID: sessionID,
			Steps:     q.current,
			Limit:     q.maxSteps,
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

// StepsExceededError is returned when a cascade exceeds the max steps quota.
// The cascade stops; strands keep their bids and the next Trigger or Run
// starts a fresh count.
type StepsExceededError struct {
	SessionID string // The program session
	Steps     int    // Number of steps taken
	Limit     int    // Maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("session %s exceeded max steps quota: %d steps > %d limit",
		e.SessionID, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
