package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while a program runs.
//
// Runtime errors include:
//   - Strand panic: a strand panicked while being resumed
//   - Feedback failure: a feedback handler returned an error
//   - Quota exceeded: a cascade selected more events than allowed
//   - Restricted event: a restricted or public trigger refused an event
//   - Program closed: the program was used after Close
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Strand names the strand involved, if any.
	Strand string

	// EventType is the event being processed, if any.
	EventType EventType

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStrandPanic indicates a strand panicked during resumption.
	ErrCodeStrandPanic RuntimeErrorCode = "STRAND_PANIC"

	// ErrCodeFeedbackFailed indicates a feedback handler returned an error.
	ErrCodeFeedbackFailed RuntimeErrorCode = "FEEDBACK_FAILED"

	// ErrCodeQuotaExceeded indicates a cascade exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeRestrictedEvent indicates a trigger refused the event type.
	ErrCodeRestrictedEvent RuntimeErrorCode = "RESTRICTED_EVENT"

	// ErrCodeProgramClosed indicates the program was used after Close.
	ErrCodeProgramClosed RuntimeErrorCode = "PROGRAM_CLOSED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Strand != "" && e.EventType != "" {
		msg = fmt.Sprintf("%s (strand=%s, event=%s)", msg, e.Strand, e.EventType)
	} else if e.Strand != "" {
		msg = fmt.Sprintf("%s (strand=%s)", msg, e.Strand)
	} else if e.EventType != "" {
		msg = fmt.Sprintf("%s (event=%s)", msg, e.EventType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
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

// IsStrandPanic returns true if the error is a strand panic.
// Uses errors.As to handle wrapped errors.
func IsStrandPanic(err error) bool {
	return hasCode(err, ErrCodeStrandPanic)
}

// IsFeedbackError returns true if a feedback handler failed.
func IsFeedbackError(err error) bool {
	return hasCode(err, ErrCodeFeedbackFailed)
}

// IsRestrictedEvent returns true if a trigger refused the event.
func IsRestrictedEvent(err error) bool {
	return hasCode(err, ErrCodeRestrictedEvent)
}

// IsProgramClosed returns true if the program was already closed.
func IsProgramClosed(err error) bool {
	return hasCode(err, ErrCodeProgramClosed)
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeQuotaExceeded) {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// NewStrandPanicError wraps a recovered panic value.
func NewStrandPanicError(strand string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStrandPanic,
		Message: fmt.Sprintf("strand panicked: %v", recovered),
		Strand:  strand,
	}
}

// NewFeedbackError wraps a failing feedback handler's error.
func NewFeedbackError(eventType EventType, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeFeedbackFailed,
		Message:   "feedback handler failed",
		EventType: eventType,
		Err:       err,
	}
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(sessionID string, steps, maxSteps int, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("cascade exceeded max steps (%d > %d)", steps, maxSteps),
		Details: map[string]string{
			"session":   sessionID,
			"steps":     fmt.Sprintf("%d", steps),
			"max_steps": fmt.Sprintf("%d", maxSteps),
		},
		Err: cause,
	}
}

// NewRestrictedEventError reports an event type refused by a trigger.
func NewRestrictedEventError(eventType EventType) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeRestrictedEvent,
		Message:   "event type may not be triggered externally",
		EventType: eventType,
	}
}

var errClosed = &RuntimeError{
	Code:    ErrCodeProgramClosed,
	Message: "program is closed",
}
