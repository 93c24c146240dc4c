package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)

	for range 3 {
		require.NoError(t, q.Check("session-1"))
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.MaxSteps())
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(2)
	require.NoError(t, q.Check("session-1"))
	require.NoError(t, q.Check("session-1"))

	err := q.Check("session-1")
	require.Error(t, err)

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "session-1", se.SessionID)
	assert.Equal(t, 3, se.Steps)
	assert.Equal(t, 2, se.Limit)
	assert.Equal(t, "session session-1 exceeded max steps quota: 3 steps > 2 limit", err.Error())
}

func TestQuotaEnforcer_Reset(t *testing.T) {
	q := NewQuotaEnforcer(1)
	require.NoError(t, q.Check("s"))
	require.Error(t, q.Check("s"))

	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check("s"))
}

func TestQuotaEnforcer_ZeroDisables(t *testing.T) {
	q := NewQuotaEnforcer(0)
	for range 1000 {
		require.NoError(t, q.Check("s"))
	}
}

func TestIsQuotaError(t *testing.T) {
	steps := &StepsExceededError{SessionID: "s", Steps: 11, Limit: 10}
	wrapped := NewQuotaError("s", 11, 10, steps)

	assert.True(t, IsQuotaError(steps))
	assert.True(t, IsQuotaError(wrapped))
	assert.True(t, IsQuotaError(fmt.Errorf("cascade: %w", wrapped)))
	assert.True(t, IsStepsExceededError(wrapped), "RuntimeError unwraps to its cause")
	assert.False(t, IsQuotaError(errors.New("other")))
	assert.Equal(t, "11", wrapped.Details["steps"])
}

func TestRuntimeError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "strand",
			err:  NewStrandPanicError("boom", "kaboom"),
			want: "STRAND_PANIC: strand panicked: kaboom (strand=boom)",
		},
		{
			name: "event with cause",
			err:  NewFeedbackError("hot", errors.New("db down")),
			want: "FEEDBACK_FAILED: feedback handler failed (event=hot): db down",
		},
		{
			name: "restricted",
			err:  NewRestrictedEventError("secret"),
			want: "RESTRICTED_EVENT: event type may not be triggered externally (event=secret)",
		},
		{
			name: "both",
			err:  &RuntimeError{Code: ErrCodeStrandPanic, Message: "m", Strand: "s", EventType: "e"},
			want: "STRAND_PANIC: m (strand=s, event=e)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorHelpers_DistinguishCodes(t *testing.T) {
	panicErr := fmt.Errorf("wrapped: %w", NewStrandPanicError("a", "x"))

	assert.True(t, IsStrandPanic(panicErr))
	assert.False(t, IsFeedbackError(panicErr))
	assert.False(t, IsRestrictedEvent(panicErr))
	assert.False(t, IsProgramClosed(panicErr))
	assert.False(t, IsStrandPanic(errors.New("plain")))
}

func TestQuota_DefaultMaxSteps(t *testing.T) {
	p := newTestProgram(t)
	assert.Equal(t, DefaultMaxSteps, p.quota.MaxSteps())
	assert.Equal(t, 10000, DefaultMaxSteps)
}
