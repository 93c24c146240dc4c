package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/bsync/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Selected events for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSelected events:\n")
		for _, ev := range e.Trace {
			if _, isNull := ev.Data.(ir.IRNull); ev.Data == nil || isNull {
				fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, ev.Type)
				continue
			}
			data, err := ir.MarshalCanonical(ev.Data)
			if err != nil {
				data = []byte(fmt.Sprintf("%v", ev.Data))
			}
			fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Type, data)
		}
	}

	return buf.String()
}

// assertTraceExact checks that the selected event types are exactly the
// expected list.
func assertTraceExact(result *Result, assertion Assertion) error {
	actual := result.SelectedTypes()
	expected := assertion.Events
	if expected == nil {
		expected = []string{}
	}
	if slices.Equal(actual, expected) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceExact,
		Expected: fmt.Sprintf("%v", expected),
		Actual:   fmt.Sprintf("%v", actual),
		Trace:    result.Selected(),
	}
}

// assertTraceOrder checks that the expected events appear as an ordered
// subsequence of the selected events. Intervening events are allowed, and an
// event may be listed more than once.
func assertTraceOrder(result *Result, assertion Assertion) error {
	selected := result.SelectedTypes()

	next := 0
	for _, t := range selected {
		if next < len(assertion.Events) && t == assertion.Events[next] {
			next++
		}
	}
	if next == len(assertion.Events) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("events in order: %v", assertion.Events),
		Actual: fmt.Sprintf("matched %v, then no %s",
			assertion.Events[:next], assertion.Events[next]),
		Trace: result.Selected(),
	}
}

// assertTraceCount checks that the event was selected exactly Count times.
func assertTraceCount(result *Result, assertion Assertion) error {
	count := 0
	for _, t := range result.SelectedTypes() {
		if t == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    result.Selected(),
		}
	}
	return nil
}

// assertTraceContains checks that a selected event of the given type
// carries the expected data (subset match on object fields).
func assertTraceContains(result *Result, assertion Assertion) error {
	expected, err := ir.FromGo(assertion.Data)
	if err != nil {
		return fmt.Errorf("trace_contains: data: %w", err)
	}

	for _, ev := range result.Selected() {
		if ev.Type == assertion.Event && matchData(ev.Data, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s with data %v", assertion.Event, assertion.Data),
		Actual:   "not found in trace",
		Trace:    result.Selected(),
	}
}

// assertPending checks that the strand is waiting.
func assertPending(result *Result, assertion Assertion) error {
	if slices.Contains(result.Pending, assertion.Strand) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPending,
		Expected: fmt.Sprintf("strand %s pending", assertion.Strand),
		Actual:   strandState(result, assertion.Strand),
	}
}

// assertTerminated checks that the strand is neither running nor pending.
func assertTerminated(result *Result, assertion Assertion) error {
	if !slices.Contains(result.Pending, assertion.Strand) && !slices.Contains(result.Running, assertion.Strand) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTerminated,
		Expected: fmt.Sprintf("strand %s terminated", assertion.Strand),
		Actual:   strandState(result, assertion.Strand),
	}
}

func strandState(result *Result, name string) string {
	switch {
	case slices.Contains(result.Pending, name):
		return fmt.Sprintf("strand %s pending", name)
	case slices.Contains(result.Running, name):
		return fmt.Sprintf("strand %s running", name)
	default:
		return fmt.Sprintf("strand %s terminated (pending: %v)", name, result.Pending)
	}
}

// matchData reports whether actual contains expected. Objects match when
// every expected key is present with a matching value; extra keys in actual
// are ignored. Everything else must be equal.
func matchData(actual, expected ir.IRValue) bool {
	expObj, ok := expected.(ir.IRObject)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	if len(expObj) == 0 {
		return true
	}

	actObj, ok := actual.(ir.IRObject)
	if !ok {
		return false
	}
	for key, want := range expObj {
		got, exists := actObj[key]
		if !exists || !matchData(got, want) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceExact:
			err = assertTraceExact(result, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		case AssertTraceContains:
			err = assertTraceContains(result, assertion)
		case AssertPending:
			err = assertPending(result, assertion)
		case AssertTerminated:
			err = assertTerminated(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
