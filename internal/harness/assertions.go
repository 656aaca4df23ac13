package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, ev.Event)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalThreads:
			err = assertFinalThreads(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks that an event with the given name was fired.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, ev := range trace {
		if ev.Event == assertion.Event {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s", assertion.Event),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that events appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// First position of each expected event, 1-indexed
	positions := make(map[string]int)
	for i, ev := range trace {
		if positions[ev.Event] == 0 && slices.Contains(assertion.Events, ev.Event) {
			positions[ev.Event] = i + 1
		}
	}

	for _, name := range assertion.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all events present: %v", assertion.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Events); i++ {
		prev := assertion.Events[i-1]
		curr := assertion.Events[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the event was fired exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Event == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalThreads checks the set of live threads in the final state.
// Order in the assertion does not matter.
func assertFinalThreads(result *Result, assertion Assertion) error {
	want := append([]string(nil), assertion.Threads...)
	sort.Strings(want)
	got := result.FinalThreads()

	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertFinalThreads,
			Expected: fmt.Sprintf("live threads %v", want),
			Actual:   fmt.Sprintf("live threads %v", got),
		}
	}
	return nil
}
