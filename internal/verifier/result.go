package verifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
)

// Outcome summarizes a verification.
type Outcome int

const (
	// Verified means the reachable state graph was exhausted without a
	// violation, up to the store's notion of equality.
	Verified Outcome = iota + 1
	// CounterExample means a violation was found.
	CounterExample
	// Inconclusive means no violation was found but some branch was cut by
	// the max trace length.
	Inconclusive
)

func (o Outcome) String() string {
	switch o {
	case Verified:
		return "verified"
	case CounterExample:
		return "counterexample"
	case Inconclusive:
		return "inconclusive"
	}
	return "unknown"
}

// Node is one step of a trace: a state and the event fired from it. The last
// node of a trace has no event.
type Node struct {
	State    *engine.State
	Event    event.Event
	HasEvent bool
}

// FailedAssertion identifies the thread and message of a failed assertion.
type FailedAssertion struct {
	Thread  string
	Message string
}

// Result is what a verification reports.
type Result struct {
	Program   string
	Violation engine.Violation

	// Trace is the counterexample, root first. Empty when no violation.
	Trace []Node

	// StatesScanned counts distinct states entered (marked visited).
	StatesScanned int64

	// EdgesScanned counts transitions computed.
	EdgesScanned int64

	// Leaves counts transitions into states with no outgoing edge, including
	// transitions into already-visited ones.
	Leaves int64

	// Counterexamples counts violating states found (> 1 only without
	// StopAtFirst).
	Counterexamples int

	// Truncated is set when the max trace length cut a branch.
	Truncated bool

	Duration time.Duration
	Options  Options
}

// Outcome classifies the result.
func (r *Result) Outcome() Outcome {
	switch {
	case r.Violation.Found():
		return CounterExample
	case r.Truncated:
		return Inconclusive
	}
	return Verified
}

// IsCounterExampleFound reports whether a violation was found.
func (r *Result) IsCounterExampleFound() bool {
	return r.Violation.Found()
}

// IsVerifiedSuccessfully reports a complete search without violations.
func (r *Result) IsVerifiedSuccessfully() bool {
	return r.Outcome() == Verified
}

// FailedAssertion returns the failed assertion, or nil.
func (r *Result) FailedAssertion() *FailedAssertion {
	if r.Violation.Kind != engine.FailedAssertion {
		return nil
	}
	return &FailedAssertion{Thread: r.Violation.Thread, Message: r.Violation.Message}
}

// Events returns the trace's event sequence.
func (r *Result) Events() []event.Event {
	var out []event.Event
	for _, n := range r.Trace {
		if n.HasEvent {
			out = append(out, n.Event)
		}
	}
	return out
}

// Describe renders the counterexample: each fired event, then the final
// state's selectable events and each thread's statement sorted by name.
func (r *Result) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "violation: %s\n", r.Violation)
	if len(r.Trace) == 0 {
		return b.String()
	}
	b.WriteString("trace:\n")
	for i, e := range r.Events() {
		fmt.Fprintf(&b, "  %d: %s\n", i+1, e)
	}

	final := r.Trace[len(r.Trace)-1].State
	selectable := final.Admissible()
	parts := make([]string, len(selectable))
	for i, e := range selectable {
		parts[i] = e.String()
	}
	fmt.Fprintf(&b, "selectable events: {%s}\n", strings.Join(parts, ","))

	b.WriteString("threads:\n")
	for _, snap := range sortedSnapshots(final) {
		fmt.Fprintf(&b, "  %s\n", snap)
	}
	return b.String()
}
