package engine

import "fmt"

// ViolationKind classifies what went wrong at a state.
type ViolationKind int

const (
	// NoViolation means the state is fine.
	NoViolation ViolationKind = iota
	// Deadlock means live threads remain but no event is admissible.
	Deadlock
	// FailedAssertion means a thread failed an assertion.
	FailedAssertion
)

func (k ViolationKind) String() string {
	switch k {
	case NoViolation:
		return "none"
	case Deadlock:
		return "deadlock"
	case FailedAssertion:
		return "failed-assertion"
	}
	return "unknown"
}

// ParseViolationKind parses the String form of a ViolationKind.
func ParseViolationKind(s string) (ViolationKind, error) {
	switch s {
	case "none", "":
		return NoViolation, nil
	case "deadlock":
		return Deadlock, nil
	case "failed-assertion":
		return FailedAssertion, nil
	}
	return NoViolation, fmt.Errorf("unknown violation kind %q", s)
}

// Violation is a classified failure point. Thread and Message are set for
// FailedAssertion.
type Violation struct {
	Kind    ViolationKind
	Thread  string
	Message string
}

// Found reports whether v is an actual violation.
func (v Violation) Found() bool {
	return v.Kind != NoViolation
}

func (v Violation) String() string {
	if v.Kind == FailedAssertion {
		return fmt.Sprintf("%s: %s: %s", v.Kind, v.Thread, v.Message)
	}
	return v.Kind.String()
}
