package harness

import (
	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/ir"
	"github.com/roach88/bpsync/internal/store"
)

// TraceEvent is one fired event of the trace, numbered from 1.
type TraceEvent struct {
	Seq   int64      `json:"seq"`
	Event string     `json:"event"`
	Data  ir.IRValue `json:"data,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expectation and all assertions match.
	Pass bool `json:"pass"`

	RunID   string `json:"run_id"`
	Mode    string `json:"mode"`
	Program string `json:"program"`

	// Status is the run status or verification outcome.
	Status    string           `json:"status"`
	Violation engine.Violation `json:"-"`

	// Trace is the fired events of a run, or the counterexample of a
	// verification. Read back from the run log.
	Trace []TraceEvent `json:"trace"`

	// Final lists the live threads of the last trace node, sorted by name.
	Final []store.ThreadStatement `json:"final,omitempty"`

	StatesScanned int64 `json:"states_scanned"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventNames returns the trace's event names in order.
func (r *Result) EventNames() []string {
	out := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.Event
	}
	return out
}

// FinalThreads returns the names of the final live threads.
func (r *Result) FinalThreads() []string {
	out := make([]string, len(r.Final))
	for i, t := range r.Final {
		out[i] = t.Name
	}
	return out
}
