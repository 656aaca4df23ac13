package store

import (
	"time"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/verifier"
)

// StepsFromTrace builds the steps of a counterexample. Every node records
// its state.
func StepsFromTrace(trace []verifier.Node) []Step {
	steps := make([]Step, len(trace))
	for i, n := range trace {
		var ev *event.Event
		if n.HasEvent {
			e := n.Event
			ev = &e
		}
		steps[i] = StepFromState(i, n.State, ev)
	}
	return steps
}

// RecordRun builds the log entry of a live run or replay.
func RecordRun(mode string, p *engine.Program, res *engine.RunResult, elapsed time.Duration) (Run, []Step) {
	run := Run{
		ID:               res.RunID,
		Mode:             mode,
		Program:          p.Name(),
		Params:           p.Params(),
		Status:           res.Status.String(),
		Violation:        res.Violation.Kind.String(),
		ViolationThread:  res.Violation.Thread,
		ViolationMessage: res.Violation.Message,
		StatesScanned:    int64(len(res.Events) + 1),
		EdgesScanned:     int64(len(res.Events)),
		DurationMS:       elapsed.Milliseconds(),
	}
	return run, StepsFromEvents(res.Events, res.Final)
}

// RecordVerification builds the log entry of a verification. Only the
// counterexample trace is stored.
func RecordVerification(id string, p *engine.Program, res *verifier.Result) (Run, []Step) {
	run := Run{
		ID:               id,
		Mode:             ModeVerify,
		Program:          p.Name(),
		Params:           p.Params(),
		Status:           res.Outcome().String(),
		Violation:        res.Violation.Kind.String(),
		ViolationThread:  res.Violation.Thread,
		ViolationMessage: res.Violation.Message,
		StatesScanned:    res.StatesScanned,
		EdgesScanned:     res.EdgesScanned,
		DurationMS:       res.Duration.Milliseconds(),
	}
	return run, StepsFromTrace(res.Trace)
}
