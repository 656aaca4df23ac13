package engine

import (
	"context"
	"fmt"

	"github.com/roach88/bpsync/internal/event"
)

// Replay feeds events, in order, into a fresh instance of p and classifies
// where it ends. Replaying a recorded counterexample reproduces the same
// violation and the same final thread states, because Start and Step are
// deterministic.
//
// Each event must be admissible when it is fired; otherwise Replay returns an
// ErrCodeInadmissibleEvent error wrapped with the event's position. A replay
// that stops at a failure before consuming every event returns the result and
// no error: trailing events cannot fire from a failed state.
//
// When events run out while the program could still continue, the status is
// RunHalted.
func Replay(ctx context.Context, p *Program, events []event.Event, opts ...Option) (*RunResult, error) {
	e := New(p, opts...)
	state, err := e.Start()
	if err != nil {
		return nil, fmt.Errorf("start program %s: %w", p.Name(), err)
	}

	res := &RunResult{}
	for i, ev := range events {
		if state.failure != nil {
			break
		}
		if err := ctx.Err(); err != nil {
			res.Status = RunCancelled
			res.Final = state
			return res, err
		}
		next, err := e.Step(state, ev)
		if err != nil {
			res.Status = RunHalted
			res.Final = state
			return res, fmt.Errorf("replay event %d %s: %w", i, ev, err)
		}
		res.Events = append(res.Events, ev)
		state = next
	}

	res.Final = state
	switch state.Status() {
	case StatusTerminated:
		res.Status = RunTerminated
	case StatusStuck:
		res.Status = RunDeadlocked
	default:
		res.Status = RunHalted
	}
	if state.failure != nil {
		res.Status = RunAssertionFailed
	}
	res.Violation = state.Violation(res.Status == RunDeadlocked)
	return res, nil
}
