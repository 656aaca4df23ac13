package store

import (
	"context"
	"fmt"

	"github.com/roach88/bpsync/internal/event"
)

// Trace is a recorded run with its steps, ready for replay or display.
type Trace struct {
	Run   Run
	Steps []Step
}

// Events returns the trace's event sequence.
func (t Trace) Events() []event.Event {
	return Events(t.Steps)
}

// Final returns the final step, or false when the trace has no steps.
func (t Trace) Final() (Step, bool) {
	if len(t.Steps) == 0 {
		return Step{}, false
	}
	return t.Steps[len(t.Steps)-1], true
}

// LoadTrace reads a run and its steps. The events can be fed to
// engine.Replay to reproduce the run against a fresh program.
//
// Returns sql.ErrNoRows (wrapped) if the run does not exist.
func (s *Store) LoadTrace(ctx context.Context, runID string) (Trace, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return Trace{}, fmt.Errorf("load trace %s: %w", runID, err)
	}
	steps, err := s.ReadSteps(ctx, runID)
	if err != nil {
		return Trace{}, fmt.Errorf("load trace %s: %w", runID, err)
	}
	for i, step := range steps {
		if step.Index != i {
			return Trace{}, fmt.Errorf("load trace %s: step %d missing", runID, i)
		}
	}
	return Trace{Run: run, Steps: steps}, nil
}
