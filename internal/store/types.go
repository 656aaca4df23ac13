package store

import (
	"sort"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// Run modes.
const (
	ModeRun    = "run"
	ModeVerify = "verify"
	ModeReplay = "replay"
)

// Run is one recorded run, replay or verification.
type Run struct {
	ID               string
	Seq              int64 // Assigned by WriteRun
	Mode             string
	Program          string
	Params           ir.IRObject
	Status           string // engine.RunStatus or verifier.Outcome string
	Violation        string // engine.ViolationKind string
	ViolationThread  string
	ViolationMessage string
	StatesScanned    int64
	EdgesScanned     int64
	DurationMS       int64
	EngineVersion    string
	TraceVersion     string
}

// ThreadStatement is a thread's declared statement at a trace node.
type ThreadStatement struct {
	Name      string `json:"name"`
	Statement string `json:"statement"`
}

// Step is one trace node. Event is nil for the final node.
type Step struct {
	Index       int
	Event       *event.Event
	StateDigest string
	Threads     []ThreadStatement
}

// StepFromState builds a step that records st, sorted by thread name.
func StepFromState(index int, st *engine.State, ev *event.Event) Step {
	snaps := st.Snapshots()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name() < snaps[j].Name() })

	threads := make([]ThreadStatement, len(snaps))
	for i, snap := range snaps {
		threads[i] = ThreadStatement{Name: snap.Name(), Statement: snap.Statement().String()}
	}
	return Step{
		Index:       index,
		Event:       ev,
		StateDigest: st.Digest(),
		Threads:     threads,
	}
}

// StepsFromEvents builds the steps of a live run: one per event, then the
// final state. Only the final step records a state.
func StepsFromEvents(events []event.Event, final *engine.State) []Step {
	steps := make([]Step, 0, len(events)+1)
	for i := range events {
		e := events[i]
		steps = append(steps, Step{Index: i, Event: &e})
	}
	if final != nil {
		steps = append(steps, StepFromState(len(events), final, nil))
	}
	return steps
}

// Events returns the events of steps in order.
func Events(steps []Step) []event.Event {
	var out []event.Event
	for _, s := range steps {
		if s.Event != nil {
			out = append(out, *s.Event)
		}
	}
	return out
}
