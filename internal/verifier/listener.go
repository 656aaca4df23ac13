package verifier

import (
	"time"

	"github.com/roach88/bpsync/internal/engine"
)

// Progress is a periodic snapshot of the search.
type Progress struct {
	StatesScanned int64
	EdgesScanned  int64
	Depth         int
	Elapsed       time.Duration
}

// Listener observes a verification. Callbacks run on the search goroutine.
type Listener interface {
	Started(program string)
	Progress(p Progress)
	ViolationFound(v engine.Violation, trace []Node)
	MaxTraceLengthHit(trace []Node)
	Done(res *Result)
}

// NopListener implements Listener with no-ops. Embed it to implement only
// some callbacks.
type NopListener struct{}

func (NopListener) Started(string)                          {}
func (NopListener) Progress(Progress)                       {}
func (NopListener) ViolationFound(engine.Violation, []Node) {}
func (NopListener) MaxTraceLengthHit([]Node)                {}
func (NopListener) Done(*Result)                            {}
