package engine

import (
	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/event"
)

var (
	evA    = event.New("a")
	evB    = event.New("b")
	evX    = event.New("x")
	evTick = event.New("tick")
)

// firstAdmissible picks the first admissible event.
type firstAdmissible struct{}

func (firstAdmissible) Select(_ []*bthread.Snapshot, admissible []event.Event) (event.Event, bool) {
	return admissible[0], true
}

// deadlockProgram: one thread requests x forever, another blocks x forever.
func deadlockProgram() *Program {
	return NewProgram("deadlock", nil).
		MustRegister("requester", bthread.Forever(bthread.Request(evX))).
		MustRegister("blocker", bthread.Forever(bthread.Block(evX)))
}

// tickProgram: ticker requests tick forever, counter asserts count <= limit.
func tickProgram(limit int64) *Program {
	return NewProgram("ticks", nil).
		MustRegister("ticker", bthread.Forever(bthread.Request(evTick))).
		MustRegister("counter", bthread.Counter(evTick, func(c *bthread.Context, n int64) {
			c.Assert(n <= limit, "tick count %d exceeds %d", n, limit)
		}))
}

// interleavingProgram: a and b each requested once by independent threads.
func interleavingProgram() *Program {
	return NewProgram("interleave", nil).
		MustRegister("A", bthread.Sequence(bthread.Request(evA))).
		MustRegister("B", bthread.Sequence(bthread.Request(evB)))
}

func names(events []event.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Name
	}
	return out
}
