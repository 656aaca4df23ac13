package engine

import (
	"io"
	"log/slog"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// Engine computes states of one Program. It holds no per-run state: Start
// and Step are pure functions of their inputs, which is what lets the
// verifier call Step on any state it has seen, in any order.
//
// Thread-safety: an Engine may be shared, but thread bodies are only as
// safe as the code the program registered.
type Engine struct {
	program *Program
	params  ir.IRObject
	logger  *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger used for per-superstep debug records.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine for p.
func New(p *Program, opts ...Option) *Engine {
	e := &Engine{
		program: p,
		params:  p.Params(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Program returns the program this engine runs.
func (e *Engine) Program() *Program {
	return e.program
}

// Start runs every registered thread to its first synchronization point and
// returns the root state. Threads spawned while starting are started too.
// A failed assertion stops the start and is carried by the root state.
func (e *Engine) Start() (*State, error) {
	var snaps []*bthread.Snapshot
	live := make(map[string]bool)

	failure, killed, err := e.startAll(e.program.Threads(), &snaps, live)
	if err != nil {
		return nil, err
	}
	if failure == nil {
		snaps = without(snaps, killed)
	}

	root := newState(snaps, nil, 0, failure)
	e.logger.Debug("program started",
		"program", e.program.Name(),
		"threads", root.Len(),
	)
	return root, nil
}

// Step fires ev from s and returns the next state.
//
// Every thread whose statement requests or waits for ev is resumed, in
// thread order. The first failed assertion ends the round: the remaining
// matching threads keep their snapshots and no spawn or kill from this round
// is applied. Otherwise killed threads are dropped, then spawned threads are
// started, and kills issued by the spawned threads are applied last. A
// spawned thread that fails while starting also leaves the round unapplied.
//
// Returns ErrCodeInadmissibleEvent if ev is not admissible in s or s already
// carries a failure, and ErrCodeThreadPanic if thread code panics.
func (e *Engine) Step(s *State, ev event.Event) (*State, error) {
	if s.failure != nil || !IsAdmissible(s.snapshots, ev) {
		return nil, NewInadmissibleEventError(ev.String(), s.iteration)
	}

	next := make([]*bthread.Snapshot, 0, len(s.snapshots))
	var (
		failure *bthread.Failure
		spawned []bthread.Spec
		killed  []string
		resumed int
	)
	for _, snap := range s.snapshots {
		if failure != nil || !snap.Statement().Selects(ev) {
			next = append(next, snap)
			continue
		}
		out, err := e.resume(snap, ev)
		if err != nil {
			return nil, err
		}
		resumed++
		if out.Next != nil {
			next = append(next, out.Next)
		}
		if out.Failure != nil {
			failure = out.Failure
			continue
		}
		spawned = append(spawned, out.Spawned...)
		killed = append(killed, out.Killed...)
	}

	if failure == nil && len(spawned) > 0 {
		// Kills from resumed threads land before spawns start, so a killed
		// name can be reused in the same round.
		base := without(next, killed)
		live := make(map[string]bool, len(base))
		for _, snap := range base {
			live[snap.Name()] = true
		}
		f, k, err := e.startAll(spawned, &base, live)
		if err != nil {
			return nil, err
		}
		if f != nil {
			failure = f
		} else {
			next, killed = base, k
		}
	}
	if failure == nil {
		next = without(next, killed)
	}

	fired := ev
	out := newState(next, &fired, s.iteration+1, failure)
	e.logger.Debug("superstep",
		"iteration", out.iteration,
		"event", ev.String(),
		"resumed", resumed,
		"threads", out.Len(),
	)
	return out, nil
}

// startAll starts specs in order, appending live snapshots to snaps. Threads
// spawned during a start are queued behind the others. Kill requests are
// returned for the caller to apply.
func (e *Engine) startAll(specs []bthread.Spec, snaps *[]*bthread.Snapshot, live map[string]bool) (*bthread.Failure, []string, error) {
	var killed []string
	queue := append([]bthread.Spec(nil), specs...)
	for len(queue) > 0 {
		spec := queue[0]
		queue = queue[1:]

		if live[spec.Name] {
			return nil, nil, NewDuplicateThreadError(spec.Name)
		}
		out, err := bthread.Start(spec, e.params)
		if err != nil {
			return nil, nil, NewThreadPanicError(spec.Name, err)
		}
		if out.Next != nil {
			*snaps = append(*snaps, out.Next)
			live[spec.Name] = true
		}
		if out.Failure != nil {
			return out.Failure, nil, nil
		}
		queue = append(queue, out.Spawned...)
		killed = append(killed, out.Killed...)
	}
	return nil, killed, nil
}

// resume converts a terminal-snapshot panic into a RuntimeError panic and a
// recovered thread panic into an error.
func (e *Engine) resume(snap *bthread.Snapshot, ev event.Event) (out bthread.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == bthread.ErrTerminalSnapshot {
				panic(NewInvalidResumptionError(snap.Name()))
			}
			panic(r)
		}
	}()

	out, err = snap.Resume(ev, e.params)
	if err != nil {
		return out, NewThreadPanicError(snap.Name(), err)
	}
	return out, nil
}

func without(snaps []*bthread.Snapshot, names []string) []*bthread.Snapshot {
	if len(names) == 0 {
		return snaps
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := snaps[:0:0]
	for _, snap := range snaps {
		if !drop[snap.Name()] {
			out = append(out, snap)
		}
	}
	return out
}
