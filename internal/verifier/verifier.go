package verifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/visited"
)

// Verifier runs explicit-state depth-first searches over b-programs.
// A Verifier holds configuration only and may be reused.
type Verifier struct {
	opts      Options
	listeners []Listener
	logger    *slog.Logger
}

// New creates a Verifier with DefaultOptions modified by opts.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		opts:   DefaultOptions(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Options returns the verifier's configuration.
func (v *Verifier) Options() Options {
	return v.opts
}

// frame is one level of the DFS stack: a state and its outgoing edges. next
// indexes the edge to explore next; edges[next-1] is the edge on the current
// path.
type frame struct {
	state *engine.State
	edges []event.Event
	next  int
}

type search struct {
	v      *Verifier
	engine *engine.Engine
	store  visited.Store
	stack  []frame
	res    *Result
	start  time.Time
	stop   bool
}

// Verify explores p. Deadlocks, failed assertions and truncation are
// reported in the Result. Errors are returned for thread panics, an invalid
// program, and cancellation; a cancelled search still returns its partial
// Result.
func (v *Verifier) Verify(ctx context.Context, p *engine.Program) (*Result, error) {
	s := &search{
		v:      v,
		engine: engine.New(p, engine.WithLogger(v.logger)),
		store:  visited.New(v.opts.Store),
		res:    &Result{Program: p.Name(), Options: v.opts},
		start:  time.Now(),
	}

	v.logger.Info("verification started",
		"program", p.Name(),
		"store", v.opts.Store.String(),
		"check_deadlocks", v.opts.CheckDeadlocks,
		"max_trace_length", v.opts.MaxTraceLength,
	)
	for _, l := range v.listeners {
		l.Started(p.Name())
	}

	root, err := s.engine.Start()
	if err != nil {
		return nil, fmt.Errorf("start program %s: %w", p.Name(), err)
	}

	err = s.run(ctx, root)
	s.res.Duration = time.Since(s.start)

	v.logger.Info("verification done",
		"program", p.Name(),
		"outcome", s.res.Outcome().String(),
		"states", s.res.StatesScanned,
		"edges", s.res.EdgesScanned,
		"duration", s.res.Duration,
	)
	for _, l := range v.listeners {
		l.Done(s.res)
	}
	return s.res, err
}

func (s *search) run(ctx context.Context, root *engine.State) error {
	s.enter(root)

	for len(s.stack) > 0 && !s.stop {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := &s.stack[len(s.stack)-1]
		if top.next >= len(top.edges) {
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}
		ev := top.edges[top.next]
		top.next++
		s.res.EdgesScanned++

		child, err := s.engine.Step(top.state, ev)
		if err != nil {
			return fmt.Errorf("step from depth %d with %s: %w", len(s.stack)-1, ev, err)
		}
		s.enter(child)
	}
	return nil
}

// enter handles a state reached by the current path (the stack). It either
// cuts it (visited), records a violation, treats it as a leaf, truncates it,
// or pushes it for expansion.
//
// Under a trace length bound the store keys states by the shallowest depth
// they were reached at. A state reached again on a shorter path is expanded
// again, as its subtree may have been cut at the bound.
func (s *search) enter(st *engine.State) {
	var edges []event.Event
	if st.Failure() == nil {
		edges = st.Admissible()
	}

	limit := s.v.opts.MaxTraceLength
	depth := 0
	if limit > 0 {
		depth = len(s.stack)
	}

	expand, known := s.store.Reach(st, depth)
	if !expand || len(edges) == 0 && known {
		if len(edges) == 0 {
			s.res.Leaves++
		}
		return
	}

	if !known {
		s.res.StatesScanned++
		s.progress()

		if v := st.Violation(s.v.opts.CheckDeadlocks); v.Found() {
			s.violation(v, st)
			return
		}
		if len(edges) == 0 {
			s.res.Leaves++
			return
		}
	}

	if limit > 0 && len(s.stack) >= limit {
		if !s.res.Truncated {
			s.v.logger.Warn("max trace length hit", "max_trace_length", limit)
		}
		s.res.Truncated = true
		trace := s.trace(st)
		for _, l := range s.v.listeners {
			l.MaxTraceLengthHit(trace)
		}
		return
	}

	s.stack = append(s.stack, frame{state: st, edges: edges})
}

func (s *search) violation(v engine.Violation, st *engine.State) {
	s.res.Counterexamples++
	trace := s.trace(st)
	if s.res.Counterexamples == 1 {
		s.res.Violation = v
		s.res.Trace = trace
	}

	s.v.logger.Info("violation found",
		"violation", v.String(),
		"depth", len(trace)-1,
	)
	for _, l := range s.v.listeners {
		l.ViolationFound(v, trace)
	}
	if s.v.opts.StopAtFirst {
		s.stop = true
	}
}

// trace builds the path from the root to st out of the stack.
func (s *search) trace(st *engine.State) []Node {
	nodes := make([]Node, 0, len(s.stack)+1)
	for _, f := range s.stack {
		nodes = append(nodes, Node{State: f.state, Event: f.edges[f.next-1], HasEvent: true})
	}
	return append(nodes, Node{State: st})
}

func (s *search) progress() {
	every := s.v.opts.ProgressEvery
	if every <= 0 || s.res.StatesScanned%int64(every) != 0 {
		return
	}
	p := Progress{
		StatesScanned: s.res.StatesScanned,
		EdgesScanned:  s.res.EdgesScanned,
		Depth:         len(s.stack),
		Elapsed:       time.Since(s.start),
	}
	s.v.logger.Debug("verification progress", "states", p.StatesScanned, "edges", p.EdgesScanned, "depth", p.Depth)
	for _, l := range s.v.listeners {
		l.Progress(p)
	}
}

func sortedSnapshots(st *engine.State) []*bthread.Snapshot {
	snaps := st.Snapshots()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name() < snaps[j].Name() })
	return snaps
}
