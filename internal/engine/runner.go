package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/event"
)

// DefaultMaxSteps is the default maximum number of supersteps per live run.
// This stops programs that never terminate from running unbounded.
const DefaultMaxSteps = 1000

// Strategy chooses the event to fire. It is called only with a non-empty
// admissible list and must return one of its members, or false to stop the
// run.
type Strategy interface {
	Select(snaps []*bthread.Snapshot, admissible []event.Event) (event.Event, bool)
}

// RunStatus is how a live run ended.
type RunStatus int

const (
	// RunTerminated means no live thread remained.
	RunTerminated RunStatus = iota + 1
	// RunDeadlocked means threads remained with no admissible event.
	RunDeadlocked
	// RunAssertionFailed means a thread failed an assertion.
	RunAssertionFailed
	// RunHalted means the quota was hit, the strategy declined to choose, or
	// a replayed trace ran out.
	RunHalted
	// RunCancelled means the context was cancelled.
	RunCancelled
)

func (s RunStatus) String() string {
	switch s {
	case RunTerminated:
		return "terminated"
	case RunDeadlocked:
		return "deadlocked"
	case RunAssertionFailed:
		return "assertion-failed"
	case RunHalted:
		return "halted"
	case RunCancelled:
		return "cancelled"
	}
	return "unknown"
}

// ParseRunStatus parses the String form of a RunStatus.
func ParseRunStatus(s string) (RunStatus, error) {
	for _, st := range []RunStatus{RunTerminated, RunDeadlocked, RunAssertionFailed, RunHalted, RunCancelled} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown run status %q", s)
}

// RunResult is the outcome of a live run or a replay.
type RunResult struct {
	RunID     string
	Status    RunStatus
	Events    []event.Event
	Violation Violation
	Final     *State
}

// Runner drives a program live under a strategy.
type Runner struct {
	engine    *Engine
	strategy  Strategy
	listeners []Listener
	maxSteps  int
	ids       RunIDGenerator
	logger    *slog.Logger

	// seq stamps notifications. It keeps counting across runs of one Runner.
	seq atomic.Int64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxSteps sets the superstep quota. Default: DefaultMaxSteps.
// A value <= 0 disables the quota.
func WithMaxSteps(maxSteps int) RunnerOption {
	return func(r *Runner) {
		r.maxSteps = maxSteps
	}
}

// WithListener adds a listener. Listeners are notified in the order added.
func WithListener(l Listener) RunnerOption {
	return func(r *Runner) {
		r.listeners = append(r.listeners, l)
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		r.ids = g
	}
}

// WithRunLogger sets the runner's logger.
func WithRunLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a Runner. strategy must not be nil.
func NewRunner(e *Engine, strategy Strategy, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:   e,
		strategy: strategy,
		maxSteps: DefaultMaxSteps,
		ids:      UUIDv7Generator{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the program from its root state until it terminates,
// deadlocks, fails an assertion, hits the quota, or ctx is cancelled.
//
// Deadlocks and failed assertions are results, not errors. Errors are
// returned for thread panics, a strategy that picks an inadmissible event,
// and cancellation (with the partial result).
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{RunID: r.ids.Generate()}
	r.notify(Notification{Kind: NotifyStarted, RunID: res.RunID, Program: r.engine.Program().Name()})

	state, err := r.engine.Start()
	if err != nil {
		return nil, fmt.Errorf("start program %s: %w", r.engine.Program().Name(), err)
	}
	if state.Len() > 0 {
		r.notify(Notification{Kind: NotifyThreadsAdded, RunID: res.RunID, Threads: state.Names()})
	}

	quota := NewQuotaEnforcer(r.maxSteps)
	for {
		if state.failure != nil {
			res.Status = RunAssertionFailed
			break
		}
		if err := ctx.Err(); err != nil {
			res.Status = RunCancelled
			r.finish(res, state)
			return res, err
		}
		if state.Len() == 0 {
			res.Status = RunTerminated
			break
		}
		admissible := state.Admissible()
		if len(admissible) == 0 {
			res.Status = RunDeadlocked
			break
		}
		if err := quota.Check(res.RunID); err != nil {
			r.logger.Warn("run halted", "run_id", res.RunID, "error", err)
			res.Status = RunHalted
			break
		}

		ev, ok := r.strategy.Select(state.Snapshots(), admissible)
		if !ok {
			res.Status = RunHalted
			break
		}
		r.notify(Notification{Kind: NotifyEventSelected, RunID: res.RunID, Iteration: state.iteration, Event: ev})

		next, err := r.engine.Step(state, ev)
		if err != nil {
			r.finish(res, state)
			return res, fmt.Errorf("step %d: %w", state.iteration, err)
		}
		res.Events = append(res.Events, ev)

		added, removed := Diff(state, next)
		if len(removed) > 0 {
			r.notify(Notification{Kind: NotifyThreadsRemoved, RunID: res.RunID, Iteration: next.iteration, Threads: removed})
		}
		if len(added) > 0 {
			r.notify(Notification{Kind: NotifyThreadsAdded, RunID: res.RunID, Iteration: next.iteration, Threads: added})
		}
		state = next
	}

	r.finish(res, state)
	return res, nil
}

func (r *Runner) finish(res *RunResult, state *State) {
	res.Final = state
	res.Violation = state.Violation(res.Status == RunDeadlocked)
	r.notify(Notification{
		Kind:      NotifyEnded,
		RunID:     res.RunID,
		Iteration: state.iteration,
		Status:    res.Status,
		Violation: res.Violation,
	})
}

func (r *Runner) notify(n Notification) {
	n.Seq = r.seq.Add(1)
	for _, l := range r.listeners {
		l.Notify(n)
	}
}
