package engine

import (
	"bytes"
	"sort"
	"sync"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// Status is the engine's view of a State.
type Status int

const (
	// StatusIdle is a run that has not produced its root state yet.
	StatusIdle Status = iota
	// StatusRunning has admissible events.
	StatusRunning
	// StatusStuck has live threads and no admissible event.
	StatusStuck
	// StatusTerminated has no live threads.
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStuck:
		return "stuck"
	case StatusTerminated:
		return "terminated"
	}
	return "unknown"
}

// State is the global state of a program between supersteps: the ordered
// snapshots of every live thread plus bookkeeping.
//
// States are immutable. Step returns a new State and never touches its
// input; the verifier relies on this to backtrack.
//
// Equality ignores bookkeeping (last event, iteration) and thread order:
// two states are equal when they hold the same threads with equal snapshots
// and the same failure.
type State struct {
	snapshots []*bthread.Snapshot
	last      *event.Event
	iteration int
	failure   *bthread.Failure

	once      sync.Once
	canonical []byte
}

func newState(snaps []*bthread.Snapshot, last *event.Event, iteration int, failure *bthread.Failure) *State {
	return &State{snapshots: snaps, last: last, iteration: iteration, failure: failure}
}

// Snapshots returns the live snapshots in thread order. The slice is a copy.
func (s *State) Snapshots() []*bthread.Snapshot {
	out := make([]*bthread.Snapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// Len returns the number of live threads.
func (s *State) Len() int {
	return len(s.snapshots)
}

// Names returns live thread names in thread order.
func (s *State) Names() []string {
	names := make([]string, len(s.snapshots))
	for i, snap := range s.snapshots {
		names[i] = snap.Name()
	}
	return names
}

// Thread returns the snapshot of the named live thread.
func (s *State) Thread(name string) (*bthread.Snapshot, error) {
	for _, snap := range s.snapshots {
		if snap.Name() == name {
			return snap, nil
		}
	}
	return nil, NewUnknownThreadError(name)
}

// LastEvent returns the event that led to this state; false for a root.
func (s *State) LastEvent() (event.Event, bool) {
	if s.last == nil {
		return event.Event{}, false
	}
	return *s.last, true
}

// Iteration returns the number of supersteps from the root.
func (s *State) Iteration() int {
	return s.iteration
}

// Failure returns the failed assertion raised on the way into this state,
// or nil.
func (s *State) Failure() *bthread.Failure {
	return s.failure
}

// Admissible returns this state's admissible events.
func (s *State) Admissible() []event.Event {
	return Admissible(s.snapshots)
}

// Status classifies the state. A state carrying a failure still reports
// the status of its threads; use Violation for failures.
func (s *State) Status() Status {
	if len(s.snapshots) == 0 {
		return StatusTerminated
	}
	if len(s.Admissible()) == 0 {
		return StatusStuck
	}
	return StatusRunning
}

// Violation classifies the state as a failure point. checkDeadlocks
// controls whether a Stuck state is a Deadlock or a normal leaf.
func (s *State) Violation(checkDeadlocks bool) Violation {
	if s.failure != nil {
		return Violation{
			Kind:    FailedAssertion,
			Thread:  s.failure.Thread,
			Message: s.failure.Message,
		}
	}
	if checkDeadlocks && s.Status() == StatusStuck {
		return Violation{Kind: Deadlock}
	}
	return Violation{Kind: NoViolation}
}

// IR returns the canonical form: threads sorted by name, plus the failure.
func (s *State) IR() ir.IRObject {
	sorted := make([]*bthread.Snapshot, len(s.snapshots))
	copy(sorted, s.snapshots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })

	threads := make(ir.IRArray, len(sorted))
	for i, snap := range sorted {
		threads[i] = snap.IR()
	}
	obj := ir.IRObject{"threads": threads}
	if s.failure != nil {
		obj["failure"] = ir.IRObject{
			"thread":  ir.IRString(s.failure.Thread),
			"message": ir.IRString(s.failure.Message),
		}
	}
	return obj
}

// Canonical returns the canonical JSON encoding of IR, computed once.
func (s *State) Canonical() []byte {
	s.once.Do(func() {
		s.canonical = ir.MustMarshalCanonical(s.IR())
	})
	return s.canonical
}

// Digest returns the hex SHA-256 of the canonical form.
func (s *State) Digest() string {
	return ir.Digest(ir.DomainState, s.Canonical())
}

// Equal reports structural equality.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	return bytes.Equal(s.Canonical(), o.Canonical())
}

// Diff returns the names present in next but not prev (added) and in prev
// but not next (removed), each in thread order. A nil prev is empty.
func Diff(prev, next *State) (added, removed []string) {
	if prev == nil {
		return next.Names(), nil
	}
	before := make(map[string]bool, prev.Len())
	for _, n := range prev.Names() {
		before[n] = true
	}
	after := make(map[string]bool, next.Len())
	for _, n := range next.Names() {
		after[n] = true
		if !before[n] {
			added = append(added, n)
		}
	}
	for _, n := range prev.Names() {
		if !after[n] {
			removed = append(removed, n)
		}
	}
	return added, removed
}
