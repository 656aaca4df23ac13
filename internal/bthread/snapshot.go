package bthread

import (
	"bytes"
	"fmt"

	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// Body is a b-thread's code up to its first synchronization point.
type Body func(c *Context) Point

// Resume continues a suspended b-thread with the selected event.
type Resume func(c *Context, e event.Event) Point

// Point is what thread code returns: a synchronization point or completion.
type Point struct {
	stmt   Statement
	locals ir.IRValue
	next   Resume
	done   bool
}

// Sync suspends the thread at stmt. locals identifies the thread's state at
// this point. A nil next finishes the thread once it is resumed.
func Sync(stmt Statement, locals ir.IRValue, next Resume) Point {
	return Point{stmt: stmt, locals: locals, next: next}
}

// Done finishes the thread.
func Done() Point {
	return Point{done: true}
}

// Spec names a thread body for registration or spawning.
type Spec struct {
	Name string
	Body Body
}

// Snapshot is an immutable record of a thread paused at a synchronization
// point. Resuming never changes the snapshot; it produces a new one.
type Snapshot struct {
	name   string
	stmt   Statement
	locals ir.IRValue
	next   Resume
	live   bool
}

// NewSnapshot builds a snapshot directly. Used by tests and the compiler.
func NewSnapshot(name string, stmt Statement, locals ir.IRValue, next Resume) *Snapshot {
	return &Snapshot{name: name, stmt: stmt, locals: locals, next: next, live: true}
}

// Name returns the thread name.
func (s *Snapshot) Name() string { return s.name }

// Statement returns the declared request / wait-for / block triple.
func (s *Snapshot) Statement() Statement { return s.stmt }

// Locals returns the thread's state identity at this point (may be nil).
func (s *Snapshot) Locals() ir.IRValue { return s.locals }

// IR returns the canonical form used for equality and hashing. The
// continuation is not part of it.
func (s *Snapshot) IR() ir.IRObject {
	obj := s.stmt.IR()
	obj["name"] = ir.IRString(s.name)
	if s.locals != nil {
		obj["locals"] = s.locals
	}
	return obj
}

// Equal reports structural equality (name, statement, locals).
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return bytes.Equal(ir.MustMarshalCanonical(s.IR()), ir.MustMarshalCanonical(o.IR()))
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("%s: %s", s.name, s.stmt)
}

// Failure is a failed assertion raised by thread code.
type Failure struct {
	Thread  string
	Message string
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Thread, f.Message)
}

// Outcome is the result of running a thread to its next synchronization
// point.
type Outcome struct {
	// Next is the thread's new snapshot, nil if it finished.
	Next *Snapshot

	// Failure is set when the thread failed an assertion.
	Failure *Failure

	// Spawned and Killed are the thread-management effects requested.
	Spawned []Spec
	Killed  []string
}

// Start runs a thread body to its first synchronization point.
func Start(spec Spec, params ir.IRObject) (out Outcome, err error) {
	c := newContext(spec.Name, params)
	defer recoverThread(spec.Name, &err)

	p := spec.Body(c)
	return c.outcome(spec.Name, p), nil
}

// Resume continues the thread with e. Resuming a terminal (zero) snapshot is
// an internal-consistency failure and panics.
func (s *Snapshot) Resume(e event.Event, params ir.IRObject) (out Outcome, err error) {
	if s == nil || !s.live {
		panic(ErrTerminalSnapshot)
	}
	c := newContext(s.name, params)
	if s.next == nil {
		return c.outcome(s.name, Done()), nil
	}
	defer recoverThread(s.name, &err)

	p := s.next(c, e)
	return c.outcome(s.name, p), nil
}

func recoverThread(name string, err *error) {
	if r := recover(); r != nil {
		*err = &ThreadError{Thread: name, Value: r}
	}
}
