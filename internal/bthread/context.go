package bthread

import (
	"fmt"

	"github.com/roach88/bpsync/internal/ir"
)

// Context is handed to thread code for the duration of one step. It gives
// read-only access to program parameters and collects effects.
//
// A Context must not be retained past the step it was passed to.
type Context struct {
	thread  string
	params  ir.IRObject
	failure *Failure
	spawned []Spec
	killed  []string
}

func newContext(thread string, params ir.IRObject) *Context {
	return &Context{thread: thread, params: params}
}

// Name returns the running thread's name.
func (c *Context) Name() string {
	return c.thread
}

// Param returns a copy of a program parameter.
func (c *Context) Param(name string) (ir.IRValue, bool) {
	v, ok := c.params[name]
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// BoolParam returns a boolean parameter, false when absent or not a bool.
func (c *Context) BoolParam(name string) bool {
	b, _ := c.params[name].(ir.IRBool)
	return bool(b)
}

// IntParam returns an integer parameter, or def when absent.
func (c *Context) IntParam(name string, def int64) int64 {
	if n, ok := c.params[name].(ir.IRInt); ok {
		return int64(n)
	}
	return def
}

// Assert fails the thread with the formatted message when cond is false.
// Returns cond. Only the first failure in a step is kept.
func (c *Context) Assert(cond bool, format string, args ...any) bool {
	if !cond {
		c.Fail(fmt.Sprintf(format, args...))
	}
	return cond
}

// Fail records a failed assertion.
func (c *Context) Fail(message string) {
	if c.failure == nil {
		c.failure = &Failure{Thread: c.thread, Message: message}
	}
}

// Spawn adds a new thread. It runs to its first synchronization point in the
// current superstep and participates from the next one.
func (c *Context) Spawn(name string, body Body) {
	c.spawned = append(c.spawned, Spec{Name: name, Body: body})
}

// Kill removes the named thread at the start of the next superstep.
func (c *Context) Kill(name string) {
	c.killed = append(c.killed, name)
}

func (c *Context) outcome(name string, p Point) Outcome {
	out := Outcome{
		Failure: c.failure,
		Spawned: c.spawned,
		Killed:  c.killed,
	}
	if !p.done {
		out.Next = &Snapshot{name: name, stmt: p.stmt, locals: p.locals, next: p.next, live: true}
	}
	return out
}
