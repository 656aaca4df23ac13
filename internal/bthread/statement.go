package bthread

import (
	"fmt"
	"strings"

	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// Statement is the request / wait-for / block triple declared at a
// synchronization point. Request is enumerable; WaitFor and Block are
// membership-only. Nil sets mean None.
type Statement struct {
	Request []event.Event
	WaitFor event.Set
	Block   event.Set
}

// Request builds a statement that requests the given events.
func Request(events ...event.Event) Statement {
	return Statement{Request: events}
}

// WaitFor builds a statement that waits for events in s.
func WaitFor(s event.Set) Statement {
	return Statement{WaitFor: s}
}

// Block builds a statement that blocks events in s and waits for nothing.
func Block(s event.Set) Statement {
	return Statement{Block: s}
}

// Blocking returns a copy of st that also blocks s.
func (st Statement) Blocking(s event.Set) Statement {
	if st.Block == nil {
		st.Block = s
	} else {
		st.Block = event.AnyOf(st.Block, s)
	}
	return st
}

// Waiting returns a copy of st that also waits for s.
func (st Statement) Waiting(s event.Set) Statement {
	if st.WaitFor == nil {
		st.WaitFor = s
	} else {
		st.WaitFor = event.AnyOf(st.WaitFor, s)
	}
	return st
}

// Requests reports whether e is among the requested events.
func (st Statement) Requests(e event.Event) bool {
	for _, r := range st.Request {
		if r.Equal(e) {
			return true
		}
	}
	return false
}

// Waits reports whether e is in the wait-for set.
func (st Statement) Waits(e event.Event) bool {
	return st.WaitFor != nil && event.Includes(st.WaitFor, e)
}

// Blocks reports whether e is in the block set.
func (st Statement) Blocks(e event.Event) bool {
	return st.Block != nil && event.Includes(st.Block, e)
}

// Selects reports whether a thread declaring st is resumed when e fires:
// e is requested or waited for.
func (st Statement) Selects(e event.Event) bool {
	return st.Requests(e) || st.Waits(e)
}

// IR returns the canonical form of the statement. Sets are encoded with
// event.SetIR, so statements differing in any set member never collide.
func (st Statement) IR() ir.IRObject {
	reqs := make(ir.IRArray, len(st.Request))
	for i, r := range st.Request {
		reqs[i] = r.IR()
	}
	return ir.IRObject{
		"request": reqs,
		"waitFor": event.SetIR(st.WaitFor),
		"block":   event.SetIR(st.Block),
	}
}

// String renders the statement for counterexample output.
func (st Statement) String() string {
	reqs := make([]string, len(st.Request))
	for i, r := range st.Request {
		reqs[i] = r.String()
	}
	return fmt.Sprintf("request: {%s} waitFor: %s block: %s",
		strings.Join(reqs, ","),
		event.OrNone(st.WaitFor),
		event.OrNone(st.Block))
}
