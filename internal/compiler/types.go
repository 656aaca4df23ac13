package compiler

import (
	"cuelang.org/go/cue/token"

	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// ProgramSpec is a compiled b-program source: a name, parameter defaults and
// the thread definitions in declaration order.
type ProgramSpec struct {
	Name    string
	Params  ir.IRObject
	Threads []ThreadSpec
}

// Thread returns the thread definition with the given name.
func (p *ProgramSpec) Thread(name string) (ThreadSpec, bool) {
	for _, t := range p.Threads {
		if t.Name == name {
			return t, true
		}
	}
	return ThreadSpec{}, false
}

// ThreadSpec describes one b-thread as a list of steps.
//
// A thread runs its steps once. Loop restarts them forever; Repeat runs them
// the given number of times. When names a boolean parameter that gates
// registration; a leading "!" negates it.
type ThreadSpec struct {
	Name   string
	When   string
	Loop   bool
	Repeat int
	Steps  []Step
	Pos    token.Pos
}

// HasSync reports whether any step synchronizes.
func (t ThreadSpec) HasSync() bool {
	for _, s := range t.Steps {
		if s.Kind == StepSync {
			return true
		}
	}
	return false
}

// StepKind identifies the kind of a step.
type StepKind int

const (
	StepSync StepKind = iota
	StepAssert
	StepFail
	StepIncr
)

var stepKindNames = [...]string{"sync", "assert", "fail", "incr"}

func (k StepKind) String() string {
	if int(k) < len(stepKindNames) {
		return stepKindNames[k]
	}
	return "unknown"
}

// Step is one instruction of a thread. Only the fields of its Kind are set.
type Step struct {
	Kind    StepKind
	Sync    SyncStep
	Assert  AssertStep
	Message string // fail
	Var     string // incr
	By      int64  // incr
	Pos     token.Pos
}

// SyncStep declares a synchronization point. Count > 1 repeats the same
// declaration that many times before moving on.
type SyncStep struct {
	Request []string
	WaitFor SetSpec
	Block   SetSpec
	Count   int
}

// SetSpec is the source form of an event set: a list of names, every event,
// or every event except the listed names. The zero value is the empty set.
type SetSpec struct {
	All   bool
	Not   bool
	Names []string
}

// Set builds the event set.
func (s SetSpec) Set() event.Set {
	switch {
	case s.All:
		return event.All
	case s.Not:
		return event.Not(event.ByName(s.Names...))
	case len(s.Names) == 0:
		return event.None
	default:
		return event.ByName(s.Names...)
	}
}

// AssertStep compares a thread variable against an operand.
type AssertStep struct {
	Var     string
	Op      string
	Value   Operand
	Message string
}

// Operand is an integer literal or a reference to an integer parameter.
type Operand struct {
	Int   int64
	Param string
}

// IR returns the canonical form of the compiled program, as printed by
// `bpsync compile`. Sets are rendered by their String form.
func (p *ProgramSpec) IR() ir.IRObject {
	threads := make(ir.IRArray, len(p.Threads))
	for i, t := range p.Threads {
		threads[i] = t.IR()
	}
	params := p.Params
	if params == nil {
		params = ir.IRObject{}
	}
	return ir.IRObject{
		"program":  ir.IRString(p.Name),
		"params":   params,
		"bthreads": threads,
	}
}

// IR returns the canonical form of the thread.
func (t ThreadSpec) IR() ir.IRObject {
	steps := make(ir.IRArray, len(t.Steps))
	for i, s := range t.Steps {
		steps[i] = s.IR()
	}
	obj := ir.IRObject{
		"name":  ir.IRString(t.Name),
		"steps": steps,
	}
	if t.When != "" {
		obj["when"] = ir.IRString(t.When)
	}
	if t.Loop {
		obj["loop"] = ir.IRBool(true)
	}
	if t.Repeat > 0 {
		obj["repeat"] = ir.IRInt(t.Repeat)
	}
	return obj
}

// IR returns the canonical form of the step, keyed by its kind.
func (s Step) IR() ir.IRObject {
	var body ir.IRValue
	switch s.Kind {
	case StepSync:
		reqs := make(ir.IRArray, len(s.Sync.Request))
		for i, r := range s.Sync.Request {
			reqs[i] = ir.IRString(r)
		}
		body = ir.IRObject{
			"request": reqs,
			"waitFor": ir.IRString(s.Sync.WaitFor.Set().String()),
			"block":   ir.IRString(s.Sync.Block.Set().String()),
			"count":   ir.IRInt(s.Sync.Count),
		}
	case StepAssert:
		a := ir.IRObject{
			"var": ir.IRString(s.Assert.Var),
			"op":  ir.IRString(s.Assert.Op),
		}
		if s.Assert.Value.Param != "" {
			a["value"] = ir.IRString("$" + s.Assert.Value.Param)
		} else {
			a["value"] = ir.IRInt(s.Assert.Value.Int)
		}
		if s.Assert.Message != "" {
			a["message"] = ir.IRString(s.Assert.Message)
		}
		body = a
	case StepFail:
		body = ir.IRString(s.Message)
	case StepIncr:
		body = ir.IRObject{"var": ir.IRString(s.Var), "by": ir.IRInt(s.By)}
	}
	return ir.IRObject{s.Kind.String(): body}
}
