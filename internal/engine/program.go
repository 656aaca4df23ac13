package engine

import (
	"fmt"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/ir"
)

// Program is a named collection of b-thread bodies and the parameters they
// read. A Program is a template: every Engine.Start produces a fresh root
// State from it, so one Program can be run and verified many times.
//
// Parameters are fixed at construction. Threads receive copies and cannot
// change them.
type Program struct {
	name    string
	params  ir.IRObject
	threads []bthread.Spec
}

// NewProgram creates an empty program. params may be nil.
func NewProgram(name string, params ir.IRObject) *Program {
	var p ir.IRObject
	if params != nil {
		p = ir.Clone(params).(ir.IRObject)
	} else {
		p = ir.IRObject{}
	}
	return &Program{name: name, params: p}
}

// Name returns the program name.
func (p *Program) Name() string {
	return p.name
}

// Params returns a copy of the program parameters.
func (p *Program) Params() ir.IRObject {
	return ir.Clone(p.params).(ir.IRObject)
}

// Register adds a b-thread. Names must be unique within the program.
// Threads start in registration order.
func (p *Program) Register(name string, body bthread.Body) error {
	if body == nil {
		return fmt.Errorf("register %q: nil body", name)
	}
	for _, t := range p.threads {
		if t.Name == name {
			return NewDuplicateThreadError(name)
		}
	}
	p.threads = append(p.threads, bthread.Spec{Name: name, Body: body})
	return nil
}

// MustRegister is Register that panics on error. For tests and static
// program setup.
func (p *Program) MustRegister(name string, body bthread.Body) *Program {
	if err := p.Register(name, body); err != nil {
		panic(err)
	}
	return p
}

// Threads returns the registered thread specs in registration order.
func (p *Program) Threads() []bthread.Spec {
	out := make([]bthread.Spec, len(p.threads))
	copy(out, p.threads)
	return out
}
