package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/bpsync/internal/bthread"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
)

// machine interprets a ThreadSpec as a b-thread body. Its whole position is
// kept in the snapshot locals, so two snapshots of the same thread are equal
// exactly when they sit at the same step with the same variables.
type machine struct {
	spec  ThreadSpec
	stmts []bthread.Statement
}

func newMachine(t ThreadSpec) *machine {
	m := &machine{spec: t, stmts: make([]bthread.Statement, len(t.Steps))}
	for i, s := range t.Steps {
		if s.Kind != StepSync {
			continue
		}
		var st bthread.Statement
		for _, name := range s.Sync.Request {
			st.Request = append(st.Request, event.New(name))
		}
		st.WaitFor = s.Sync.WaitFor.Set()
		st.Block = s.Sync.Block.Set()
		m.stmts[i] = st
	}
	return m
}

// frame is the interpreter position: step index, completed rounds, hits on
// the current counted sync, and integer variables.
type frame struct {
	pc    int
	round int
	hits  int
	vars  ir.IRObject
}

func (f frame) locals() ir.IRValue {
	return ir.IRObject{
		"pc":    ir.IRInt(f.pc),
		"round": ir.IRInt(f.round),
		"hits":  ir.IRInt(f.hits),
		"vars":  f.vars,
	}
}

func (m *machine) body(c *bthread.Context) bthread.Point {
	return m.advance(c, frame{vars: ir.IRObject{}})
}

// advance runs non-synchronizing steps from f until the next sync step or
// the end of the thread.
func (m *machine) advance(c *bthread.Context, f frame) bthread.Point {
	steps := m.spec.Steps
	for {
		if f.pc >= len(steps) {
			switch {
			case m.spec.Loop:
				f.pc = 0
			case f.round+1 < m.spec.Repeat:
				f.pc = 0
				f.round++
			default:
				return bthread.Done()
			}
			continue
		}

		step := steps[f.pc]
		switch step.Kind {
		case StepSync:
			return bthread.Sync(m.stmts[f.pc], f.locals(), m.resume(f))
		case StepAssert:
			m.check(c, step.Assert, f.vars)
		case StepFail:
			c.Fail(step.Message)
		case StepIncr:
			f.vars = f.vars.With(step.Var, ir.IRInt(f.vars.Int(step.Var)+step.By))
		}
		f.pc++
	}
}

func (m *machine) resume(f frame) bthread.Resume {
	return func(c *bthread.Context, _ event.Event) bthread.Point {
		if f.hits+1 < m.spec.Steps[f.pc].Sync.Count {
			f.hits++
			return bthread.Sync(m.stmts[f.pc], f.locals(), m.resume(f))
		}
		f.hits = 0
		f.pc++
		return m.advance(c, f)
	}
}

func (m *machine) check(c *bthread.Context, a AssertStep, vars ir.IRObject) {
	got := vars.Int(a.Var)
	want := a.Value.Int
	if a.Value.Param != "" {
		want = c.IntParam(a.Value.Param, 0)
	}
	if assertOps[a.Op](got, want) {
		return
	}
	c.Fail(renderMessage(a, got, want, vars))
}

// renderMessage substitutes {name} placeholders with variable values. With
// no message, a description of the failed comparison is used.
func renderMessage(a AssertStep, got, want int64, vars ir.IRObject) string {
	if a.Message == "" {
		return fmt.Sprintf("expected %s %s %d, got %d", a.Var, a.Op, want, got)
	}
	pairs := make([]string, 0, 2*len(vars))
	for _, k := range vars.SortedKeys() {
		pairs = append(pairs, "{"+k+"}", strconv.FormatInt(vars.Int(k), 10))
	}
	return strings.NewReplacer(pairs...).Replace(a.Message)
}
