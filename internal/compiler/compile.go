package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/bpsync/internal/ir"
)

// CompileString compiles a b-program from CUE source text. filename is used
// in error positions only.
func CompileString(filename, src string) (*ProgramSpec, []error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile parses a CUE value holding a b-program:
//
//	program: "hot-cold"
//	params: {limit: 3}
//	bthreads: {
//		hot: {repeat: 3, steps: [{sync: {request: ["hot"]}}]}
//		cold: {repeat: 3, steps: [{sync: {request: ["cold"]}}]}
//	}
//
// A thread that fails to compile or validate is reported and left out;
// the remaining threads are kept. A nil spec is returned only when the
// program itself cannot be read.
func Compile(v cue.Value) (*ProgramSpec, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	spec := &ProgramSpec{Params: ir.IRObject{}}

	nameVal := v.LookupPath(cue.ParsePath("program"))
	if !nameVal.Exists() {
		return nil, []error{&CompileError{Field: "program", Message: "program name is required", Pos: v.Pos()}}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	if strings.TrimSpace(name) == "" {
		return nil, []error{&CompileError{Field: "program", Message: "program name must be non-empty", Pos: nameVal.Pos()}}
	}
	spec.Name = name

	if paramsVal := v.LookupPath(cue.ParsePath("params")); paramsVal.Exists() {
		params, err := compileValue(paramsVal, "params")
		if err != nil {
			return nil, []error{err}
		}
		obj, ok := params.(ir.IRObject)
		if !ok {
			return nil, []error{&CompileError{Field: "params", Message: "params must be a struct", Pos: paramsVal.Pos()}}
		}
		spec.Params = obj
	}

	var errs []error
	threadsVal := v.LookupPath(cue.ParsePath("bthreads"))
	if !threadsVal.Exists() {
		return spec, nil
	}
	iter, err := threadsVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		t, err := compileThread(iter.Label(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if verrs := validateThread(t, spec.Params); len(verrs) > 0 {
			for _, ve := range verrs {
				errs = append(errs, ve)
			}
			continue
		}
		spec.Threads = append(spec.Threads, t)
	}

	return spec, errs
}

func compileThread(name string, v cue.Value) (ThreadSpec, error) {
	t := ThreadSpec{Name: name, Pos: v.Pos()}
	field := "bthreads." + name

	if w := v.LookupPath(cue.ParsePath("when")); w.Exists() {
		s, err := w.String()
		if err != nil {
			return t, &CompileError{Field: field + ".when", Message: "when must name a boolean parameter", Pos: w.Pos()}
		}
		t.When = s
	}
	if l := v.LookupPath(cue.ParsePath("loop")); l.Exists() {
		b, err := l.Bool()
		if err != nil {
			return t, &CompileError{Field: field + ".loop", Message: "loop must be a bool", Pos: l.Pos()}
		}
		t.Loop = b
	}
	if r := v.LookupPath(cue.ParsePath("repeat")); r.Exists() {
		n, err := r.Int64()
		if err != nil {
			return t, &CompileError{Field: field + ".repeat", Message: "repeat must be an int", Pos: r.Pos()}
		}
		t.Repeat = int(n)
	}

	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return t, &CompileError{Field: field + ".steps", Message: "steps is required", Pos: v.Pos()}
	}
	list, err := stepsVal.List()
	if err != nil {
		return t, &CompileError{Field: field + ".steps", Message: "steps must be a list", Pos: stepsVal.Pos()}
	}
	for i := 0; list.Next(); i++ {
		step, err := compileStep(fmt.Sprintf("%s.steps[%d]", field, i), list.Value())
		if err != nil {
			return t, err
		}
		t.Steps = append(t.Steps, step)
	}
	return t, nil
}

func compileStep(field string, v cue.Value) (Step, error) {
	var found []string
	for _, k := range stepKindNames {
		if v.LookupPath(cue.ParsePath(k)).Exists() {
			found = append(found, k)
		}
	}
	if len(found) != 1 {
		return Step{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("step must have exactly one of %s, found %d", strings.Join(stepKindNames[:], ", "), len(found)),
			Pos:     v.Pos(),
		}
	}

	body := v.LookupPath(cue.ParsePath(found[0]))
	field += "." + found[0]
	step := Step{Pos: body.Pos()}

	switch found[0] {
	case "sync":
		step.Kind = StepSync
		sync, err := compileSync(field, body)
		if err != nil {
			return step, err
		}
		step.Sync = sync
	case "assert":
		step.Kind = StepAssert
		a, err := compileAssert(field, body)
		if err != nil {
			return step, err
		}
		step.Assert = a
	case "fail":
		step.Kind = StepFail
		msg, err := body.String()
		if err != nil {
			return step, &CompileError{Field: field, Message: "fail takes a message string", Pos: body.Pos()}
		}
		step.Message = msg
	case "incr":
		step.Kind = StepIncr
		step.By = 1
		if body.IncompleteKind() == cue.StringKind {
			s, err := body.String()
			if err != nil {
				return step, formatCUEError(err)
			}
			step.Var = s
			break
		}
		varVal := body.LookupPath(cue.ParsePath("var"))
		s, err := varVal.String()
		if err != nil {
			return step, &CompileError{Field: field + ".var", Message: "incr takes a variable name or {var, by}", Pos: body.Pos()}
		}
		step.Var = s
		if by := body.LookupPath(cue.ParsePath("by")); by.Exists() {
			n, err := by.Int64()
			if err != nil {
				return step, &CompileError{Field: field + ".by", Message: "by must be an int", Pos: by.Pos()}
			}
			step.By = n
		}
	}
	return step, nil
}

func compileSync(field string, v cue.Value) (SyncStep, error) {
	var s SyncStep
	if req := v.LookupPath(cue.ParsePath("request")); req.Exists() {
		names, err := compileNames(field+".request", req)
		if err != nil {
			return s, err
		}
		s.Request = names
	}
	for _, part := range []struct {
		label string
		dst   *SetSpec
	}{{"waitFor", &s.WaitFor}, {"block", &s.Block}} {
		pv := v.LookupPath(cue.ParsePath(part.label))
		if !pv.Exists() {
			continue
		}
		set, err := compileSet(field+"."+part.label, pv)
		if err != nil {
			return s, err
		}
		*part.dst = set
	}
	s.Count = 1
	if c := v.LookupPath(cue.ParsePath("count")); c.Exists() {
		n, err := c.Int64()
		if err != nil {
			return s, &CompileError{Field: field + ".count", Message: "count must be an int", Pos: c.Pos()}
		}
		s.Count = int(n)
	}
	return s, nil
}

// compileSet reads a list of event names, "*", or {not: [...]}.
func compileSet(field string, v cue.Value) (SetSpec, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return SetSpec{}, formatCUEError(err)
		}
		if s != "*" {
			return SetSpec{}, &CompileError{Field: field, Message: fmt.Sprintf("expected \"*\" or a list of event names, got %q", s), Pos: v.Pos()}
		}
		return SetSpec{All: true}, nil
	case cue.ListKind:
		names, err := compileNames(field, v)
		return SetSpec{Names: names}, err
	case cue.StructKind:
		not := v.LookupPath(cue.ParsePath("not"))
		if !not.Exists() {
			return SetSpec{}, &CompileError{Field: field, Message: "event set struct must have a not field", Pos: v.Pos()}
		}
		names, err := compileNames(field+".not", not)
		return SetSpec{Not: true, Names: names}, err
	default:
		return SetSpec{}, &CompileError{Field: field, Message: fmt.Sprintf("unsupported event set kind: %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}

func compileNames(field string, v cue.Value) ([]string, error) {
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "expected a list of event names", Pos: v.Pos()}
	}
	var names []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "event names must be strings", Pos: list.Value().Pos()}
		}
		names = append(names, s)
	}
	return names, nil
}

func compileAssert(field string, v cue.Value) (AssertStep, error) {
	var a AssertStep
	varVal := v.LookupPath(cue.ParsePath("var"))
	s, err := varVal.String()
	if err != nil {
		return a, &CompileError{Field: field + ".var", Message: "var is required", Pos: v.Pos()}
	}
	a.Var = s

	a.Op = "=="
	if op := v.LookupPath(cue.ParsePath("op")); op.Exists() {
		if a.Op, err = op.String(); err != nil {
			return a, &CompileError{Field: field + ".op", Message: "op must be a string", Pos: op.Pos()}
		}
	}

	value := v.LookupPath(cue.ParsePath("value"))
	switch value.IncompleteKind() {
	case cue.IntKind:
		n, err := value.Int64()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Value = Operand{Int: n}
	case cue.StringKind:
		ref, _ := value.String()
		if !strings.HasPrefix(ref, "$") || len(ref) < 2 {
			return a, &CompileError{Field: field + ".value", Message: fmt.Sprintf("parameter reference must look like $name, got %q", ref), Pos: value.Pos()}
		}
		a.Value = Operand{Param: ref[1:]}
	default:
		return a, &CompileError{Field: field + ".value", Message: "value must be an int or a $param reference", Pos: v.Pos()}
	}

	if msg := v.LookupPath(cue.ParsePath("message")); msg.Exists() {
		if a.Message, err = msg.String(); err != nil {
			return a, &CompileError{Field: field + ".message", Message: "message must be a string", Pos: msg.Pos()}
		}
	}
	return a, nil
}

// compileValue converts a concrete CUE value to IR. Floats are rejected.
func compileValue(v cue.Value, field string) (ir.IRValue, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		list, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; list.Next(); i++ {
			item, err := compileValue(list.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			item, err := compileValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = item
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind %v, floats are not allowed", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
