package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/ir"
)

// Build turns a compiled spec into a runnable program. overrides replaces or
// adds parameters on top of the declared defaults. Threads whose when
// condition is false are not registered.
func Build(spec *ProgramSpec, overrides ir.IRObject) (*engine.Program, error) {
	params := MergeParams(spec.Params, overrides)
	for name, v := range overrides {
		if def, ok := spec.Params[name]; ok && !sameKind(def, v) {
			return nil, fmt.Errorf("parameter %q: expected %s, got %s", name, kindOf(def), kindOf(v))
		}
	}

	p := engine.NewProgram(spec.Name, params)
	for _, t := range spec.Threads {
		if !enabled(t.When, params) {
			continue
		}
		if err := p.Register(t.Name, newMachine(t).body); err != nil {
			return nil, fmt.Errorf("build %s: %w", spec.Name, err)
		}
	}
	return p, nil
}

// MergeParams returns defaults with overrides applied. Neither input is
// modified.
func MergeParams(defaults, overrides ir.IRObject) ir.IRObject {
	out := ir.IRObject{}
	for k, v := range defaults {
		out[k] = ir.Clone(v)
	}
	for k, v := range overrides {
		out[k] = ir.Clone(v)
	}
	return out
}

func enabled(when string, params ir.IRObject) bool {
	if when == "" {
		return true
	}
	name, negate := strings.CutPrefix(when, "!")
	b, _ := params[name].(ir.IRBool)
	return bool(b) != negate
}

func sameKind(a, b ir.IRValue) bool {
	return kindOf(a) == kindOf(b)
}

func kindOf(v ir.IRValue) string {
	switch v.(type) {
	case ir.IRBool:
		return "bool"
	case ir.IRInt:
		return "int"
	case ir.IRString:
		return "string"
	case ir.IRArray:
		return "list"
	case ir.IRObject:
		return "struct"
	default:
		return "null"
	}
}
