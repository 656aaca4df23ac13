package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/bpsync/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrEmptySteps      = "E101" // thread has no steps
	ErrLoopWithoutSync = "E102" // loop never synchronizes
	ErrLoopAndRepeat   = "E103" // loop and repeat both set
	ErrInvalidCount    = "E104" // non-positive count or negative repeat
	ErrInvalidOperator = "E105" // unknown assert operator
	ErrUnknownParam    = "E106" // reference to an undeclared parameter
	ErrParamType       = "E107" // parameter has the wrong type for its use
	ErrEmptyName       = "E108" // empty event or variable name
)

// ValidationError represents a semantic error in a thread definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var assertOps = map[string]func(a, b int64) bool{
	"==": func(a, b int64) bool { return a == b },
	"!=": func(a, b int64) bool { return a != b },
	"<":  func(a, b int64) bool { return a < b },
	"<=": func(a, b int64) bool { return a <= b },
	">":  func(a, b int64) bool { return a > b },
	">=": func(a, b int64) bool { return a >= b },
}

// Validate checks every thread of a compiled program against its declared
// parameters. Returns all errors found.
func Validate(spec *ProgramSpec) []ValidationError {
	var errs []ValidationError
	for _, t := range spec.Threads {
		errs = append(errs, validateThread(t, spec.Params)...)
	}
	return errs
}

func validateThread(t ThreadSpec, params ir.IRObject) []ValidationError {
	var errs []ValidationError
	field := "bthreads." + t.Name

	if len(t.Steps) == 0 {
		errs = append(errs, ValidationError{Field: field + ".steps", Message: "at least one step is required", Code: ErrEmptySteps})
	}
	if t.Loop && t.Repeat > 0 {
		errs = append(errs, ValidationError{Field: field, Message: "loop and repeat are mutually exclusive", Code: ErrLoopAndRepeat})
	}
	if t.Loop && len(t.Steps) > 0 && !t.HasSync() {
		errs = append(errs, ValidationError{Field: field + ".loop", Message: "a looping thread must have at least one sync step", Code: ErrLoopWithoutSync})
	}
	if t.Repeat < 0 {
		errs = append(errs, ValidationError{Field: field + ".repeat", Message: fmt.Sprintf("repeat must be >= 0, got %d", t.Repeat), Code: ErrInvalidCount})
	}

	if t.When != "" {
		name := strings.TrimPrefix(t.When, "!")
		p, ok := params[name]
		switch {
		case !ok:
			errs = append(errs, ValidationError{Field: field + ".when", Message: fmt.Sprintf("unknown parameter %q", name), Code: ErrUnknownParam})
		case !isBool(p):
			errs = append(errs, ValidationError{Field: field + ".when", Message: fmt.Sprintf("parameter %q must be a bool", name), Code: ErrParamType})
		}
	}

	for i, s := range t.Steps {
		sf := fmt.Sprintf("%s.steps[%d].%s", field, i, s.Kind)
		switch s.Kind {
		case StepSync:
			errs = append(errs, validateSync(sf, s.Sync)...)
		case StepAssert:
			errs = append(errs, validateAssert(sf, s.Assert, params)...)
		case StepIncr:
			if s.Var == "" {
				errs = append(errs, ValidationError{Field: sf + ".var", Message: "variable name is required", Code: ErrEmptyName})
			}
		}
	}
	return errs
}

func validateSync(field string, s SyncStep) []ValidationError {
	var errs []ValidationError
	if s.Count < 1 {
		errs = append(errs, ValidationError{Field: field + ".count", Message: fmt.Sprintf("count must be >= 1, got %d", s.Count), Code: ErrInvalidCount})
	}
	names := append(append([]string{}, s.Request...), s.WaitFor.Names...)
	names = append(names, s.Block.Names...)
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "event names must be non-empty", Code: ErrEmptyName})
			break
		}
	}
	return errs
}

func validateAssert(field string, a AssertStep, params ir.IRObject) []ValidationError {
	var errs []ValidationError
	if a.Var == "" {
		errs = append(errs, ValidationError{Field: field + ".var", Message: "variable name is required", Code: ErrEmptyName})
	}
	if _, ok := assertOps[a.Op]; !ok {
		errs = append(errs, ValidationError{Field: field + ".op", Message: fmt.Sprintf("unknown operator %q", a.Op), Code: ErrInvalidOperator})
	}
	if a.Value.Param != "" {
		p, ok := params[a.Value.Param]
		switch {
		case !ok:
			errs = append(errs, ValidationError{Field: field + ".value", Message: fmt.Sprintf("unknown parameter %q", a.Value.Param), Code: ErrUnknownParam})
		case !isInt(p):
			errs = append(errs, ValidationError{Field: field + ".value", Message: fmt.Sprintf("parameter %q must be an int", a.Value.Param), Code: ErrParamType})
		}
	}
	return errs
}

func isBool(v ir.IRValue) bool {
	_, ok := v.(ir.IRBool)
	return ok
}

func isInt(v ir.IRValue) bool {
	_, ok := v.(ir.IRInt)
	return ok
}
