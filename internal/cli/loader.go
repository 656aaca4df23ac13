package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bpsync/internal/compiler"
	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/ir"
)

// LoadMode controls how errors are handled during program loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains a loaded b-program source.
type LoadResult struct {
	Spec      *compiler.ProgramSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files loaded
}

// LoadError represents an error that occurred during program loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StdinPath is the program path that reads CUE source from stdin.
const StdinPath = "-"

// programInput is read when the program path is StdinPath. Tests replace it.
var programInput io.Reader = os.Stdin

// LoadProgram loads and compiles a b-program from a .cue file, from a
// directory holding one CUE package, or from stdin when path is StdinPath.
// In LoadModeFailFast only the first compile error is returned; otherwise all
// of them are. The result is nil only when nothing could be compiled.
func LoadProgram(path string, mode LoadMode) (*LoadResult, []error) {
	var (
		cfg   *load.Config
		args  []string
		count = 1
	)
	if path == StdinPath {
		cfg = &load.Config{Stdin: programInput}
		args = []string{StdinPath}
	} else {
		c, a, n, err := diskSource(path)
		if err != nil {
			return nil, []error{err}
		}
		cfg, args, count = c, a, n
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	spec, compileErrs := compiler.Compile(value)
	var errs []error
	for _, err := range compileErrs {
		errs = append(errs, convertCompileError(err))
		if mode == LoadModeFailFast {
			break
		}
	}
	if spec == nil {
		return nil, errs
	}
	return &LoadResult{Spec: spec, CUEValue: value, FileCount: count}, errs
}

// diskSource resolves a file or directory path to a load configuration.
func diskSource(path string) (*load.Config, []string, int, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %s", path)}
	}
	if err != nil {
		return nil, nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program: %v", err)}
	}

	if info.IsDir() {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, nil, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, nil, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		return &load.Config{Dir: path}, []string{"."}, len(files), nil
	}
	if filepath.Ext(path) != ".cue" {
		return nil, nil, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}
	}
	return &load.Config{Dir: filepath.Dir(path)}, []string{filepath.Base(path)}, 1, nil
}

// buildProgram loads path fail-fast and builds it with the -P overrides.
func buildProgram(path string, params []string) (*engine.Program, error) {
	result, errs := LoadProgram(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	overrides, err := parseParams(params)
	if err != nil {
		return nil, err
	}
	return compiler.Build(result.Spec, overrides)
}

// parseParams parses key=value overrides. Values are read as YAML scalars:
// true/false become bools, integers ints, anything else a string.
func parseParams(pairs []string) (ir.IRObject, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := ir.IRObject{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q: expected key=value", pair)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if _, isList := v.([]any); isList {
			v = raw
		}
		if _, isMap := v.(map[string]any); isMap {
			v = raw
		}
		val, err := ir.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fieldMessage(compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return &LoadError{
			Code:    validationErr.Code,
			Message: fieldMessage(validationErr.Field, validationErr.Message),
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

func fieldMessage(field, message string) string {
	if field == "" {
		return message
	}
	return field + ": " + message
}

// Error code constants - unified across all CLI commands.
// Thread validation codes (E101-E108) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeProgramName = "E110" // Missing or empty program name
	ErrCodeParams      = "E111" // Malformed params block
	ErrCodeThread      = "E112" // Malformed thread or step
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "program":
		return ErrCodeProgramName
	case field == "params" || strings.HasPrefix(field, "params."):
		return ErrCodeParams
	case strings.HasPrefix(field, "bthreads"):
		return ErrCodeThread
	default:
		return ErrCodeGeneric
	}
}
