package cli

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bpsync/internal/compiler"
	"github.com/roach88/bpsync/internal/ir"
)

func loadErrorOf(t *testing.T, err error) *LoadError {
	t.Helper()
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr), "expected LoadError, got %T", err)
	return loadErr
}

func TestLoadProgram_File(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "hotcold.cue", hotColdCUE)

	result, errs := LoadProgram(path, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, "hot-cold", result.Spec.Name)
	assert.Len(t, result.Spec.Threads, 3)
	assert.Equal(t, 1, result.FileCount)
	assert.True(t, result.CUEValue.Exists())
}

// withProgramInput makes src the stdin seen by LoadProgram for one test.
func withProgramInput(t *testing.T, src string) {
	t.Helper()
	prev := programInput
	programInput = strings.NewReader(src)
	t.Cleanup(func() { programInput = prev })
}

func TestLoadProgram_Stdin(t *testing.T) {
	withProgramInput(t, hotColdCUE)

	result, errs := LoadProgram(StdinPath, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, "hot-cold", result.Spec.Name)
	assert.Len(t, result.Spec.Threads, 3)
	assert.Equal(t, 1, result.FileCount)
}

func TestLoadProgram_StdinSyntaxError(t *testing.T) {
	withProgramInput(t, "program: \"broken\n")

	result, errs := LoadProgram(StdinPath, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeLoadFailed, loadErrorOf(t, errs[0]).Code)
}

func TestVerify_ProgramFromStdin(t *testing.T) {
	withProgramInput(t, hotColdCUE)

	cmd := NewVerifyCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, StdinPath)
	require.NoError(t, err)
	assert.Contains(t, out, "hot-cold: verified\n")
}

func TestLoadProgram_DirectoryUnifiesFiles(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "main.cue", `
package split

program: "split"
params: n: 2
`)
	writeProgram(t, dir, "threads.cue", `
package split

bthreads: a: steps: [{sync: {request: ["go"]}}]
`)

	result, errs := LoadProgram(dir, LoadModeFailFast)
	require.Empty(t, errs)

	assert.Equal(t, "split", result.Spec.Name)
	assert.Equal(t, 2, result.FileCount)
	assert.Equal(t, ir.IRInt(2), result.Spec.Params["n"])
	_, ok := result.Spec.Thread("a")
	assert.True(t, ok)
}

func TestLoadProgram_NotFound(t *testing.T) {
	result, errs := LoadProgram(filepath.Join(t.TempDir(), "missing.cue"), LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, loadErrorOf(t, errs[0]).Code)
}

func TestLoadProgram_EmptyDirectory(t *testing.T) {
	_, errs := LoadProgram(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoFiles, loadErrorOf(t, errs[0]).Code)
}

func TestLoadProgram_NotCUE(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "program.json", `{}`)
	_, errs := LoadProgram(path, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoFiles, loadErrorOf(t, errs[0]).Code)
}

func TestLoadProgram_SyntaxError(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "bad.cue", `program: "x" bthreads: {`)
	result, errs := LoadProgram(path, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, []string{ErrCodeLoadFailed, ErrCodeBuildFailed}, loadErrorOf(t, errs[0]).Code)
}

const twoBrokenThreads = `
program: "broken"
bthreads: {
	empty: steps: []
	both: steps: [{fail: "x", incr: "y"}]
	fine: steps: [{sync: {request: ["a"]}}]
}
`

func TestLoadProgram_FailFastStopsAtFirstError(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "broken.cue", twoBrokenThreads)

	result, errs := LoadProgram(path, LoadModeFailFast)
	require.NotNil(t, result)
	assert.Len(t, errs, 1)
}

func TestLoadProgram_CollectAll(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "broken.cue", twoBrokenThreads)

	result, errs := LoadProgram(path, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 2)

	assert.Equal(t, compiler.ErrEmptySteps, loadErrorOf(t, errs[0]).Code)
	assert.Contains(t, errs[0].Error(), "bthreads.empty.steps")

	stepErr := loadErrorOf(t, errs[1])
	assert.Equal(t, ErrCodeThread, stepErr.Code)
	assert.True(t, stepErr.Pos.IsValid())
	assert.Contains(t, stepErr.Error(), "broken.cue:")

	// Broken threads are left out; the rest still compile.
	require.Len(t, result.Spec.Threads, 1)
	assert.Equal(t, "fine", result.Spec.Threads[0].Name)
}

func TestBuildProgram_Params(t *testing.T) {
	path := writeProgram(t, t.TempDir(), "ticks.cue", ticksCUE)

	p, err := buildProgram(path, []string{"limit=7"})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(7), p.Params()["limit"])

	_, err = buildProgram(path, []string{"limit=seven"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "limit"`)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"n=3", "on=true", "name=alice", "empty=", "list=[1,2]"})
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{
		"n":     ir.IRInt(3),
		"on":    ir.IRBool(true),
		"name":  ir.IRString("alice"),
		"empty": ir.IRNull{},
		"list":  ir.IRString("[1,2]"),
	}, params)

	none, err := parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseParams_Errors(t *testing.T) {
	_, err := parseParams([]string{"novalue"})
	assert.ErrorContains(t, err, "expected key=value")

	_, err = parseParams([]string{"=3"})
	assert.ErrorContains(t, err, "expected key=value")

	_, err = parseParams([]string{"ratio=0.5"})
	assert.ErrorContains(t, err, "floats are not allowed")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"program", ErrCodeProgramName},
		{"params", ErrCodeParams},
		{"params.ratio", ErrCodeParams},
		{"bthreads.t.steps[0]", ErrCodeThread},
		{"bthreads", ErrCodeThread},
		{"", ErrCodeGeneric},
		{"programs", ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "a.cue", "x: 1")
	writeProgram(t, dir, "sub/b.cue", "y: 2")
	writeProgram(t, dir, "notes.txt", "z")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue"), filepath.Join(dir, "sub", "b.cue")}, files)
}
