package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E001", "compilation failed", []string{"a.cue:1:1: boom"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccessUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(RunList{}))
	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("E005", "program not found", map[string]string{"path": "x.cue"}))
			assert.Contains(t, buf.String(), "Error [E005]: program not found")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("Loaded %d file(s)", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "Loaded 2 file(s)\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.Equal(t, "Loaded 2 file(s)\n", errOut.String())
}

func TestGetErrWriter_FallsBackToWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: buf}
	assert.Same(t, buf, formatter.GetErrWriter())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"inconclusive", NewExitError(ExitInconclusive, "cut"), ExitInconclusive},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner")), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to record run", cause)

	assert.Equal(t, "failed to record run: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "run halted", NewExitError(ExitInconclusive, "run halted").Error())
}

func TestOutputFormatter_JSONLiftsRunID(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(RunOutput{RunID: "run-7", Program: "ticks", Events: []string{}}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-7", resp.RunID)

	buf.Reset()
	require.NoError(t, formatter.Success(RunList{}))
	var list CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &list))
	assert.Empty(t, list.RunID)
}
