package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bpsync/internal/engine"
)

// seedDatabase records a ticks run and a deadlock verification.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")

	run := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		IDs:         engine.NewFixedGenerator("run-1"),
	})
	_, err := execute(run, "--db", dbPath, writeProgram(t, dir, "ticks.cue", ticksCUE))
	require.Error(t, err)

	verify := newVerifyCommand(&VerifyOptions{
		RootOptions: &RootOptions{Format: "text"},
		IDs:         engine.NewFixedGenerator("verify-1"),
	})
	_, err = execute(verify, "--db", dbPath, writeProgram(t, dir, "deadlock.cue", deadlockCUE))
	require.Error(t, err)

	return dbPath
}

func TestTrace_ListRuns(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "verify-1  verify  deadlock      counterexample (deadlock)")
	assert.Contains(t, out, "run-1  run     ticks         assertion-failed (failed-assertion)")
	assert.Less(t, strings.Index(out, "verify-1"), strings.Index(out, "run-1"), "newest first")
}

func TestTrace_ListLimit(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "--db", dbPath, "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data RunList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "verify-1", resp.Data.Runs[0].ID)
}

func TestTrace_ShowRun(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "--db", dbPath, "--run", "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "run run-1: run of ticks\n")
	assert.Contains(t, out, "status: assertion-failed  violation: failed-assertion in counter: counter saw 4 ticks")
	assert.Contains(t, out, "  4: [tick]\n")
	assert.Contains(t, out, "Final threads:\n  counter: ")
}

func TestTrace_ShowCounterexample(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "--db", dbPath, "--run", "verify-1")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "verify", resp.Data.Run.Mode)
	assert.Equal(t, "deadlock", resp.Data.Run.Violation)
	assert.Empty(t, resp.Data.Timeline)
	assert.Equal(t, []ThreadRow{
		{Name: "blocker", Statement: "request: {} waitFor: name(release) block: name(x)"},
		{Name: "requester", Statement: "request: {[x]} waitFor: {none} block: {none}"},
	}, resp.Data.Final)
}

func TestTrace_EventFilter(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "--db", dbPath, "--run", "run-1", "--event", "nothing")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Data.Timeline)
	assert.Equal(t, map[string]any{"limit": float64(3)}, resp.Data.Run.Params)
}

func TestTrace_RunNotFound(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestTrace_EmptyDatabase(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, "--db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestTrace_ListFilter(t *testing.T) {
	dbPath := seedDatabase(t)

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, "--db", dbPath, "--mode", "run", "--violation", "failed-assertion")
	require.NoError(t, err)

	var resp struct {
		Data RunList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "run-1", resp.Data.Runs[0].ID)

	cmd = NewTraceCommand(&RootOptions{Format: "text"})
	out, err = execute(cmd, "--db", dbPath, "--program", "hot-cold")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}
