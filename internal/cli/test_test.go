package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../harness/testdata/scenarios"

func TestTestCommand_Scenarios(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, scenarioDir)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ hotcold_run\n")
	assert.Contains(t, out, "✓ deadlock_verify\n")
	assert.Contains(t, out, "Test Summary: 10 passed, 0 failed, 10 total")
}

func TestTestCommand_Filter(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, scenarioDir, "--filter", "options_*")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 4, resp.Data.Passed)
}

func TestTestCommand_NoMatches(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, scenarioDir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	golden := t.TempDir()

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, filepath.Join(scenarioDir, "deadlock_run.yaml"), "--golden", golden, "--update")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(golden, "deadlock_run.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"deadlocked"`)
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	golden := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(golden, "deadlock_run.golden"), []byte("{}\n"), 0o644))

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, filepath.Join(scenarioDir, "deadlock_run.yaml"), "--golden", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ deadlock_run")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "programs/deadlock.cue", deadlockCUE)
	writeProgram(t, dir, "scenarios/wrong.yaml", `
name: wrong
program: ../programs/deadlock.cue
mode: run
expect:
  status: terminated
`)

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, filepath.Join(dir, "scenarios"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "status: expected terminated, got deadlocked")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_MissingPath(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", "golden", "a.golden"),
		goldenFilePath("", filepath.Join("testdata", "scenarios", "a.yaml"), "a"))
	assert.Equal(t, filepath.Join("out", "a.golden"),
		goldenFilePath("out", filepath.Join("testdata", "scenarios", "a.yaml"), "a"))
}
