package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// ============================================================================
// Scenario files
// ============================================================================

func TestScenarios(t *testing.T) {
	names := []string{
		"hotcold_run",
		"hotcold_verify",
		"ticks_counterexample",
		"ticks_override",
		"deadlock_verify",
		"deadlock_run",
		"options_clean",
		"options_deadlock",
		"options_assertion",
		"options_deadlock_ignored",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, name+"-1", result.RunID)
		})
	}
}

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"hotcold_run", "deadlock_verify"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

// ============================================================================
// Run mode
// ============================================================================

func TestRun_ReadsTraceFromLog(t *testing.T) {
	result, err := Run(loadScenario(t, "hotcold_run"))
	require.NoError(t, err)

	assert.Equal(t, ModeRun, result.Mode)
	assert.Equal(t, "hot-cold", result.Program)
	assert.Equal(t, "terminated", result.Status)
	require.Len(t, result.Trace, 6)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, int64(6), result.Trace[5].Seq)
	assert.Empty(t, result.Final)
	assert.Equal(t, int64(7), result.StatesScanned)
}

func TestRun_FinalThreads(t *testing.T) {
	result, err := Run(loadScenario(t, "deadlock_run"))
	require.NoError(t, err)

	assert.Equal(t, []string{"blocker", "requester"}, result.FinalThreads())
	assert.Equal(t, "request: {[x]} waitFor: {none} block: {none}", result.Final[1].Statement)
}

func TestRun_InlineSource(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: inline
source: |
  program: "one"
  bthreads: only: steps: [{sync: {request: ["go"]}}]
expect:
  status: terminated
  events: [go]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "one", result.Program)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s := loadScenario(t, "hotcold_run")
	s.Expect.Status = "deadlocked"
	s.Expect.Events = []string{"cold"}
	s.Assertions = nil

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"status: expected deadlocked, got terminated",
		"events: expected [cold], got [hot cold hot cold hot cold]",
	}, result.Errors)
}

func TestRun_MaxSteps(t *testing.T) {
	s := loadScenario(t, "ticks_override")
	s.Params = map[string]any{"limit": 100}
	s.Run.MaxSteps = 10
	s.Expect = Expectation{Status: "halted"}
	s.Assertions = []Assertion{{Type: AssertTraceCount, Event: "tick", Count: 10}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

// ============================================================================
// Verify mode
// ============================================================================

func TestVerify_Counterexample(t *testing.T) {
	result, err := Run(loadScenario(t, "ticks_counterexample"))
	require.NoError(t, err)

	assert.Equal(t, ModeVerify, result.Mode)
	assert.Equal(t, "counterexample", result.Status)
	assert.Equal(t, "counter", result.Violation.Thread)
	assert.Equal(t, []string{"tick", "tick", "tick", "tick"}, result.EventNames())
	assert.Equal(t, []string{"counter", "ticker"}, result.FinalThreads())
}

func TestVerify_TraceLengthGuard(t *testing.T) {
	s := loadScenario(t, "ticks_counterexample")
	s.Params = map[string]any{"limit": 100}
	s.Verifier.MaxTraceLength = 5
	s.Expect = Expectation{Status: "inconclusive", Violation: "none"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

// ============================================================================
// Loading
// ============================================================================

func TestLoadProgram_CompileError(t *testing.T) {
	s := &Scenario{
		Name:   "broken",
		Source: `program: "broken", bthreads: t: steps: [{fail: "x", incr: "y"}]`,
	}
	_, err := LoadProgram(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")
}

func TestLoadProgram_MissingFile(t *testing.T) {
	_, err := LoadProgram(&Scenario{Name: "missing", Program: "testdata/programs/nope.cue"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read program")
}

func TestLoadProgram_BadOverride(t *testing.T) {
	s := loadScenario(t, "ticks_override")
	s.Params = map[string]any{"limit": "five"}

	_, err := LoadProgram(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "limit"`)
}
