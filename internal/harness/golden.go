package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bpsync/internal/ir"
)

// TraceSnapshot captures what a scenario produced, for golden comparison.
// Durations and run ids are left out so snapshots are stable.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// IR converts the snapshot to its canonical form.
func (s *TraceSnapshot) IR() ir.IRObject {
	events := make(ir.IRArray, len(s.Result.Trace))
	for i, e := range s.Result.Trace {
		obj := ir.IRObject{"seq": ir.IRInt(e.Seq), "event": ir.IRString(e.Event)}
		if e.Data != nil {
			obj["data"] = e.Data
		}
		events[i] = obj
	}

	final := make(ir.IRArray, len(s.Result.Final))
	for i, t := range s.Result.Final {
		final[i] = ir.IRObject{"name": ir.IRString(t.Name), "statement": ir.IRString(t.Statement)}
	}

	v := s.Result.Violation
	violation := ir.IRObject{"kind": ir.IRString(v.Kind.String())}
	if v.Thread != "" {
		violation["thread"] = ir.IRString(v.Thread)
	}
	if v.Message != "" {
		violation["message"] = ir.IRString(v.Message)
	}

	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"program":       ir.IRString(s.Result.Program),
		"mode":          ir.IRString(s.Result.Mode),
		"status":        ir.IRString(s.Result.Status),
		"violation":     violation,
		"trace":         events,
		"final":         final,
	}
}

// Marshal returns the canonical JSON of the snapshot plus a trailing
// newline.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	data, err := ir.MarshalCanonical(s.IR())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
