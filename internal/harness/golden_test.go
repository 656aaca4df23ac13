package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/ir"
	"github.com/roach88/bpsync/internal/store"
)

func TestTraceSnapshot_Marshal(t *testing.T) {
	r := NewResult()
	r.Mode = ModeVerify
	r.Program = "p"
	r.Status = "counterexample"
	r.Violation = engine.Violation{Kind: engine.FailedAssertion, Thread: "t", Message: "boom"}
	r.Trace = []TraceEvent{
		{Seq: 1, Event: "a"},
		{Seq: 2, Event: "b", Data: ir.IRObject{"n": ir.IRInt(1)}},
	}
	r.Final = []store.ThreadStatement{{Name: "t", Statement: "request: {} waitFor: {none} block: {none}"}}

	snapshot := TraceSnapshot{ScenarioName: "s", Result: r}
	data, err := snapshot.Marshal()
	require.NoError(t, err)

	assert.Equal(t,
		`{"final":[{"name":"t","statement":"request: {} waitFor: {none} block: {none}"}],`+
			`"mode":"verify","program":"p","scenario_name":"s","status":"counterexample",`+
			`"trace":[{"event":"a","seq":1},{"data":{"n":1},"event":"b","seq":2}],`+
			`"violation":{"kind":"failed-assertion","message":"boom","thread":"t"}}`+"\n",
		string(data))
}

func TestTraceSnapshot_IgnoresRunID(t *testing.T) {
	a, b := NewResult(), NewResult()
	a.RunID, b.RunID = "x-1", "y-7"

	da, err := (&TraceSnapshot{ScenarioName: "s", Result: a}).Marshal()
	require.NoError(t, err)
	db, err := (&TraceSnapshot{ScenarioName: "s", Result: b}).Marshal()
	require.NoError(t, err)
	assert.Equal(t, da, db)
}
