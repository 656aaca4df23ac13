package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
	"github.com/roach88/bpsync/internal/strategy"
	"github.com/roach88/bpsync/internal/verifier"
)

const ticksSource = `
program: "ticks"
params: limit: 3
bthreads: {
	ticker: {loop: true, steps: [{sync: {request: ["tick"]}}]}
	counter: {
		loop: true
		steps: [
			{sync: {waitFor: ["tick"]}},
			{incr: "ticks"},
			{assert: {var: "ticks", op: "<=", value: "$limit", message: "counter saw {ticks} ticks"}},
		]
	}
}
`

func build(t *testing.T, src string, overrides ir.IRObject) *engine.Program {
	t.Helper()
	spec, errs := CompileString("test.cue", src)
	require.Empty(t, errs)
	p, err := Build(spec, overrides)
	require.NoError(t, err)
	return p
}

func run(t *testing.T, p *engine.Program) *engine.RunResult {
	t.Helper()
	r := engine.NewRunner(engine.New(p), strategy.Simple{},
		engine.WithRunIDGenerator(engine.NewFixedGenerator("run-1")),
		engine.WithMaxSteps(50))
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	return res
}

func eventNames(events []event.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Name
	}
	return out
}

func TestMachineHotCold(t *testing.T) {
	res := run(t, build(t, hotColdSource, nil))

	assert.Equal(t, engine.RunTerminated, res.Status)
	assert.Equal(t, []string{"hot", "cold", "hot", "cold", "hot", "cold"}, eventNames(res.Events))
}

func TestMachineHotColdVerifies(t *testing.T) {
	res, err := verifier.New().Verify(context.Background(), build(t, hotColdSource, nil))
	require.NoError(t, err)
	assert.True(t, res.IsVerifiedSuccessfully())
}

func TestMachineCounterAssertion(t *testing.T) {
	res := run(t, build(t, ticksSource, nil))

	assert.Equal(t, engine.RunAssertionFailed, res.Status)
	assert.Equal(t, "counter", res.Violation.Thread)
	assert.Equal(t, "counter saw 4 ticks", res.Violation.Message)
	assert.Len(t, res.Events, 4)
}

func TestMachineCounterVerifier(t *testing.T) {
	res, err := verifier.New().Verify(context.Background(), build(t, ticksSource, ir.IRObject{"limit": ir.IRInt(5)}))
	require.NoError(t, err)

	require.True(t, res.IsCounterExampleFound())
	fa := res.FailedAssertion()
	require.NotNil(t, fa)
	assert.Equal(t, "counter", fa.Thread)
	assert.Equal(t, "counter saw 6 ticks", fa.Message)
	assert.Len(t, res.Events(), 6)
}

func TestMachineCountRepeatsSync(t *testing.T) {
	res := run(t, build(t, `
		program: "count"
		bthreads: t: steps: [
			{sync: {request: ["a"], count: 3}},
			{sync: {request: ["b"]}},
		]
	`, nil))
	assert.Equal(t, []string{"a", "a", "a", "b"}, eventNames(res.Events))
	assert.Equal(t, engine.RunTerminated, res.Status)
}

func TestMachineCountedSyncStatesDiffer(t *testing.T) {
	// Three hits of the same declaration are three distinct states.
	res, err := verifier.New().Verify(context.Background(), build(t, `
		program: "count"
		bthreads: t: steps: [{sync: {request: ["a"], count: 3}}]
	`, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.StatesScanned)
}

func TestMachineWhenGatesRegistration(t *testing.T) {
	src := `
		program: "gated"
		params: withBlocker: false
		bthreads: {
			requester: steps: [{sync: {request: ["x"]}}]
			blocker: {when: "withBlocker", loop: true, steps: [{sync: {block: "*"}}]}
			unblocked: {when: "!withBlocker", steps: [{sync: {waitFor: ["x"]}}]}
		}
	`
	free := build(t, src, nil)
	assert.Equal(t, []string{"requester", "unblocked"}, specNames(free))
	assert.Equal(t, engine.RunTerminated, run(t, free).Status)

	blocked := build(t, src, ir.IRObject{"withBlocker": ir.IRBool(true)})
	assert.Equal(t, []string{"requester", "blocker"}, specNames(blocked))
	assert.Equal(t, engine.RunDeadlocked, run(t, blocked).Status)
}

func TestMachineNotSetBlock(t *testing.T) {
	res := run(t, build(t, `
		program: "not"
		bthreads: {
			r: steps: [{sync: {request: ["a", "b"]}}]
			only: steps: [{sync: {block: {not: ["b"]}, waitFor: ["b"]}}]
		}
	`, nil))
	assert.Equal(t, []string{"b"}, eventNames(res.Events))
	assert.Equal(t, engine.RunTerminated, res.Status)
}

func TestMachineFailStep(t *testing.T) {
	res := run(t, build(t, `
		program: "fail"
		bthreads: t: steps: [
			{sync: {request: ["go"]}},
			{fail: "reached the end"},
		]
	`, nil))
	assert.Equal(t, engine.RunAssertionFailed, res.Status)
	assert.Equal(t, "reached the end", res.Violation.Message)
}

func TestMachineDefaultAssertMessage(t *testing.T) {
	res := run(t, build(t, `
		program: "msg"
		bthreads: t: steps: [
			{sync: {request: ["go"]}},
			{incr: {var: "n", by: 2}},
			{assert: {var: "n", op: "==", value: 3}},
		]
	`, nil))
	assert.Equal(t, "expected n == 3, got 2", res.Violation.Message)
}

func TestMachineRepeatIsBounded(t *testing.T) {
	res := run(t, build(t, `
		program: "rep"
		bthreads: t: {repeat: 2, steps: [{sync: {request: ["a"]}}, {sync: {request: ["b"]}}]}
	`, nil))
	assert.Equal(t, []string{"a", "b", "a", "b"}, eventNames(res.Events))
}

func TestBuildRejectsMistypedOverride(t *testing.T) {
	spec, errs := CompileString("ticks.cue", ticksSource)
	require.Empty(t, errs)

	_, err := Build(spec, ir.IRObject{"limit": ir.IRString("three")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "limit": expected int, got string`)
}

func TestMergeParamsDoesNotModifyInputs(t *testing.T) {
	defaults := ir.IRObject{"a": ir.IRInt(1)}
	overrides := ir.IRObject{"b": ir.IRInt(2)}
	merged := MergeParams(defaults, overrides)

	assert.Equal(t, ir.IRObject{"a": ir.IRInt(1), "b": ir.IRInt(2)}, merged)
	assert.Len(t, defaults, 1)
	assert.Len(t, overrides, 1)
}

func specNames(p *engine.Program) []string {
	var out []string
	for _, s := range p.Threads() {
		out = append(out, s.Name)
	}
	return out
}
