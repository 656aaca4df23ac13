package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/roach88/bpsync/internal/compiler"
	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/event"
	"github.com/roach88/bpsync/internal/ir"
	"github.com/roach88/bpsync/internal/store"
	"github.com/roach88/bpsync/internal/strategy"
	"github.com/roach88/bpsync/internal/testutil"
	"github.com/roach88/bpsync/internal/verifier"
)

// Harness is the scenario execution engine. It runs scenarios with
// deterministic run ids against an in-memory run log.
type Harness struct {
	store    *store.Store
	ids      *testutil.SequentialIDs
	logger   *slog.Logger
	recorder *testutil.Recorder
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile the CUE program and apply parameter overrides
// 2. Run it live or verify it, per the scenario mode
// 3. Record the run in the log and read the trace back
// 4. Check the expectation and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		ids:      testutil.NewSequentialIDs(scenario.Name),
		logger:   testutil.DiscardLogger(), // Suppress logs in tests
		recorder: testutil.NewRecorder(),
	}

	p, err := LoadProgram(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Mode = scenario.Mode
	result.Program = p.Name()

	var runID string
	switch scenario.Mode {
	case ModeVerify:
		runID, err = h.verify(ctx, scenario, p, result)
	default:
		runID, err = h.run(ctx, scenario, p, result)
	}
	if err != nil {
		return nil, err
	}
	result.RunID = runID

	if err := h.readTrace(ctx, runID, result); err != nil {
		return nil, err
	}
	if scenario.Mode == ModeRun {
		if seen := eventNames(h.recorder.Selected()); !slices.Equal(seen, result.EventNames()) {
			result.AddError(fmt.Sprintf("run log disagrees with listener: logged %v, selected %v", result.EventNames(), seen))
		}
	}

	for _, msg := range checkExpectation(scenario.Expect, result) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// LoadProgram compiles the scenario's program and applies its parameter
// overrides. Any compile error fails the load.
func LoadProgram(scenario *Scenario) (*engine.Program, error) {
	src, filename := scenario.Source, scenario.Name+".cue"
	if scenario.Program != "" {
		data, err := os.ReadFile(scenario.Program)
		if err != nil {
			return nil, fmt.Errorf("failed to read program: %w", err)
		}
		src, filename = string(data), scenario.Program
	}

	spec, errs := compiler.CompileString(filename, src)
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile %s: %w", filename, errors.Join(errs...))
	}

	var overrides ir.IRObject
	if len(scenario.Params) > 0 {
		v, err := ir.FromGo(scenario.Params)
		if err != nil {
			return nil, fmt.Errorf("params: %w", err)
		}
		overrides = v.(ir.IRObject)
	}
	return compiler.Build(spec, overrides)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, p *engine.Program, result *Result) (string, error) {
	strat, err := strategy.ByName(scenario.Run.Strategy, scenario.Run.Seed, scenario.Run.Priorities)
	if err != nil {
		return "", err
	}
	maxSteps := scenario.Run.MaxSteps
	if maxSteps == 0 {
		maxSteps = engine.DefaultMaxSteps
	}

	runner := engine.NewRunner(engine.New(p, engine.WithLogger(h.logger)), strat,
		engine.WithRunIDGenerator(h.ids),
		engine.WithMaxSteps(maxSteps),
		engine.WithRunLogger(h.logger),
		engine.WithListener(h.recorder),
	)
	start := time.Now()
	res, err := runner.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", p.Name(), err)
	}

	result.Status = res.Status.String()
	result.Violation = res.Violation
	result.StatesScanned = int64(len(res.Events) + 1)

	run, steps := store.RecordRun(store.ModeRun, p, res, time.Since(start))
	if _, err := h.store.WriteRun(ctx, run, steps); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return res.RunID, nil
}

func (h *Harness) verify(ctx context.Context, scenario *Scenario, p *engine.Program, result *Result) (string, error) {
	opts, err := scenario.Verifier.Options()
	if err != nil {
		return "", err
	}

	v := verifier.New(verifier.WithOptions(opts), verifier.WithLogger(h.logger))
	res, err := v.Verify(ctx, p)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", p.Name(), err)
	}

	result.Status = res.Outcome().String()
	result.Violation = res.Violation
	result.StatesScanned = res.StatesScanned

	id := h.ids.Generate()
	run, steps := store.RecordVerification(id, p, res)
	if _, err := h.store.WriteRun(ctx, run, steps); err != nil {
		return "", fmt.Errorf("record verification: %w", err)
	}
	return id, nil
}

// readTrace fills the trace and final threads from the run log, so that
// what the harness checks is what `bpsync trace` would show.
func (h *Harness) readTrace(ctx context.Context, runID string, result *Result) error {
	trace, err := h.store.LoadTrace(ctx, runID)
	if err != nil {
		return err
	}
	for i, e := range trace.Events() {
		te := TraceEvent{Seq: int64(i + 1), Event: e.Name}
		if e.HasData() {
			te.Data = e.Data
		}
		result.Trace = append(result.Trace, te)
	}
	if final, ok := trace.Final(); ok {
		result.Final = final.Threads
	}
	return nil
}

func eventNames(events []event.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

func checkExpectation(want Expectation, got *Result) []string {
	var errs []string
	if want.Status != got.Status {
		errs = append(errs, fmt.Sprintf("status: expected %s, got %s", want.Status, got.Status))
	}
	if want.Violation != "" && want.Violation != got.Violation.Kind.String() {
		errs = append(errs, fmt.Sprintf("violation: expected %s, got %s", want.Violation, got.Violation.Kind))
	}
	if want.Thread != "" && want.Thread != got.Violation.Thread {
		errs = append(errs, fmt.Sprintf("thread: expected %q, got %q", want.Thread, got.Violation.Thread))
	}
	if want.Message != "" && want.Message != got.Violation.Message {
		errs = append(errs, fmt.Sprintf("message: expected %q, got %q", want.Message, got.Violation.Message))
	}
	if want.Events != nil && !slices.Equal(want.Events, got.EventNames()) {
		errs = append(errs, fmt.Sprintf("events: expected %v, got %v", want.Events, got.EventNames()))
	}
	if want.MaxStates > 0 && got.StatesScanned > want.MaxStates {
		errs = append(errs, fmt.Sprintf("states: expected at most %d, scanned %d", want.MaxStates, got.StatesScanned))
	}
	if want.MinStates > 0 && got.StatesScanned < want.MinStates {
		errs = append(errs, fmt.Sprintf("states: expected at least %d, scanned %d", want.MinStates, got.StatesScanned))
	}
	return errs
}
