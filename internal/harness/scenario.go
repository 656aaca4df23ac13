package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/strategy"
	"github.com/roach88/bpsync/internal/verifier"
	"github.com/roach88/bpsync/internal/visited"
)

// Scenario modes.
const (
	ModeRun    = "run"
	ModeVerify = "verify"
)

// Scenario defines one executable check of a b-program.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the path of the CUE source. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	Program string `yaml:"program,omitempty"`

	// Source is inline CUE source, used when Program is empty.
	Source string `yaml:"source,omitempty"`

	// Params override the program's declared parameter defaults.
	Params map[string]any `yaml:"params,omitempty"`

	// Mode is "run" (default) or "verify".
	Mode string `yaml:"mode,omitempty"`

	Run      RunConfig      `yaml:"run,omitempty"`
	Verifier VerifierConfig `yaml:"verifier,omitempty"`

	// Expect states the required outcome.
	Expect Expectation `yaml:"expect"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RunConfig configures live runs.
type RunConfig struct {
	Strategy   string         `yaml:"strategy,omitempty"` // simple | random | priority
	Seed       uint64         `yaml:"seed,omitempty"`
	Priorities map[string]int `yaml:"priorities,omitempty"`
	MaxSteps   int            `yaml:"max_steps,omitempty"`
}

// VerifierConfig configures verification. Unset fields keep the verifier
// defaults.
type VerifierConfig struct {
	CheckDeadlocks *bool  `yaml:"check_deadlocks,omitempty"`
	Store          string `yaml:"store,omitempty"` // exact | hash
	MaxTraceLength int    `yaml:"max_trace_length,omitempty"`
	StopAtFirst    *bool  `yaml:"stop_at_first,omitempty"`
}

// Options converts the config into verifier options.
func (c VerifierConfig) Options() (verifier.Options, error) {
	opts := verifier.DefaultOptions()
	if c.CheckDeadlocks != nil {
		opts.CheckDeadlocks = *c.CheckDeadlocks
	}
	kind, err := visited.ParseKind(c.Store)
	if err != nil {
		return opts, err
	}
	opts.Store = kind
	if c.MaxTraceLength > 0 {
		opts.MaxTraceLength = c.MaxTraceLength
	}
	if c.StopAtFirst != nil {
		opts.StopAtFirst = *c.StopAtFirst
	}
	return opts, nil
}

// Expectation is the required outcome. Empty fields are not checked.
type Expectation struct {
	// Status is a run status (terminated, deadlocked, assertion-failed,
	// halted) or a verification outcome (verified, counterexample,
	// inconclusive).
	Status string `yaml:"status"`

	// Violation is none, deadlock or failed-assertion.
	Violation string `yaml:"violation,omitempty"`

	Thread  string `yaml:"thread,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Events is the exact event sequence of the trace. An empty list
	// requires an empty trace; omitting it skips the check.
	Events []string `yaml:"events,omitempty"`

	// MaxStates and MinStates bound the number of states scanned.
	MaxStates int64 `yaml:"max_states,omitempty"`
	MinStates int64 `yaml:"min_states,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an event appears in the trace
	// - "trace_order": Check events appear in order
	// - "trace_count": Check an event appears exactly N times
	// - "final_threads": Check the live threads of the final state
	Type string `yaml:"type"`

	// Event is the event name (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Events is the expected order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Threads are the expected live thread names (final_threads).
	Threads []string `yaml:"threads,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalThreads  = "final_threads"
)

// LoadScenario reads and parses a scenario YAML file. A relative program
// path is resolved against the directory of path.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without resolving paths.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

var (
	runStatuses    = []string{"terminated", "deadlocked", "assertion-failed", "halted"}
	verifyOutcomes = []string{"verified", "counterexample", "inconclusive"}
)

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Program == "" && s.Source == "" {
		return fmt.Errorf("program or source is required")
	}
	if s.Program != "" && s.Source != "" {
		return fmt.Errorf("program and source are mutually exclusive")
	}

	switch s.Mode {
	case "", ModeRun:
		s.Mode = ModeRun
		if _, err := strategy.ByName(s.Run.Strategy, 0, nil); err != nil {
			return fmt.Errorf("run.strategy: %w", err)
		}
		if s.Run.MaxSteps < 0 {
			return fmt.Errorf("run.max_steps must be non-negative")
		}
		if s.Expect.Status != "" && !contains(runStatuses, s.Expect.Status) {
			return fmt.Errorf("expect.status %q is not a run status %v", s.Expect.Status, runStatuses)
		}
	case ModeVerify:
		if _, err := s.Verifier.Options(); err != nil {
			return fmt.Errorf("verifier: %w", err)
		}
		if s.Expect.Status != "" && !contains(verifyOutcomes, s.Expect.Status) {
			return fmt.Errorf("expect.status %q is not a verification outcome %v", s.Expect.Status, verifyOutcomes)
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeRun, ModeVerify, s.Mode)
	}

	if s.Expect.Status == "" {
		return fmt.Errorf("expect.status is required")
	}
	if s.Expect.Violation != "" {
		if _, err := engine.ParseViolationKind(s.Expect.Violation); err != nil {
			return fmt.Errorf("expect.violation: %w", err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalThreads:
		// An empty list asserts that every thread finished.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
