package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bpsync/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Golden string // golden directory override
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios>",
		Short: "Run scenario files",
		Long: `Run YAML scenarios against their b-programs.

<scenarios> is a scenario file or a directory searched for .yaml and .yml
files. Each scenario runs or verifies its program and checks the expected
outcome and assertions. When a golden file exists for a scenario its trace
must match it byte for byte. Golden files live in a "golden" directory next
to the scenarios directory, named after the scenario.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  bpsync test ./testdata/scenarios
  bpsync test ./testdata/scenarios --filter "ticks_*"
  bpsync test ./testdata/scenarios --update
  bpsync test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory (default: ../golden from each scenario)")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	files, err := harness.FindScenarios(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	for _, file := range files {
		sr := runScenario(cmd.Context(), opts, file)
		if opts.Format != "json" {
			printScenario(cmd, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// filterScenarios keeps files whose base name, without extension, matches
// the glob pattern.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		matched, err := filepath.Match(pattern, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// runScenario executes a single scenario and checks its golden file.
func runScenario(ctx context.Context, opts *TestOptions, file string) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), Path: file}
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.RunContext(ctx, scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}

	goldenPath := goldenFilePath(opts.Golden, file, scenario.Name)
	snapshot := harness.TraceSnapshot{ScenarioName: scenario.Name, Result: result}
	data, err := snapshot.Marshal()
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to marshal trace: %v", err)}
		return sr
	}

	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, data); err != nil {
			sr.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return sr
		}
	default:
		want, err := os.ReadFile(goldenPath)
		if err == nil && !bytes.Equal(want, data) {
			result.AddError("trace does not match golden file " + goldenPath + " (run with --update to regenerate)")
		} else if err != nil && !os.IsNotExist(err) {
			result.AddError(fmt.Sprintf("failed to read golden file: %v", err))
		}
	}

	sr.Pass = result.Pass
	if !result.Pass {
		sr.Errors = result.Errors
	}
	return sr
}

// goldenFilePath returns the golden file of a scenario: dir/<name>.golden,
// or golden/<name>.golden next to the scenario's directory.
func goldenFilePath(dir, scenarioFile, name string) string {
	if dir == "" {
		dir = filepath.Join(filepath.Dir(filepath.Dir(scenarioFile)), "golden")
	}
	return filepath.Join(dir, name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func printScenario(cmd *cobra.Command, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
