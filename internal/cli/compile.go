package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bpsync/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Program     string `json:"program"`
	ThreadCount int    `json:"threads"`
	StepCount   int    `json:"steps"`
	ParamCount  int    `json:"params"`
	Output      string `json:"output,omitempty"`
}

func (s CompilationStats) String() string {
	msg := fmt.Sprintf("Compiled %s: %d thread(s), %d step(s), %d parameter(s)", s.Program, s.ThreadCount, s.StepCount, s.ParamCount)
	if s.Output != "" {
		msg += "\nWrote " + s.Output
	}
	return msg
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program>",
		Short: "Compile a CUE b-program to canonical JSON",
		Long: `Compile a CUE b-program and print its canonical JSON form.

The compiler checks every thread definition, resolves parameter defaults
and renders event sets in their canonical form. Without --output the JSON
is written to stdout.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	result, errs := LoadProgram(path, LoadModeCollectAll)
	if len(errs) > 0 {
		return outputLoadErrors(formatter, "compilation failed", errs)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", result.FileCount, path)

	data, err := ir.MarshalCanonical(result.Spec.IR())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode program", err)
	}
	data = append(data, '\n')

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	stats := CompilationStats{
		Program:     result.Spec.Name,
		ThreadCount: len(result.Spec.Threads),
		ParamCount:  len(result.Spec.Params),
		Output:      opts.Output,
	}
	for _, t := range result.Spec.Threads {
		stats.StepCount += len(t.Steps)
	}
	return formatter.Success(stats)
}

// outputLoadErrors reports load or compile errors and returns the matching
// exit error.
func outputLoadErrors(formatter *OutputFormatter, summary string, errs []error) error {
	details := make([]string, len(errs))
	for i, err := range errs {
		details[i] = err.Error()
	}

	code := ErrCodeGeneric
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		code = loadErr.Code
	}

	if formatter.Format == "json" {
		_ = formatter.Error(code, summary, details)
	} else {
		fmt.Fprintf(formatter.Writer, "Error [%s]: %s\n", code, summary)
		for _, d := range details {
			fmt.Fprintf(formatter.Writer, "  %s\n", d)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", summary, strings.Join(details, "; ")))
}
