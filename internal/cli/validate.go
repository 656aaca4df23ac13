package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationIssue is one problem found in a program source.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Program string            `json:"program,omitempty"`
	Threads []string          `json:"threads,omitempty"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

func (r ValidationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ %s is valid (%d thread(s): %s)", r.Program, len(r.Threads), strings.Join(r.Threads, ", "))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %d error(s)", len(r.Errors))
	for _, e := range r.Errors {
		b.WriteString("\n  ")
		if e.File != "" {
			fmt.Fprintf(&b, "%s:%d: ", e.File, e.Line)
		}
		fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check a b-program without running it",
		Long: `Check a CUE b-program for errors without running it.

Reports every problem at once: CUE syntax and evaluation errors, malformed
threads and steps, loops that never synchronize, and references to missing
or mistyped parameters.

Exit codes:
  0 - The program is valid
  1 - The program has errors
  2 - Command error (path not found, no CUE files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result, errs := LoadProgram(path, LoadModeCollectAll)
	if result == nil && isLocateError(errs) {
		return outputLoadErrors(formatter, "cannot validate", errs)
	}

	out := ValidationResult{Valid: len(errs) == 0}
	if result != nil {
		formatter.VerboseLog("Loaded %d CUE file(s) from %s", result.FileCount, path)
		out.Program = result.Spec.Name
		for _, t := range result.Spec.Threads {
			out.Threads = append(out.Threads, t.Name)
		}
	}
	for _, err := range errs {
		out.Errors = append(out.Errors, newValidationIssue(err))
	}

	if err := formatter.Success(out); err != nil {
		return err
	}
	if !out.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(out.Errors)))
	}
	return nil
}

// isLocateError reports whether errs mean the source could not be found at
// all, as opposed to found and broken.
func isLocateError(errs []error) bool {
	var loadErr *LoadError
	if len(errs) != 1 || !errors.As(errs[0], &loadErr) {
		return false
	}
	switch loadErr.Code {
	case ErrCodeNotFound, ErrCodeNoFiles, ErrCodeScanError:
		return true
	}
	return false
}

func newValidationIssue(err error) ValidationIssue {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		issue.File = loadErr.Pos.Filename()
		issue.Line = loadErr.Pos.Line()
	}
	return issue
}
