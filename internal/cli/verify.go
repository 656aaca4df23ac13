package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/store"
	"github.com/roach88/bpsync/internal/verifier"
	"github.com/roach88/bpsync/internal/visited"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database      string
	NoDeadlock    bool
	Hash          bool
	MaxTrace      int
	Continue      bool
	Params        []string
	Progress      bool
	ProgressEvery int

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.RunIDGenerator
}

// VerifyOutput is the result of a verification.
type VerifyOutput struct {
	RunID           string      `json:"run_id"`
	Program         string      `json:"program"`
	Outcome         string      `json:"outcome"`
	Violation       string      `json:"violation"`
	Thread          string      `json:"thread,omitempty"`
	Message         string      `json:"message,omitempty"`
	Events          []string    `json:"events"`
	Final           []ThreadRow `json:"final,omitempty"`
	StatesScanned   int64       `json:"states_scanned"`
	EdgesScanned    int64       `json:"edges_scanned"`
	Counterexamples int         `json:"counterexamples"`
	Truncated       bool        `json:"truncated"`
	DurationMS      int64       `json:"duration_ms"`

	description string
}

// ThreadRow is one thread's statement in a trace node.
type ThreadRow struct {
	Name      string `json:"name"`
	Statement string `json:"statement"`
}

func (o VerifyOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", o.Program, o.Outcome)
	if o.description != "" {
		b.WriteString(o.description)
	}
	fmt.Fprintf(&b, "states: %d  edges: %d  time: %dms", o.StatesScanned, o.EdgesScanned, o.DurationMS)
	if o.Truncated {
		b.WriteString("\nsome paths were cut at the max trace length")
	}
	return b.String()
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return newVerifyCommand(&VerifyOptions{RootOptions: rootOpts})
}

func newVerifyCommand(opts *VerifyOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <program>",
		Short: "Explore every run of a b-program",
		Long: `Explore the state space of a b-program depth first, looking for
deadlocks and failed assertions.

A counterexample is printed as the events leading to the violation followed
by the final state's selectable events and each thread's statement. With
--db the verification and its counterexample are recorded.

Exit codes:
  0 - No violation found
  1 - Counterexample found
  2 - Command error (invalid program, thread panic, database error,
      interrupted search; the partial result is still printed)
  3 - Inconclusive: some paths were cut at the max trace length

Examples:
  bpsync verify ./ticks.cue
  bpsync verify --hash --max-trace 500 ./ticks.cue -P limit=50
  bpsync verify --no-deadlock --progress ./hotcold.cue
  cat ./ticks.cue | bpsync verify -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the verification in this SQLite database")
	cmd.Flags().BoolVarP(&opts.NoDeadlock, "no-deadlock", "d", false, "do not report deadlocks")
	cmd.Flags().BoolVar(&opts.Hash, "hash", false, "dedup visited states by 64-bit hash (faster, unsound on collision)")
	cmd.Flags().IntVar(&opts.MaxTrace, "max-trace", verifier.DefaultMaxTraceLength, "max events in any explored path (0 = unbounded)")
	cmd.Flags().BoolVar(&opts.Continue, "continue", false, "keep exploring after the first violation")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "P", nil, "parameter override key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "show a live progress line on stderr")
	cmd.Flags().IntVar(&opts.ProgressEvery, "progress-every", 1000, "states between progress updates")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	p, err := buildProgram(path, opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	kind := visited.Exact
	if opts.Hash {
		kind = visited.Hash
	}
	vopts := []verifier.Option{
		verifier.WithDeadlockCheck(!opts.NoDeadlock),
		verifier.WithStore(kind),
		verifier.WithMaxTraceLength(opts.MaxTrace),
		verifier.WithStopAtFirst(!opts.Continue),
		verifier.WithLogger(logger),
	}
	if opts.Progress {
		vopts = append(vopts,
			verifier.WithProgressEvery(opts.ProgressEvery),
			verifier.WithListener(newProgressListener(cmd.ErrOrStderr())),
		)
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	res, err := verifier.New(vopts...).Verify(ctx, p)
	cancelled := errors.Is(err, context.Canceled)
	if err != nil && !cancelled {
		return WrapExitError(ExitCommandError, "verification error", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	id := ids.Generate()

	if cancelled {
		out := newVerifyOutput(id, res)
		if !res.IsCounterExampleFound() {
			out.Outcome = "cancelled"
		}
		if err := formatter.Success(out); err != nil {
			return err
		}
		return WrapExitError(ExitCommandError, "verification cancelled", err)
	}
	if opts.Database != "" {
		if err := recordVerification(opts.Database, id, p, res); err != nil {
			return err
		}
		formatter.VerboseLog("Recorded verification %s in %s", id, opts.Database)
	}

	if err := formatter.Success(newVerifyOutput(id, res)); err != nil {
		return err
	}
	switch res.Outcome() {
	case verifier.CounterExample:
		return NewExitError(ExitFailure, fmt.Sprintf("counterexample: %s", res.Violation))
	case verifier.Inconclusive:
		return NewExitError(ExitInconclusive, "verification inconclusive")
	}
	return nil
}

func newVerifyOutput(id string, res *verifier.Result) VerifyOutput {
	out := VerifyOutput{
		RunID:           id,
		Program:         res.Program,
		Outcome:         res.Outcome().String(),
		Violation:       res.Violation.Kind.String(),
		Thread:          res.Violation.Thread,
		Message:         res.Violation.Message,
		Events:          []string{},
		StatesScanned:   res.StatesScanned,
		EdgesScanned:    res.EdgesScanned,
		Counterexamples: res.Counterexamples,
		Truncated:       res.Truncated,
		DurationMS:      res.Duration.Milliseconds(),
	}
	for _, e := range res.Events() {
		out.Events = append(out.Events, e.String())
	}
	if res.IsCounterExampleFound() {
		out.description = res.Describe()
		if steps := store.StepsFromTrace(res.Trace); len(steps) > 0 {
			out.Final = threadRows(steps[len(steps)-1].Threads)
		}
	}
	return out
}

func threadRows(threads []store.ThreadStatement) []ThreadRow {
	rows := make([]ThreadRow, len(threads))
	for i, t := range threads {
		rows[i] = ThreadRow{Name: t.Name, Statement: t.Statement}
	}
	return rows
}

func recordVerification(path, id string, p *engine.Program, res *verifier.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, steps := store.RecordVerification(id, p, res)
	if _, err := st.WriteRun(context.Background(), run, steps); err != nil {
		return WrapExitError(ExitCommandError, "failed to record verification", err)
	}
	return nil
}

// progressListener keeps one live status line updated during a search.
type progressListener struct {
	verifier.NopListener
	w *uilive.Writer
}

func newProgressListener(out io.Writer) *progressListener {
	w := uilive.New()
	w.Out = out
	return &progressListener{w: w}
}

func (l *progressListener) Progress(p verifier.Progress) {
	fmt.Fprintf(l.w, "states: %d  edges: %d  depth: %d  elapsed: %s\n",
		p.StatesScanned, p.EdgesScanned, p.Depth, p.Elapsed.Round(time.Millisecond))
	_ = l.w.Flush()
}

func (l *progressListener) Done(res *verifier.Result) {
	fmt.Fprintf(l.w, "states: %d  edges: %d  done in %s\n",
		res.StatesScanned, res.EdgesScanned, res.Duration.Round(time.Millisecond))
	_ = l.w.Flush()
}

func (o VerifyOutput) runID() string { return o.RunID }
