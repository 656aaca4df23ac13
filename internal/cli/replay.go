package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bpsync/internal/compiler"
	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the program's latest run
	Record   bool

	// IDs allows overriding the replay's run id generator (for testing).
	IDs engine.RunIDGenerator
}

// ReplayOutput is the result of replaying a recorded run.
type ReplayOutput struct {
	RunID         string   `json:"run_id"`
	Program       string   `json:"program"`
	Events        []string `json:"events"`
	Recorded      string   `json:"recorded_status"`
	Replayed      string   `json:"replayed_status"`
	Deterministic bool     `json:"deterministic"`
	Differences   []string `json:"differences,omitempty"`
}

func (o ReplayOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replayed %d event(s) of run %s (%s)\n", len(o.Events), o.RunID, o.Program)
	fmt.Fprintf(&b, "recorded: %s  replayed: %s\n", o.Recorded, o.Replayed)
	if o.Deterministic {
		b.WriteString("deterministic: yes")
		return b.String()
	}
	b.WriteString("deterministic: NO")
	for _, d := range o.Differences {
		fmt.Fprintf(&b, "\n  %s", d)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return newReplayCommand(&ReplayOptions{RootOptions: rootOpts})
}

func newReplayCommand(opts *ReplayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <program>",
		Short: "Replay a recorded run and check it is reproduced",
		Long: `Feed the events of a recorded run or counterexample into a fresh instance
of the program and compare where it ends with what was recorded.

The program is recompiled from source with the parameters recorded for the
run. The replay matches when the final status and every final thread
statement are the same.

Exit codes:
  0 - The run was reproduced
  1 - The replay diverged from the recording
  2 - Command error (database not found, run not found, etc.)

Examples:
  bpsync replay --db ./runs.db ./ticks.cue
  bpsync replay --db ./runs.db --run 0190a1b2-... ./ticks.cue
  bpsync replay --db ./runs.db --record --format json ./ticks.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to replay (default: the program's latest run)")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "record the replay as a new run")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	loaded, errs := LoadProgram(path, LoadModeFailFast)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load program", errs[0])
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runID := opts.RunID
	if runID == "" {
		latest, err := st.LatestRun(ctx, loaded.Spec.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("no recorded runs of %s", loaded.Spec.Name))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest run", err)
		}
		runID = latest.ID
	}

	trace, err := st.LoadTrace(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}
	if trace.Run.Program != loaded.Spec.Name {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s is of program %q, not %q", runID, trace.Run.Program, loaded.Spec.Name))
	}

	p, err := compiler.Build(loaded.Spec, trace.Run.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build program", err)
	}

	formatter.VerboseLog("Replaying %d event(s) of run %s", len(trace.Events()), runID)
	start := time.Now()
	res, err := engine.Replay(ctx, p, trace.Events(), engine.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	out := compareReplay(trace, res)
	if opts.Record {
		ids := opts.IDs
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		res.RunID = ids.Generate()
		if err := recordRun(ctx, opts.Database, store.ModeReplay, p, res, time.Since(start)); err != nil {
			return err
		}
		formatter.VerboseLog("Recorded replay %s", res.RunID)
	}

	if err := formatter.Success(out); err != nil {
		return err
	}
	if !out.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from the recording")
	}
	return nil
}

// compareReplay checks a replay against its recording: same violation and
// same final thread statements. Verification outcomes are compared through
// their violation, since a replay has no outcome of its own.
func compareReplay(trace store.Trace, res *engine.RunResult) ReplayOutput {
	out := ReplayOutput{
		RunID:         trace.Run.ID,
		Program:       trace.Run.Program,
		Events:        []string{},
		Recorded:      trace.Run.Status,
		Replayed:      res.Status.String(),
		Deterministic: true,
	}
	for _, e := range res.Events {
		out.Events = append(out.Events, e.String())
	}

	differ := func(format string, args ...any) {
		out.Deterministic = false
		out.Differences = append(out.Differences, fmt.Sprintf(format, args...))
	}

	if trace.Run.Mode != store.ModeVerify && trace.Run.Status != out.Replayed && trace.Run.Status != engine.RunCancelled.String() {
		differ("status: recorded %s, replayed %s", trace.Run.Status, out.Replayed)
	}
	if got := res.Violation.Kind.String(); trace.Run.Violation != got {
		differ("violation: recorded %s, replayed %s", trace.Run.Violation, got)
	}
	if trace.Run.ViolationThread != res.Violation.Thread || trace.Run.ViolationMessage != res.Violation.Message {
		differ("failure: recorded %q %q, replayed %q %q",
			trace.Run.ViolationThread, trace.Run.ViolationMessage, res.Violation.Thread, res.Violation.Message)
	}

	final, ok := trace.Final()
	if ok && final.Event == nil {
		replayed := store.StepFromState(len(res.Events), res.Final, nil)
		if !slices.Equal(final.Threads, replayed.Threads) {
			differ("final threads: recorded %v, replayed %v", final.Threads, replayed.Threads)
		}
	}
	return out
}

func (o ReplayOutput) runID() string { return o.RunID }
