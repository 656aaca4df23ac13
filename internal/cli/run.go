package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/bpsync/internal/engine"
	"github.com/roach88/bpsync/internal/store"
	"github.com/roach88/bpsync/internal/strategy"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Strategy   string
	Seed       uint64
	MaxSteps   int
	Params     []string
	Priorities []string

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.RunIDGenerator
}

// RunOutput is the result of a live run.
type RunOutput struct {
	RunID     string   `json:"run_id"`
	Program   string   `json:"program"`
	Status    string   `json:"status"`
	Violation string   `json:"violation"`
	Thread    string   `json:"thread,omitempty"`
	Message   string   `json:"message,omitempty"`
	Events    []string `json:"events"`
}

func (o RunOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s of %s\n", o.RunID, o.Program)
	for i, e := range o.Events {
		fmt.Fprintf(&b, "  %d: %s\n", i+1, e)
	}
	fmt.Fprintf(&b, "status: %s", o.Status)
	if o.Violation != engine.NoViolation.String() {
		fmt.Fprintf(&b, "\nviolation: %s", o.Violation)
		if o.Thread != "" {
			fmt.Fprintf(&b, " in %s: %s", o.Thread, o.Message)
		}
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a b-program live",
		Long: `Run a b-program until it terminates, deadlocks, fails an assertion or
hits the step quota.

The program is a .cue file or a directory holding one CUE package. At every
step the selection strategy picks one admissible event. With --db the run
and its events are recorded so they can be traced and replayed.

Exit codes:
  0 - The program terminated
  1 - Deadlock or failed assertion
  2 - Command error (invalid program, database error, etc.)
  3 - Step quota reached

Examples:
  bpsync run ./hotcold.cue
  bpsync run --strategy random --seed 42 ./ticks.cue -P limit=10
  bpsync run --strategy priority --priority cold=5 --db ./runs.db ./hotcold.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "simple", "event selection strategy ("+strings.Join(strategy.Names, "|")+")")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for the random strategy")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "halt after this many events (0 = unbounded)")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "P", nil, "parameter override key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Priorities, "priority", nil, "event weight name=int for the priority strategy (repeatable)")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	p, err := buildProgram(path, opts.Params)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	weights, err := parsePriorities(opts.Priorities)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid priority", err)
	}
	strat, err := strategy.ByName(opts.Strategy, opts.Seed, weights)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid strategy", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	runnerOpts := []engine.RunnerOption{
		engine.WithRunIDGenerator(ids),
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithRunLogger(logger),
	}
	if opts.Verbose {
		runnerOpts = append(runnerOpts, engine.WithListener(engine.LogListener{Logger: logger}))
		strat = strategy.Logging(strat, logger)
	}
	runner := engine.NewRunner(engine.New(p, engine.WithLogger(logger)), strat, runnerOpts...)

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	logger.Info("run starting", "program", p.Name(), "strategy", opts.Strategy)
	start := time.Now()
	res, err := runner.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "run error", err)
	}

	if opts.Database != "" {
		if err := recordRun(ctx, opts.Database, store.ModeRun, p, res, time.Since(start)); err != nil {
			return err
		}
		formatter.VerboseLog("Recorded run %s in %s", res.RunID, opts.Database)
	}

	out := newRunOutput(p.Name(), res)
	if err := formatter.Success(out); err != nil {
		return err
	}
	return runExit(res)
}

func newRunOutput(program string, res *engine.RunResult) RunOutput {
	events := make([]string, len(res.Events))
	for i, e := range res.Events {
		events[i] = e.String()
	}
	return RunOutput{
		RunID:     res.RunID,
		Program:   program,
		Status:    res.Status.String(),
		Violation: res.Violation.Kind.String(),
		Thread:    res.Violation.Thread,
		Message:   res.Violation.Message,
		Events:    events,
	}
}

// runExit maps a run status to the command's exit error.
func runExit(res *engine.RunResult) error {
	switch res.Status {
	case engine.RunTerminated:
		return nil
	case engine.RunHalted:
		return NewExitError(ExitInconclusive, "run halted before the program finished")
	case engine.RunCancelled:
		return NewExitError(ExitFailure, "run cancelled")
	default:
		return NewExitError(ExitFailure, fmt.Sprintf("run ended with %s", res.Violation))
	}
}

// recordRun writes a run or replay to the log at path.
func recordRun(ctx context.Context, path, mode string, p *engine.Program, res *engine.RunResult, elapsed time.Duration) error {
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, steps := store.RecordRun(mode, p, res, elapsed)
	if _, err := st.WriteRun(context.WithoutCancel(ctx), run, steps); err != nil {
		return WrapExitError(ExitCommandError, "failed to record run", err)
	}
	return nil
}

// parsePriorities parses name=weight pairs.
func parsePriorities(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: expected name=weight", pair)
		}
		w, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%q: weight must be an integer", pair)
		}
		out[name] = w
	}
	return out, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(cmd *cobra.Command, logger *slog.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (o RunOutput) runID() string { return o.RunID }
