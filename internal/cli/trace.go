package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bpsync/internal/ir"
	"github.com/roach88/bpsync/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Event    string // optional - filter to one event name
	Limit    int
	Filter   store.RunFilter
}

// TraceEvent is one fired event of the timeline.
type TraceEvent struct {
	Seq   int    `json:"seq"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// TraceResult holds a recorded run with its timeline.
type TraceResult struct {
	Run      RunRow       `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Final    []ThreadRow  `json:"final"`
}

// RunRow summarizes one recorded run.
type RunRow struct {
	ID            string         `json:"id"`
	Mode          string         `json:"mode"`
	Program       string         `json:"program"`
	Params        map[string]any `json:"params,omitempty"`
	Status        string         `json:"status"`
	Violation     string         `json:"violation"`
	Thread        string         `json:"thread,omitempty"`
	Message       string         `json:"message,omitempty"`
	StatesScanned int64          `json:"states_scanned"`
	EdgesScanned  int64          `json:"edges_scanned"`
	DurationMS    int64          `json:"duration_ms"`
}

// RunList is the output of trace without a run id.
type RunList struct {
	Runs []RunRow `json:"runs"`
}

func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "No runs recorded."
	}
	var b strings.Builder
	for i, r := range l.Runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %-6s  %-12s  %s", r.ID, r.Mode, r.Program, r.Status)
		if r.Violation != "none" {
			fmt.Fprintf(&b, " (%s)", r.Violation)
		}
	}
	return b.String()
}

func (t TraceResult) String() string {
	var b strings.Builder
	r := t.Run
	fmt.Fprintf(&b, "run %s: %s of %s\n", r.ID, r.Mode, r.Program)
	fmt.Fprintf(&b, "status: %s", r.Status)
	if r.Violation != "none" {
		fmt.Fprintf(&b, "  violation: %s", r.Violation)
		if r.Thread != "" {
			fmt.Fprintf(&b, " in %s: %s", r.Thread, r.Message)
		}
	}
	fmt.Fprintf(&b, "\nstates: %d  edges: %d\n", r.StatesScanned, r.EdgesScanned)

	b.WriteString("\nTimeline:\n")
	if len(t.Timeline) == 0 {
		b.WriteString("  (no events)\n")
	}
	for _, e := range t.Timeline {
		fmt.Fprintf(&b, "  %d: %s\n", e.Seq, e.Event)
	}

	b.WriteString("\nFinal threads:")
	if len(t.Final) == 0 {
		b.WriteString("\n  (none)")
	}
	for _, th := range t.Final {
		fmt.Fprintf(&b, "\n  %s: %s", th.Name, th.Statement)
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs and their traces",
		Long: `Show the run log.

Without --run, lists recorded runs newest first, optionally filtered by
program, mode, status or violation. With --run, shows the run's
outcome, the timeline of fired events (the counterexample for a
verification) and the statement of every thread at the final node.

Examples:
  bpsync trace --db ./runs.db
  bpsync trace --db ./runs.db --mode verify --status counterexample
  bpsync trace --db ./runs.db --run 0190a1b2-...
  bpsync trace --db ./runs.db --run 0190a1b2-... --event tick --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show")
	cmd.Flags().StringVar(&opts.Event, "event", "", "filter the timeline to one event name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.Filter.Program, "program", "", "list only runs of this program")
	cmd.Flags().StringVar(&opts.Filter.Mode, "mode", "", "list only runs of this mode (run, verify, replay)")
	cmd.Flags().StringVar(&opts.Filter.Status, "status", "", "list only runs that ended with this status")
	cmd.Flags().StringVar(&opts.Filter.Violation, "violation", "", "list only runs with this violation kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.QueryRuns(ctx, store.RunQuery{Filter: opts.Filter.Predicate(), Limit: opts.Limit})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		list := RunList{Runs: make([]RunRow, len(runs))}
		for i, r := range runs {
			list.Runs[i] = newRunRow(r)
		}
		return formatter.Success(list)
	}

	trace, err := st.LoadTrace(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}
	return formatter.Success(buildTraceResult(trace, opts.Event))
}

func buildTraceResult(trace store.Trace, filter string) TraceResult {
	result := TraceResult{
		Run:      newRunRow(trace.Run),
		Timeline: []TraceEvent{},
		Final:    []ThreadRow{},
	}
	for i, e := range trace.Events() {
		if filter != "" && e.Name != filter {
			continue
		}
		te := TraceEvent{Seq: i + 1, Event: e.String()}
		if e.HasData() {
			te.Data = ir.ToGo(e.Data)
		}
		result.Timeline = append(result.Timeline, te)
	}
	if final, ok := trace.Final(); ok {
		result.Final = threadRows(final.Threads)
	}
	return result
}

func newRunRow(r store.Run) RunRow {
	row := RunRow{
		ID:            r.ID,
		Mode:          r.Mode,
		Program:       r.Program,
		Status:        r.Status,
		Violation:     r.Violation,
		Thread:        r.ViolationThread,
		Message:       r.ViolationMessage,
		StatesScanned: r.StatesScanned,
		EdgesScanned:  r.EdgesScanned,
		DurationMS:    r.DurationMS,
	}
	if len(r.Params) > 0 {
		row.Params, _ = ir.ToGo(r.Params).(map[string]any)
	}
	return row
}
