package store

import (
	"context"
	"database/sql"
	"fmt"
)

const runColumns = `id, seq, mode, program, params, status, violation, violation_thread,
	violation_message, states_scanned, edges_scanned, duration_ms, engine_version, trace_version`

// ReadRun retrieves a run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// LatestRun returns the most recent run, optionally restricted to a program
// name (empty matches all). Returns sql.ErrNoRows if there is none.
func (s *Store) LatestRun(ctx context.Context, program string) (Run, error) {
	runs, err := s.QueryRuns(ctx, RunQuery{Filter: RunFilter{Program: program}.Predicate(), Limit: 1})
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, sql.ErrNoRows
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.QueryRuns(ctx, RunQuery{Limit: limit})
}

// ReadSteps returns the trace steps of a run ordered by index.
//
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, event, state_digest, threads
		FROM trace_steps
		WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []Step{}
	for rows.Next() {
		var (
			step        Step
			eventJSON   sql.NullString
			threadsJSON string
		)
		if err := rows.Scan(&step.Index, &eventJSON, &step.StateDigest, &threadsJSON); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if eventJSON.Valid {
			e, err := unmarshalEvent(eventJSON.String)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", step.Index, err)
			}
			step.Event = &e
		}
		if step.Threads, err = unmarshalThreads(threadsJSON); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Index, err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		paramsJSON string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Mode,
		&run.Program,
		&paramsJSON,
		&run.Status,
		&run.Violation,
		&run.ViolationThread,
		&run.ViolationMessage,
		&run.StatesScanned,
		&run.EdgesScanned,
		&run.DurationMS,
		&run.EngineVersion,
		&run.TraceVersion,
	)
	if err != nil {
		return Run{}, err
	}
	if run.Params, err = unmarshalParams(paramsJSON); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
