package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bpsync/internal/ir"
)

// WriteRun records a run and its trace steps in a single transaction and
// returns the assigned seq.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same run id
// twice keeps the first record and returns its seq. Steps are only written
// with a new run.
func (s *Store) WriteRun(ctx context.Context, run Run, steps []Step) (int64, error) {
	paramsJSON, err := marshalParams(run.Params)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.TraceVersion == "" {
		run.TraceVersion = ir.TraceVersion
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case err != sql.ErrNoRows:
		return 0, fmt.Errorf("write run: lookup: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, mode, program, params, status, violation, violation_thread, violation_message,
		 states_scanned, edges_scanned, duration_ms, engine_version, trace_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		seq,
		run.Mode,
		run.Program,
		paramsJSON,
		run.Status,
		run.Violation,
		run.ViolationThread,
		run.ViolationMessage,
		run.StatesScanned,
		run.EdgesScanned,
		run.DurationMS,
		run.EngineVersion,
		run.TraceVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	for _, step := range steps {
		if err := writeStep(ctx, tx, run.ID, step); err != nil {
			return 0, fmt.Errorf("write run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

func writeStep(ctx context.Context, tx *sql.Tx, runID string, step Step) error {
	var eventJSON sql.NullString
	if step.Event != nil {
		data, err := marshalEvent(*step.Event)
		if err != nil {
			return fmt.Errorf("step %d: %w", step.Index, err)
		}
		eventJSON = sql.NullString{String: data, Valid: true}
	}
	threadsJSON, err := marshalThreads(step.Threads)
	if err != nil {
		return fmt.Errorf("step %d: %w", step.Index, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trace_steps (run_id, step, event, state_digest, threads)
		VALUES (?, ?, ?, ?, ?)
	`, runID, step.Index, eventJSON, step.StateDigest, threadsJSON)
	if err != nil {
		return fmt.Errorf("step %d: %w", step.Index, err)
	}
	return nil
}

// DeleteRun removes a run and, through the foreign key cascade, its steps.
// Deleting a missing run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
