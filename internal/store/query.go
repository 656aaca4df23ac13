package store

import (
	"context"
	"fmt"
	"strings"
)

// Predicate is a condition on the runs table. Predicates compile to SQL
// with ? placeholders; values are never interpolated.
type Predicate interface {
	compile() (string, []any, error)
}

// Equals matches runs whose column equals Value.
type Equals struct {
	Column string
	Value  string
}

// And matches runs satisfying every predicate. An empty And matches all.
type And []Predicate

// filterColumns are the columns a predicate may reference.
var filterColumns = map[string]bool{
	"program":          true,
	"mode":             true,
	"status":           true,
	"violation":        true,
	"violation_thread": true,
}

func (e Equals) compile() (string, []any, error) {
	if !filterColumns[e.Column] {
		return "", nil, fmt.Errorf("cannot filter runs by %q", e.Column)
	}
	return e.Column + " = ?", []any{e.Value}, nil
}

func (a And) compile() (string, []any, error) {
	if len(a) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(a))
	var params []any
	for _, p := range a {
		sql, ps, err := p.compile()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// RunFilter is the usual conjunction of column matches. Empty fields match
// every run.
type RunFilter struct {
	Program   string
	Mode      string
	Status    string
	Violation string
	Thread    string
}

// Predicate returns the filter as a conjunction.
func (f RunFilter) Predicate() Predicate {
	var and And
	for _, c := range []Equals{
		{"program", f.Program},
		{"mode", f.Mode},
		{"status", f.Status},
		{"violation", f.Violation},
		{"violation_thread", f.Thread},
	} {
		if c.Value != "" {
			and = append(and, c)
		}
	}
	return and
}

// RunQuery selects runs from the log, newest first.
type RunQuery struct {
	Filter Predicate // nil matches every run
	Limit  int       // <= 0 returns all
}

// SQL compiles the query. Every query is ordered by the log sequence so
// results are deterministic.
func (q RunQuery) SQL() (string, []any, error) {
	where, params := "", []any(nil)
	if q.Filter != nil {
		sql, ps, err := q.Filter.compile()
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where, params = " WHERE "+sql, ps
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return "SELECT " + runColumns + " FROM runs" + where + " ORDER BY seq DESC LIMIT ?", append(params, limit), nil
}

// QueryRuns returns the runs matching q.
//
// Returns an empty slice (not nil) if no run matches.
func (s *Store) QueryRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	sql, params, err := q.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
