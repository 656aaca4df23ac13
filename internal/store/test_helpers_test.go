package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/bpsync/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, program string) Run {
	return Run{
		ID:        id,
		Mode:      ModeVerify,
		Program:   program,
		Params:    ir.IRObject{"limit": ir.IRInt(3)},
		Status:    "counterexample",
		Violation: "failed-assertion",
	}
}
