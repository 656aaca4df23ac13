package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates run ids "<prefix>-1", "<prefix>-2", ...
//
// Unlike engine.FixedGenerator it never runs out, so a scenario can start
// any number of runs and still produce byte-identical run logs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "test-run".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "test-run"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id. Implements engine.RunIDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
