// Package store provides the SQLite-backed run log.
//
// The log is append-only:
//   - Runs: one row per live run, replay or verification, with its outcome
//   - Trace steps: the ordered events of the run or counterexample, with a
//     state digest and per-thread statements where known
//
// Program state is not stored. A recorded trace is reproduced by replaying
// its events into a fresh program instance (engine.Replay).
//
// # Critical Patterns
//
// Logical ordering: runs are ordered by seq INTEGER assigned at write time,
// NEVER by wall-clock timestamps. Steps are ordered by their index.
//
// Canonical encoding: params and events are stored as canonical JSON
// (internal/ir), so equal values always produce equal TEXT.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
