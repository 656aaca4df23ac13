// Package engine implements the behavioral-programming synchronization
// engine.
//
// ARCHITECTURE:
//
// A Program is a named set of b-thread bodies plus read-only parameters.
// The Engine turns a Program into a root State by running every thread to
// its first synchronization point, and advances a State by one superstep
// with Step. States are immutable values: Step never mutates its input, so
// the verifier can branch and backtrack over them freely.
//
// Superstep:
//  1. Collect the live snapshots of the current State.
//  2. Compute the admissible events: requested by some thread, blocked by
//     none (Admissible).
//  3. Empty admissible set with live threads: the State is Stuck.
//  4. Otherwise a Strategy picks one admissible event (Runner only; the
//     verifier enumerates all of them).
//  5. Every thread that requested or waits for the event is resumed, in
//     thread order. The others keep their snapshot.
//  6. The first failed assertion stops the round. The resulting State
//     carries the failure.
//  7. Spawned threads run to their first synchronization point. Killed
//     threads are dropped from the next State.
//
// The Runner drives a Program live: it owns the strategy, listeners, the
// max-steps quota and the sequence numbers that order notifications.
//
// CRITICAL PATTERNS:
//
// Determinism: threads are resumed in State order (registration order,
// spawned threads appended). Admissible events are listed in thread order,
// then request order, deduplicated. No randomness lives in this package.
//
// Logical time: notifications carry a seq that increases by one per
// notification of a Runner. Wall-clock time is only used for durations.
package engine
