// Package harness runs YAML scenarios against b-programs written in CUE.
//
// A scenario names a program, overrides its parameters, picks a mode and
// states what the outcome must be:
//
//	name: ticks_counterexample
//	description: "The counter assertion fails on the fourth tick"
//	program: ../programs/ticks.cue
//	params:
//	  limit: 3
//	mode: verify
//	verifier:
//	  store: hash
//	  max_trace_length: 20
//	expect:
//	  status: counterexample
//	  violation: failed-assertion
//	  thread: counter
//	  message: "counter saw 4 ticks"
//	  events: [tick, tick, tick, tick]
//	assertions:
//	  - type: trace_count
//	    event: tick
//	    count: 4
//
// In run mode the program is driven live by a named strategy; in verify
// mode it is handed to the DFS verifier and the counterexample, if any, is
// the trace.
//
// # Assertion Types
//
//   - trace_contains: an event with the given name was fired
//   - trace_order: the named events were fired in this relative order
//   - trace_count: an event was fired exactly N times
//   - final_threads: exactly these threads are live in the final state
//
// # Deterministic Testing
//
// Each scenario runs against a fresh in-memory run log. Run ids come from
// testutil.SequentialIDs seeded with the scenario name, and the trace is
// read back from the log, so identical scenarios produce byte-identical
// golden files.
package harness
