// Package verifier explores every event-selection order of a b-program and
// reports deadlocks and failed assertions with a counterexample trace.
//
// The search is a depth-first walk over engine states with an explicit stack
// of (state, remaining edges) frames. Each admissible event is an edge; each
// new state is checked against a visited.Store before it is expanded. The
// stack at the moment a violation is found is the counterexample.
//
// A max trace length bounds the depth. Hitting it makes the result
// Inconclusive unless a violation is found elsewhere. Under a bound the store
// remembers the shallowest depth of each state, and a state reached again on
// a shorter path is expanded again.
package verifier
