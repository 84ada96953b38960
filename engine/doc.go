// Package engine drives a user request through the agent system: the
// supervisor decides which member agent acts next, executed agent turns
// accumulate in the conversation state, and the loop halts on a completion
// token, an unknown route, the iteration cap, or a pending authorization.
//
// Routing outcomes are modeled explicitly (RouteTo | Complete | Failed) even
// though a failed supervisor call and a completion token currently halt the
// loop identically; the distinction keeps the fail-safe termination testable.
package engine
