// Package agent implements the member agents of the routing system: one
// language model, one instruction set, and the tool bindings the agent is
// permitted to call. An agent produces exactly one textual response per
// execution; tool calls surfaced by the model are dispatched through the
// gateway bindings inside the agent's own invocation cycle.
package agent
