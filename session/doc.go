// Package session holds the durable (process-lifetime) conversation state a
// routing session accumulates: the ordered transcript of user and agent turns
// plus the single-slot pending-authorization flag that tool invocations set
// and the operator clears. An in-memory keyed store is provided for embedders
// that manage more than one session.
package session
