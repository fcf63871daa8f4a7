// Package engine implements the negotiation state machine.
//
// machine.go holds the pure transitions (counter round, manual acceptance,
// timeout) operating on a private copy of a record. engine.go wraps them with
// per-negotiation locking, store round-trips guarded by a version check,
// lazy timeout handling and lifecycle callbacks.
//
// States: AWAITING_REQUESTER_RESPONSE → COUNTERED → CONCLUDED | EXPIRED.
// Terminal states reject every further mutation with core.ErrInvalidState.
package engine
