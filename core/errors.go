package core

import "errors"

var (
	// ErrNotFound is returned when no negotiation exists for the given id.
	ErrNotFound = errors.New("negotiation not found")

	// ErrDuplicateNegotiation is returned when the subject/counterparty pair
	// already has a negotiation in a non-terminal state.
	ErrDuplicateNegotiation = errors.New("duplicate negotiation")

	// ErrInvalidState is returned for operations not allowed in the current
	// status, most notably any mutation of a terminal negotiation.
	ErrInvalidState = errors.New("invalid negotiation state")

	// ErrInvalidArgument is returned for non-positive offers, zero guest
	// counts and malformed strategies.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when a concurrent update won the race.
	ErrConflict = errors.New("conflicting concurrent update")
)

// Error kinds exposed on serialized responses.
const (
	KindNotFound             = "NotFound"
	KindDuplicateNegotiation = "DuplicateNegotiation"
	KindInvalidState         = "InvalidState"
	KindInvalidArgument      = "InvalidArgument"
	KindConflict             = "Conflict"
	KindInternal             = "Internal"
)

// KindOf maps an error to its stable kind. Unknown errors map to Internal and
// nil maps to the empty string.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateNegotiation):
		return KindDuplicateNegotiation
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
