package core

import (
	"context"
	"time"
)

// NegotiationStore persists negotiation records. Implementations must treat
// Put as a compare-and-swap on Version: a record with Version 1 is an insert,
// any other Version must be exactly one above the stored one, otherwise Put
// fails with ErrConflict. Returned records are copies owned by the caller.
type NegotiationStore interface {
	Get(ctx context.Context, negotiationID string) (*Negotiation, error)
	Put(ctx context.Context, n *Negotiation) error
	ExistsActiveFor(ctx context.Context, subjectID, counterpartyID string) (bool, error)
}

// DueLister is implemented by stores able to enumerate non-terminal
// negotiations whose deadline lies before now, oldest deadline first. The
// expiry sweeper depends on it.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}
