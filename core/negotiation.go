package core

import (
	"time"
)

// Status is the lifecycle state of a negotiation.
type Status string

const (
	// StatusAwaitingRequester is the state right after the counterparty's opening offer.
	StatusAwaitingRequester Status = "AWAITING_REQUESTER_RESPONSE"
	// StatusCountered means the system answered the requester's last offer with a counter.
	StatusCountered Status = "COUNTERED"
	// StatusConcluded is terminal: an agreement (or a final offer) was reached.
	StatusConcluded Status = "CONCLUDED"
	// StatusExpired is terminal: rounds were exhausted or the negotiation timed out.
	StatusExpired Status = "EXPIRED"
)

// IsTerminal reports whether no further mutation is allowed in this state.
func (s Status) IsTerminal() bool {
	return s == StatusConcluded || s == StatusExpired
}

// Result records why a negotiation reached a terminal state.
type Result string

const (
	ResultNone             Result = ""
	ResultAccepted         Result = "accepted"
	ResultFinalOfferMade   Result = "final_offer_made"
	ResultMaxRoundsReached Result = "max_rounds_reached"
	ResultTimeout          Result = "timeout"
	ResultManualAccept     Result = "manual_accept"
)

// Party identifies the author of an offer.
type Party string

const (
	PartyRequester    Party = "requester"
	PartyCounterparty Party = "counterparty"
	PartySystem       Party = "system"
)

// OfferMetadata carries the calculator's bookkeeping for a single offer.
type OfferMetadata struct {
	ConcessionRate float64 `json:"concessionRate"`
	MarketAdjusted bool    `json:"marketAdjusted"`
	Final          bool    `json:"final,omitempty"`
	Rule           string  `json:"rule,omitempty"`
}

// Offer is an immutable, timestamped price proposal attached to one round.
type Offer struct {
	ID        string        `json:"id"`
	Amount    float64       `json:"amount"`
	Party     Party         `json:"party"`
	Round     int           `json:"round"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Metadata  OfferMetadata `json:"metadata"`
}

// Negotiation is a bounded, multi-round exchange of offers between a requester
// (subject owner) and a counterparty.
//
// Contract:
//   - Ledger is append-only; entries are never reordered or removed
//   - CurrentRound never decreases
//   - Once Status is terminal it never changes again
//   - Version is bumped by exactly one on every successful store write
type Negotiation struct {
	ID             string     `json:"id"`
	SubjectID      string     `json:"subjectId"`
	CounterpartyID string     `json:"counterpartyId"`
	Category       string     `json:"category"`
	Location       string     `json:"location"`
	GuestCount     int        `json:"guestCount,omitempty"`
	Status         Status     `json:"status"`
	CurrentRound   int        `json:"currentRound"`
	Ledger         []Offer    `json:"offerLedger"`
	Strategy       Strategy   `json:"strategy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	TimeoutAt      time.Time  `json:"timeoutAt"`
	ConcludedAt    *time.Time `json:"concludedAt,omitempty"`
	ConcludedBy    string     `json:"concludedBy,omitempty"`
	FinalAmount    *float64   `json:"finalAmount,omitempty"`
	Result         Result     `json:"result,omitempty"`
	Version        int64      `json:"version"`
}

// Clone returns a deep copy safe for independent mutation.
func (n *Negotiation) Clone() *Negotiation {
	if n == nil {
		return nil
	}
	c := *n
	c.Ledger = make([]Offer, len(n.Ledger))
	copy(c.Ledger, n.Ledger)
	if n.ConcludedAt != nil {
		t := *n.ConcludedAt
		c.ConcludedAt = &t
	}
	if n.FinalAmount != nil {
		a := *n.FinalAmount
		c.FinalAmount = &a
	}
	return &c
}

// Append adds an offer to the ledger.
func (n *Negotiation) Append(o Offer) {
	n.Ledger = append(n.Ledger, o)
}

// LastOffer returns the most recent ledger entry.
func (n *Negotiation) LastOffer() (Offer, bool) {
	if len(n.Ledger) == 0 {
		return Offer{}, false
	}
	return n.Ledger[len(n.Ledger)-1], true
}

// LastCounterpartyOffer returns the latest offer made on the counterparty's
// side, which includes system-computed counters.
func (n *Negotiation) LastCounterpartyOffer() (Offer, bool) {
	for i := len(n.Ledger) - 1; i >= 0; i-- {
		if n.Ledger[i].Party != PartyRequester {
			return n.Ledger[i], true
		}
	}
	return Offer{}, false
}

// IsActive reports whether the negotiation still accepts offers.
func (n *Negotiation) IsActive() bool {
	return !n.Status.IsTerminal()
}

// PairKey returns the key identifying the (subject, counterparty) pair.
func PairKey(subjectID, counterpartyID string) string {
	return subjectID + "|" + counterpartyID
}
