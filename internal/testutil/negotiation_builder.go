package testutil

import (
	"strconv"
	"time"

	"github.com/hupe1980/negotiate/core"
)

// NegotiationBuilder helps construct negotiation records with fluent chaining.
// Example:
//
//	n := NewNegotiationBuilder("n-1").Pair("evt1", "org1").Offer(core.PartyCounterparty, 400000).Build()
type NegotiationBuilder struct {
	n core.Negotiation
}

// NewNegotiationBuilder creates a builder for an active round-one negotiation
// with the default strategy, created at PeakSeason.
func NewNegotiationBuilder(id string) *NegotiationBuilder {
	created := PeakSeason()
	return &NegotiationBuilder{n: core.Negotiation{
		ID:             id,
		SubjectID:      "evt1",
		CounterpartyID: "org1",
		Category:       "wedding",
		Location:       "Kathmandu",
		Status:         core.StatusAwaitingRequester,
		CurrentRound:   1,
		Strategy:       core.DefaultStrategy(),
		CreatedAt:      created,
		UpdatedAt:      created,
		TimeoutAt:      created.Add(72 * time.Hour),
		Version:        1,
	}}
}

// Pair sets the subject and counterparty ids (chainable).
func (b *NegotiationBuilder) Pair(subject, counterparty string) *NegotiationBuilder {
	b.n.SubjectID, b.n.CounterpartyID = subject, counterparty
	return b
}

// Market sets category and location (chainable).
func (b *NegotiationBuilder) Market(category, location string) *NegotiationBuilder {
	b.n.Category, b.n.Location = category, location
	return b
}

// Strategy replaces the strategy snapshot (chainable).
func (b *NegotiationBuilder) Strategy(s core.Strategy) *NegotiationBuilder {
	b.n.Strategy = s
	return b
}

// Status sets status and round (chainable).
func (b *NegotiationBuilder) Status(s core.Status, round int) *NegotiationBuilder {
	b.n.Status, b.n.CurrentRound = s, round
	return b
}

// TimeoutAt overrides the deadline (chainable).
func (b *NegotiationBuilder) TimeoutAt(t time.Time) *NegotiationBuilder {
	b.n.TimeoutAt = t
	return b
}

// Offer appends a ledger entry for the current round (chainable).
func (b *NegotiationBuilder) Offer(party core.Party, amount float64) *NegotiationBuilder {
	b.n.Ledger = append(b.n.Ledger, core.Offer{
		ID:        b.n.ID + "-" + strconv.Itoa(len(b.n.Ledger)),
		Amount:    amount,
		Party:     party,
		Round:     b.n.CurrentRound,
		Timestamp: b.n.CreatedAt,
	})
	return b
}

// Build returns a copy of the assembled negotiation.
func (b *NegotiationBuilder) Build() *core.Negotiation {
	return b.n.Clone()
}
