package engine

import (
	"fmt"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/policy"
)

// The functions in this file are the state machine proper. They mutate the
// negotiation they are given and perform no I/O.

// CounterCalculator computes the system's counter-offer for one round.
type CounterCalculator interface {
	ComputeCounter(requesterOffer, counterpartyOffer float64, market core.MarketPriceEstimate, round int, s core.Strategy) policy.CounterResult
}

// AcceptanceEvaluator decides whether the requester's offer concludes the round.
type AcceptanceEvaluator interface {
	ShouldAccept(requesterOffer, lastCounterpartyOffer float64, round int, calc policy.CounterResult, s core.Strategy) policy.Decision
}

// Step bundles the collaborators a counter transition needs.
type Step struct {
	Pricing    core.PricingModel
	Calculator CounterCalculator
	Evaluator  AcceptanceEvaluator
	NewOfferID func(at time.Time) string
}

// CounterOutcome describes the effect of one counter transition.
type CounterOutcome struct {
	Negotiation *core.Negotiation
	Market      core.MarketPriceEstimate
	Calculation policy.CounterResult
	Decision    policy.Decision
	// Appended is the number of ledger entries added (one or two).
	Appended int
}

// LastOffer returns the newest ledger entry after the transition.
func (o *CounterOutcome) LastOffer() core.Offer {
	last, _ := o.Negotiation.LastOffer()
	return last
}

// IsFinal reports whether the round ended with a final counter-offer.
func (o *CounterOutcome) IsFinal() bool {
	return o.Calculation.IsFinal && o.Decision.Reason == policy.ReasonFinalOffer
}

// ApplyCounter runs one requester-offer → system-response cycle on n.
func (st Step) ApplyCounter(n *core.Negotiation, amount float64, message string, now time.Time) (*CounterOutcome, error) {
	if n.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", core.ErrInvalidState, n.ID, n.Status)
	}
	last, ok := n.LastCounterpartyOffer()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no counterparty offer", core.ErrInvalidState, n.ID)
	}

	round := n.CurrentRound
	before := len(n.Ledger)
	n.Append(core.Offer{
		ID:        st.NewOfferID(now),
		Amount:    amount,
		Party:     core.PartyRequester,
		Round:     round,
		Timestamp: now,
		Message:   message,
	})

	market := st.Pricing.Estimate(n.Category, n.Location, now)
	calc := st.Calculator.ComputeCounter(amount, last.Amount, market, round, n.Strategy)
	decision := st.Evaluator.ShouldAccept(amount, last.Amount, round, calc, n.Strategy)

	systemOffer := core.Offer{
		ID:        st.NewOfferID(now),
		Amount:    calc.Offer,
		Party:     core.PartySystem,
		Round:     round,
		Timestamp: now,
		Message:   calc.Reasoning,
		Metadata: core.OfferMetadata{
			ConcessionRate: calc.ConcessionRate,
			MarketAdjusted: calc.MarketAdjusted,
			Final:          calc.IsFinal,
			Rule:           string(calc.Rule),
		},
	}

	switch {
	case decision.Accept && decision.Reason == policy.ReasonFinalOffer:
		n.Append(systemOffer)
		conclude(n, core.ResultFinalOfferMade, calc.Offer, now)
	case decision.Accept:
		conclude(n, core.ResultAccepted, amount, now)
	default:
		n.Append(systemOffer)
		n.CurrentRound++
		if n.CurrentRound > n.Strategy.MaxRounds {
			terminate(n, core.StatusExpired, core.ResultMaxRoundsReached, now)
		} else {
			n.Status = core.StatusCountered
		}
	}
	n.UpdatedAt = now

	return &CounterOutcome{
		Negotiation: n,
		Market:      market,
		Calculation: calc,
		Decision:    decision,
		Appended:    len(n.Ledger) - before,
	}, nil
}

// ApplyManualAccept concludes n at its last ledger amount.
func ApplyManualAccept(n *core.Negotiation, actorID string, now time.Time) error {
	if n.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", core.ErrInvalidState, n.ID, n.Status)
	}
	last, ok := n.LastOffer()
	if !ok {
		return fmt.Errorf("%w: %s has an empty ledger", core.ErrInvalidState, n.ID)
	}
	conclude(n, core.ResultManualAccept, last.Amount, now)
	n.ConcludedBy = actorID
	n.UpdatedAt = now
	return nil
}

// ApplyTimeout expires n when now is past its deadline. It reports whether
// the transition happened.
func ApplyTimeout(n *core.Negotiation, now time.Time) bool {
	if n.Status.IsTerminal() || !now.After(n.TimeoutAt) {
		return false
	}
	terminate(n, core.StatusExpired, core.ResultTimeout, now)
	n.UpdatedAt = now
	return true
}

func conclude(n *core.Negotiation, result core.Result, amount float64, now time.Time) {
	terminate(n, core.StatusConcluded, result, now)
	n.FinalAmount = &amount
}

func terminate(n *core.Negotiation, status core.Status, result core.Result, now time.Time) {
	n.Status = status
	n.Result = result
	t := now
	n.ConcludedAt = &t
}
