package policy

import (
	"fmt"
	"math"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/pricing"
)

// Rule names which calculator branch produced a counter-offer.
type Rule string

const (
	RuleCloseGap  Rule = "close_gap"
	RuleMarketGap Rule = "market_gap"
	RuleStandard  Rule = "standard"
)

// marketGapConcession is the nominal concession reported for market-adjusted finals.
const marketGapConcession = 0.02

// finalTolerance absorbs float error when a curve lands on MaxConcession.
const finalTolerance = 1e-9

// CounterResult is the calculator's output for one round. Reasoning is
// informational only.
type CounterResult struct {
	Offer          float64 `json:"offer"`
	ConcessionRate float64 `json:"concessionRate"`
	Reasoning      string  `json:"reasoning"`
	IsFinal        bool    `json:"isFinal"`
	Rule           Rule    `json:"rule"`
	MarketAdjusted bool    `json:"marketAdjusted"`
}

// Calculator computes counter-offers on behalf of the counterparty.
type Calculator struct {
	curve ConcessionCurve
}

// CalculatorOptions configures a Calculator.
type CalculatorOptions struct {
	// Curve selects the concession fraction per round. Defaults to LinearCurve.
	Curve ConcessionCurve
}

// NewCalculator creates a Calculator.
func NewCalculator(optFns ...func(o *CalculatorOptions)) *Calculator {
	opts := CalculatorOptions{Curve: LinearCurve{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Curve == nil {
		opts.Curve = LinearCurve{}
	}
	return &Calculator{curve: opts.Curve}
}

// ComputeCounter applies, in order, the close-gap, market-gap and standard
// concession rules. The first matching rule wins. A standard counter is final
// once the drawn fraction reaches the strategy's MaxConcession, which the
// linear curve does in the last round.
func (c *Calculator) ComputeCounter(requesterOffer, counterpartyOffer float64, market core.MarketPriceEstimate, round int, s core.Strategy) CounterResult {
	marketPrice := market.EstimatedPrice

	if gap, ok := RelativeGap(requesterOffer, counterpartyOffer); ok && gap < s.CloseGapThreshold {
		mid := pricing.RoundCurrency(requesterOffer + (counterpartyOffer-requesterOffer)/2)
		return CounterResult{
			Offer:          mid,
			ConcessionRate: concessionRate(counterpartyOffer, mid),
			Reasoning:      fmt.Sprintf("offers are %.1f%% apart, meeting in the middle", gap*100),
			Rule:           RuleCloseGap,
		}
	}

	if gap, ok := RelativeGap(requesterOffer, marketPrice); ok && gap < s.MarketGapThreshold {
		return CounterResult{
			Offer:          pricing.RoundCurrency(requesterOffer * s.MarketAdjustment),
			ConcessionRate: marketGapConcession,
			Reasoning:      fmt.Sprintf("offer is within %.1f%% of the market price %.0f, final market-adjusted offer", gap*100, marketPrice),
			IsFinal:        true,
			Rule:           RuleMarketGap,
			MarketAdjusted: true,
		}
	}

	fraction := clamp(c.curve.Fraction(round, s), s.MinConcession, s.MaxConcession)
	offer := counterpartyOffer - fraction*(counterpartyOffer-requesterOffer)

	// the floor never pushes a counter above the counterparty's own last offer
	floor := math.Min(marketPrice*s.FloorRatio, counterpartyOffer)
	adjusted := false
	if offer < floor {
		offer = floor
		adjusted = true
	}
	offer = pricing.RoundCurrency(math.Max(offer, 0))

	rate := concessionRate(counterpartyOffer, offer)
	reasoning := fmt.Sprintf("round %d concession of %.0f%% of the gap", round, fraction*100)
	if adjusted {
		reasoning += fmt.Sprintf(", held at market floor %.0f", floor)
	}
	return CounterResult{
		Offer:          offer,
		ConcessionRate: rate,
		Reasoning:      reasoning,
		IsFinal:        fraction >= s.MaxConcession-finalTolerance,
		Rule:           RuleStandard,
		MarketAdjusted: adjusted,
	}
}

// RelativeGap returns |a-b|/b. The bool is false when b is not positive.
func RelativeGap(a, b float64) (float64, bool) {
	if b <= 0 {
		return 0, false
	}
	return math.Abs(a-b) / b, true
}

// concessionRate is the fractional move from the previous counterparty offer.
func concessionRate(previous, next float64) float64 {
	if previous <= 0 {
		return 0
	}
	return clamp((previous-next)/previous, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
