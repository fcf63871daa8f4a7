package policy

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/negotiate/core"
)

// Reason explains an acceptance decision.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonGap        Reason = "gap_within_threshold"
	ReasonFinalOffer Reason = "final_offer"
	ReasonRoundLimit Reason = "round_limit_tie_break"
)

// Decision is the evaluator's verdict for one round.
type Decision struct {
	Accept bool
	Reason Reason
}

// Evaluator decides whether the requester's offer should be taken outright.
type Evaluator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// EvaluatorOptions configures an Evaluator.
type EvaluatorOptions struct {
	// Seed feeds the coin-flip tie-break. It is ignored by the other tie-breaks.
	Seed int64
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(optFns ...func(o *EvaluatorOptions)) *Evaluator {
	opts := EvaluatorOptions{Seed: 1}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Evaluator{rng: rand.New(rand.NewSource(opts.Seed))}
}

// ShouldAccept applies the acceptance rules in order:
//  1. from round two on, a gap within AcceptGapThreshold is accepted;
//  2. a final counter-offer is an implicit acceptance;
//  3. at the round limit the strategy's tie-break decides;
//  4. otherwise negotiation continues.
func (e *Evaluator) ShouldAccept(requesterOffer, lastCounterpartyOffer float64, round int, calc CounterResult, s core.Strategy) Decision {
	gap, ok := RelativeGap(requesterOffer, lastCounterpartyOffer)
	if round >= 2 && ok && gap <= s.AcceptGapThreshold {
		return Decision{Accept: true, Reason: ReasonGap}
	}
	if calc.IsFinal {
		return Decision{Accept: true, Reason: ReasonFinalOffer}
	}
	if round >= s.MaxRounds {
		if e.tieBreak(gap, ok, s) {
			return Decision{Accept: true, Reason: ReasonRoundLimit}
		}
	}
	return Decision{}
}

func (e *Evaluator) tieBreak(gap float64, gapKnown bool, s core.Strategy) bool {
	switch s.TieBreak {
	case core.TieBreakCoinFlip:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.rng.Float64() > 0.5
	case core.TieBreakReject:
		return false
	default:
		return gapKnown && gap < 2*s.AcceptGapThreshold
	}
}
