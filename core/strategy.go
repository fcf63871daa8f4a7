package core

import (
	"fmt"
	"time"
)

// TieBreak selects how the acceptance evaluator decides once the round limit
// is reached without a clear agreement.
type TieBreak string

const (
	// TieBreakGap accepts when the final gap is under twice AcceptGapThreshold.
	TieBreakGap TieBreak = "gap"
	// TieBreakCoinFlip draws from a seeded source. Only meant for fuzzing.
	TieBreakCoinFlip TieBreak = "coin_flip"
	// TieBreakReject never accepts at round exhaustion.
	TieBreakReject TieBreak = "reject"
)

// Strategy bundles the thresholds driving a negotiation. A snapshot is stored
// on every Negotiation so changing the service default never affects
// negotiations already in flight.
type Strategy struct {
	MaxRounds          int      `json:"maxRounds"`
	TimeoutHours       int      `json:"timeoutHours"`
	AcceptGapThreshold float64  `json:"acceptGapThreshold"`
	CloseGapThreshold  float64  `json:"closeGapThreshold"`
	MarketGapThreshold float64  `json:"marketGapThreshold"`
	MinConcession      float64  `json:"minConcession"`
	MaxConcession      float64  `json:"maxConcession"`
	FloorRatio         float64  `json:"floorRatio"`
	MarketAdjustment   float64  `json:"marketAdjustment"`
	TieBreak           TieBreak `json:"tieBreak"`
}

// DefaultStrategy returns the baseline negotiation thresholds.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxRounds:          5,
		TimeoutHours:       72,
		AcceptGapThreshold: 0.1,
		CloseGapThreshold:  0.2,
		MarketGapThreshold: 0.15,
		MinConcession:      0.15,
		MaxConcession:      0.25,
		FloorRatio:         0.7,
		MarketAdjustment:   0.98,
		TieBreak:           TieBreakGap,
	}
}

// Timeout returns the negotiation lifetime as a duration.
func (s Strategy) Timeout() time.Duration {
	return time.Duration(s.TimeoutHours) * time.Hour
}

// Validate checks the strategy invariants.
func (s Strategy) Validate() error {
	if s.MaxRounds < 1 {
		return fmt.Errorf("%w: maxRounds must be >= 1, got %d", ErrInvalidArgument, s.MaxRounds)
	}
	if s.TimeoutHours < 1 {
		return fmt.Errorf("%w: timeoutHours must be >= 1, got %d", ErrInvalidArgument, s.TimeoutHours)
	}
	if s.MinConcession > s.MaxConcession {
		return fmt.Errorf("%w: minConcession %.3f exceeds maxConcession %.3f", ErrInvalidArgument, s.MinConcession, s.MaxConcession)
	}
	fractions := map[string]float64{
		"acceptGapThreshold": s.AcceptGapThreshold,
		"closeGapThreshold":  s.CloseGapThreshold,
		"marketGapThreshold": s.MarketGapThreshold,
		"minConcession":      s.MinConcession,
		"maxConcession":      s.MaxConcession,
		"floorRatio":         s.FloorRatio,
		"marketAdjustment":   s.MarketAdjustment,
	}
	for name, v := range fractions {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %.3f", ErrInvalidArgument, name, v)
		}
	}
	switch s.TieBreak {
	case TieBreakGap, TieBreakCoinFlip, TieBreakReject:
	default:
		return fmt.Errorf("%w: unknown tie-break %q", ErrInvalidArgument, s.TieBreak)
	}
	return nil
}
