package policy

import (
	"testing"

	"github.com/hupe1980/negotiate/core"
	"github.com/stretchr/testify/assert"
)

func TestEvaluator_Rules(t *testing.T) {
	s := core.DefaultStrategy()
	e := NewEvaluator()

	tests := []struct {
		name      string
		requester float64
		counter   float64
		round     int
		calc      CounterResult
		want      Decision
	}{
		{"gap ignored in round one", 95000, 100000, 1, CounterResult{}, Decision{}},
		{"gap accepted from round two", 95000, 100000, 2, CounterResult{}, Decision{Accept: true, Reason: ReasonGap}},
		{"gap exactly at threshold", 90000, 100000, 2, CounterResult{}, Decision{Accept: true, Reason: ReasonGap}},
		{"final counter accepted", 50000, 100000, 1, CounterResult{IsFinal: true}, Decision{Accept: true, Reason: ReasonFinalOffer}},
		{"round limit with small gap", 85000, 100000, 5, CounterResult{}, Decision{Accept: true, Reason: ReasonRoundLimit}},
		{"round limit with wide gap", 50000, 100000, 5, CounterResult{}, Decision{}},
		{"otherwise continue", 50000, 100000, 2, CounterResult{}, Decision{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.ShouldAccept(tt.requester, tt.counter, tt.round, tt.calc, s)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_RejectTieBreak(t *testing.T) {
	s := core.DefaultStrategy()
	s.TieBreak = core.TieBreakReject
	got := NewEvaluator().ShouldAccept(85000, 100000, 5, CounterResult{}, s)
	assert.False(t, got.Accept)
}

func TestEvaluator_CoinFlipIsSeeded(t *testing.T) {
	s := core.DefaultStrategy()
	s.TieBreak = core.TieBreakCoinFlip

	run := func() []bool {
		e := NewEvaluator(func(o *EvaluatorOptions) { o.Seed = 7 })
		out := make([]bool, 20)
		for i := range out {
			out[i] = e.ShouldAccept(50000, 100000, 5, CounterResult{}, s).Accept
		}
		return out
	}
	assert.Equal(t, run(), run())
}
