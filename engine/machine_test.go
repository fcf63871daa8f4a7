package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/internal/testutil"
	"github.com/hupe1980/negotiate/policy"
	"github.com/hupe1980/negotiate/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStep() Step {
	seq := 0
	return Step{
		Pricing:    pricing.NewModel(),
		Calculator: policy.NewCalculator(),
		Evaluator:  policy.NewEvaluator(),
		NewOfferID: func(time.Time) string {
			seq++
			return fmt.Sprintf("offer-%d", seq)
		},
	}
}

func TestApplyCounter_CloseGapKeepsNegotiating(t *testing.T) {
	n := testutil.NewNegotiationBuilder("n1").Offer(core.PartyCounterparty, 400000).Build()

	out, err := newStep().ApplyCounter(n, 420000, "a bit more", testutil.PeakSeason())
	require.NoError(t, err)

	assert.Equal(t, core.StatusCountered, n.Status)
	assert.Equal(t, 2, n.CurrentRound)
	assert.Equal(t, 2, out.Appended)
	assert.False(t, out.IsFinal())
	last := out.LastOffer()
	assert.Equal(t, core.PartySystem, last.Party)
	assert.Equal(t, float64(410000), last.Amount)
	assert.Equal(t, 1, last.Round)
	assert.Equal(t, string(policy.RuleCloseGap), last.Metadata.Rule)
	assert.Equal(t, core.PartyRequester, n.Ledger[1].Party)
	assert.Equal(t, "a bit more", n.Ledger[1].Message)
}

func TestApplyCounter_MarketGapConcludesWithFinalOffer(t *testing.T) {
	n := testutil.NewNegotiationBuilder("n1").Offer(core.PartyCounterparty, 400000).Build()

	out, err := newStep().ApplyCounter(n, 800000, "", testutil.PeakSeason())
	require.NoError(t, err)

	assert.Equal(t, float64(845000), out.Market.EstimatedPrice)
	assert.Equal(t, core.StatusConcluded, n.Status)
	assert.Equal(t, core.ResultFinalOfferMade, n.Result)
	require.NotNil(t, n.FinalAmount)
	assert.Equal(t, float64(784000), *n.FinalAmount)
	assert.True(t, out.IsFinal())
	assert.True(t, out.LastOffer().Metadata.Final)
	assert.True(t, out.LastOffer().Metadata.MarketAdjusted)
	assert.Equal(t, 1, n.CurrentRound)
	assert.NotNil(t, n.ConcludedAt)
}

func TestApplyCounter_GapAcceptanceAppendsOnlyRequesterOffer(t *testing.T) {
	n := testutil.NewNegotiationBuilder("n1").
		Offer(core.PartyCounterparty, 120000).
		Offer(core.PartyRequester, 80000).
		Offer(core.PartySystem, 100000).
		Status(core.StatusCountered, 2).
		Build()

	out, err := newStep().ApplyCounter(n, 95000, "deal?", testutil.PeakSeason())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Appended)
	assert.Equal(t, policy.ReasonGap, out.Decision.Reason)
	assert.Equal(t, core.StatusConcluded, n.Status)
	assert.Equal(t, core.ResultAccepted, n.Result)
	assert.Equal(t, float64(95000), *n.FinalAmount)
	assert.Equal(t, core.PartyRequester, out.LastOffer().Party)
}

func TestApplyCounter_RoundExhaustionExpires(t *testing.T) {
	s := core.DefaultStrategy()
	s.MaxRounds = 1
	s.TieBreak = core.TieBreakReject
	n := testutil.NewNegotiationBuilder("n1").Strategy(s).Offer(core.PartyCounterparty, 400000).Build()

	// close-gap counters are never final, so the round limit decides
	_, err := newStep().ApplyCounter(n, 390000, "", testutil.PeakSeason())
	require.NoError(t, err)

	assert.Equal(t, core.StatusExpired, n.Status)
	assert.Equal(t, core.ResultMaxRoundsReached, n.Result)
	assert.Equal(t, 2, n.CurrentRound)
	assert.Nil(t, n.FinalAmount)
}

func TestApplyCounter_TerminalIsRejected(t *testing.T) {
	n := testutil.NewNegotiationBuilder("n1").
		Offer(core.PartyCounterparty, 400000).
		Status(core.StatusConcluded, 1).
		Build()

	_, err := newStep().ApplyCounter(n, 410000, "", testutil.PeakSeason())
	assert.ErrorIs(t, err, core.ErrInvalidState)
	assert.Len(t, n.Ledger, 1)
}

func TestApplyManualAccept(t *testing.T) {
	n := testutil.NewNegotiationBuilder("n1").
		Offer(core.PartyCounterparty, 400000).
		Offer(core.PartyRequester, 300000).
		Offer(core.PartySystem, 385000).
		Status(core.StatusCountered, 2).
		Build()

	require.NoError(t, ApplyManualAccept(n, "user-7", testutil.PeakSeason()))
	assert.Equal(t, core.StatusConcluded, n.Status)
	assert.Equal(t, core.ResultManualAccept, n.Result)
	assert.Equal(t, float64(385000), *n.FinalAmount)
	assert.Equal(t, "user-7", n.ConcludedBy)

	assert.ErrorIs(t, ApplyManualAccept(n, "user-7", testutil.PeakSeason()), core.ErrInvalidState)
}

func TestApplyTimeout(t *testing.T) {
	n := testutil.NewNegotiationBuilder("n1").Offer(core.PartyCounterparty, 400000).Build()

	assert.False(t, ApplyTimeout(n, n.TimeoutAt), "deadline itself is not past")
	assert.True(t, ApplyTimeout(n, n.TimeoutAt.Add(time.Second)))
	assert.Equal(t, core.StatusExpired, n.Status)
	assert.Equal(t, core.ResultTimeout, n.Result)
	assert.False(t, ApplyTimeout(n, n.TimeoutAt.Add(time.Hour)), "terminal stays terminal")
}
