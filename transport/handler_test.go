package transport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hupe1980/negotiate"
	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	bus       *InMemoryBus
	svc       *negotiate.Service
	responses []ResponseMessage
	topics    []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := testutil.NewClock(testutil.PeakSeason())
	svc := negotiate.New(func(o *negotiate.Options) { o.Clock = clk.Now })

	h := &harness{bus: NewInMemoryBus(), svc: svc}
	handler := NewHandler(h.bus, svc)
	require.NoError(t, handler.Serve())
	t.Cleanup(func() { _ = handler.Close() })

	_, err := h.bus.Subscribe(ResponsePrefix+".*", func(_ context.Context, m Message) {
		var resp ResponseMessage
		require.NoError(t, json.Unmarshal(m.Data, &resp))
		h.responses = append(h.responses, resp)
		h.topics = append(h.topics, m.Subject)
	})
	require.NoError(t, err)
	return h
}

func (h *harness) send(t *testing.T, subject string, v any) ResponseMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	before := len(h.responses)
	require.NoError(t, h.bus.Publish(context.Background(), subject, data))
	require.Len(t, h.responses, before+1)
	return h.responses[len(h.responses)-1]
}

func TestHandler_NegotiationOverBus(t *testing.T) {
	h := newHarness(t)

	started := h.send(t, StartSubject("evt1"), StartMessage{
		RequestID: "r1", CounterpartyID: "org1", Offer: 400000, Message: "initial",
		Category: "wedding", Location: "Kathmandu",
	})
	require.Nil(t, started.Error)
	assert.Equal(t, "r1", started.RequestID)
	assert.NotEmpty(t, started.NegotiationID)
	assert.Equal(t, core.StatusAwaitingRequester, started.Status)

	countered := h.send(t, CounterSubject("evt1"), CounterMessage{
		RequestID: "r2", NegotiationID: started.NegotiationID, Offer: 420000, Version: started.Version,
	})
	require.Nil(t, countered.Error)
	assert.Equal(t, core.StatusCountered, countered.Status)
	assert.Equal(t, float64(410000), countered.Offer)
	assert.False(t, countered.Accepted)
	assert.False(t, countered.FinalOffer)
	assert.Equal(t, 2, countered.Round)

	stale := h.send(t, CounterSubject("evt1"), CounterMessage{
		NegotiationID: started.NegotiationID, Offer: 415000, Version: started.Version,
	})
	require.NotNil(t, stale.Error)
	assert.Equal(t, core.KindConflict, stale.Error.Kind)

	final := h.send(t, CounterSubject("evt1"), CounterMessage{
		NegotiationID: started.NegotiationID, Offer: 800000,
	})
	require.Nil(t, final.Error)
	assert.True(t, final.FinalOffer)
	assert.True(t, final.Accepted)
	assert.Equal(t, core.StatusConcluded, final.Status)
	assert.Equal(t, float64(784000), final.Offer)

	again := h.send(t, AcceptSubject("evt1"), AcceptMessage{NegotiationID: started.NegotiationID, ActorID: "u1"})
	require.NotNil(t, again.Error)
	assert.Equal(t, core.KindInvalidState, again.Error.Kind)
}

func TestHandler_Accept(t *testing.T) {
	h := newHarness(t)
	started := h.send(t, StartSubject("evt2"), StartMessage{CounterpartyID: "org1", Offer: 1000})

	resp := h.send(t, AcceptSubject("evt2"), AcceptMessage{NegotiationID: started.NegotiationID, ActorID: "u1"})
	require.Nil(t, resp.Error)
	assert.True(t, resp.Accepted)
	assert.Equal(t, core.StatusConcluded, resp.Status)
	assert.Equal(t, float64(1000), resp.Offer)
}

func TestHandler_Errors(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, CounterSubject("evt1"), CounterMessage{NegotiationID: "missing", Offer: 10})
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindNotFound, resp.Error.Kind)

	require.NoError(t, h.bus.Publish(context.Background(), StartSubject("evt1"), []byte("{not json")))
	last := h.responses[len(h.responses)-1]
	require.NotNil(t, last.Error)
	assert.Equal(t, core.KindInvalidArgument, last.Error.Kind)

	resp = h.send(t, StartSubject("evt1"), StartMessage{CounterpartyID: "org1", Offer: 0})
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArgument, resp.Error.Kind)

	h.send(t, StartSubject("evt1"), StartMessage{CounterpartyID: "org1", Offer: 10})
	resp = h.send(t, StartSubject("evt1"), StartMessage{CounterpartyID: "org1", Offer: 10})
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindDuplicateNegotiation, resp.Error.Kind)
}

func TestHandler_RejectsForeignNegotiation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	owned := h.send(t, StartSubject("evtB"), StartMessage{
		CounterpartyID: "org1", Offer: 400000, Category: "wedding", Location: "Kathmandu",
	})
	require.Nil(t, owned.Error)

	resp := h.send(t, CounterSubject("evtA"), CounterMessage{
		RequestID: "r-foreign", NegotiationID: owned.NegotiationID, Offer: 420000,
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArgument, resp.Error.Kind)
	assert.Equal(t, "r-foreign", resp.RequestID)
	assert.Empty(t, resp.Status)
	assert.Zero(t, resp.Offer)
	assert.Equal(t, ResponseSubject("evtA"), h.topics[len(h.topics)-1])

	resp = h.send(t, AcceptSubject("evtA"), AcceptMessage{NegotiationID: owned.NegotiationID, ActorID: "u1"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.KindInvalidArgument, resp.Error.Kind)

	snap, err := h.svc.Status(ctx, owned.NegotiationID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusAwaitingRequester, snap.Negotiation.Status)
	assert.Len(t, snap.Negotiation.Ledger, 1)
	assert.Equal(t, int64(1), snap.Negotiation.Version)
}

func TestHandler_MalformedPayloadKeepsRequestID(t *testing.T) {
	h := newHarness(t)

	for _, subject := range []string{StartSubject("evt1"), CounterSubject("evt1"), AcceptSubject("evt1")} {
		t.Run(subject, func(t *testing.T) {
			payload := []byte(`{"requestId":"r-bad","offer":"lots","negotiationId":7}`)
			require.NoError(t, h.bus.Publish(context.Background(), subject, payload))

			last := h.responses[len(h.responses)-1]
			require.NotNil(t, last.Error)
			assert.Equal(t, core.KindInvalidArgument, last.Error.Kind)
			assert.Equal(t, "r-bad", last.RequestID)
		})
	}

	require.NoError(t, h.bus.Publish(context.Background(), StartSubject("evt1"), []byte("{not json")))
	last := h.responses[len(h.responses)-1]
	require.NotNil(t, last.Error)
	assert.Empty(t, last.RequestID)
}
