package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"negotiation.counter.evt1", "negotiation.counter.evt1", true},
		{"negotiation.counter.*", "negotiation.counter.evt1", true},
		{"negotiation.counter.*", "negotiation.counter", false},
		{"negotiation.counter.*", "negotiation.counter.evt.1", false},
		{"negotiation.*.evt1", "negotiation.start.evt1", true},
		{"negotiation.>", "negotiation.counter.evt.1", true},
		{"negotiation.>", "negotiation", false},
		{"negotiation.counter.evt1", "negotiation.response.evt1", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchSubject(tt.pattern, tt.subject), "%s ~ %s", tt.pattern, tt.subject)
	}
}

func TestInMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var got []Message
	sub, err := bus.Subscribe("negotiation.response.*", func(_ context.Context, m Message) {
		got = append(got, m)
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "negotiation.response.evt1", []byte("a")))
	require.NoError(t, bus.Publish(ctx, "negotiation.counter.evt1", []byte("b")))
	require.Len(t, got, 1)
	assert.Equal(t, "negotiation.response.evt1", got[0].Subject)
	assert.Equal(t, []byte("a"), got[0].Data)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, bus.Publish(ctx, "negotiation.response.evt1", []byte("c")))
	assert.Len(t, got, 1)
}

func TestInMemoryBus_ReentrantPublish(t *testing.T) {
	bus := NewInMemoryBus()
	ctx := context.Background()

	var replies int
	_, err := bus.Subscribe("req.*", func(ctx context.Context, m Message) {
		assert.NoError(t, bus.Publish(ctx, "reply.x", m.Data))
	})
	require.NoError(t, err)
	_, err = bus.Subscribe("reply.*", func(context.Context, Message) { replies++ })
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "req.x", nil))
	assert.Equal(t, 1, replies)
}

func TestInMemoryBus_Closed(t *testing.T) {
	bus := NewInMemoryBus()
	bus.Close()

	assert.ErrorIs(t, bus.Publish(context.Background(), "a", nil), ErrBusClosed)
	_, err := bus.Subscribe("a", func(context.Context, Message) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "negotiation.counter.evt1", CounterSubject("evt1"))
	assert.Equal(t, "negotiation.response.evt1", ResponseSubject("evt1"))
	assert.Equal(t, "negotiation.start.evt1", StartSubject("evt1"))
	assert.Equal(t, "negotiation.accept.evt1", AcceptSubject("evt1"))

	id, ok := SubjectID(CounterPrefix, "negotiation.counter.evt.1")
	assert.True(t, ok)
	assert.Equal(t, "evt.1", id)

	_, ok = SubjectID(CounterPrefix, "negotiation.counter.")
	assert.False(t, ok)
	_, ok = SubjectID(CounterPrefix, "negotiation.start.evt1")
	assert.False(t, ok)
}
