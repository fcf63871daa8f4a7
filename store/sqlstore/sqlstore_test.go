package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/engine"
	"github.com/hupe1980/negotiate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Migrations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	// applying again is a no-op
	require.NoError(t, s.migrate(ctx))
	v, err = s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := testutil.NewNegotiationBuilder("n1").
		Offer(core.PartyCounterparty, 400000).
		Offer(core.PartyRequester, 420000).
		Build()
	n.GuestCount = 120

	require.NoError(t, s.Put(ctx, n))

	got, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, n, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_VersionCompareAndSwap(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	n := testutil.NewNegotiationBuilder("n1").Offer(core.PartyCounterparty, 400000).Build()
	require.NoError(t, s.Put(ctx, n))

	// re-inserting the same id loses
	assert.ErrorIs(t, s.Put(ctx, n), core.ErrConflict)

	next := n.Clone()
	next.Version = 2
	next.Status = core.StatusCountered
	require.NoError(t, s.Put(ctx, next))

	stale := n.Clone()
	stale.Version = 2
	assert.ErrorIs(t, s.Put(ctx, stale), core.ErrConflict)

	skip := n.Clone()
	skip.Version = 5
	assert.ErrorIs(t, s.Put(ctx, skip), core.ErrConflict)

	got, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCountered, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestStore_ActivePairIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := testutil.NewNegotiationBuilder("a").Offer(core.PartyCounterparty, 100).Build()
	require.NoError(t, s.Put(ctx, a))

	active, err := s.ExistsActiveFor(ctx, "evt1", "org1")
	require.NoError(t, err)
	assert.True(t, active)

	b := testutil.NewNegotiationBuilder("b").Offer(core.PartyCounterparty, 100).Build()
	assert.ErrorIs(t, s.Put(ctx, b), core.ErrDuplicateNegotiation)

	// concluding a frees the pair
	done := a.Clone()
	amount := 100.0
	done.Status, done.Result, done.FinalAmount, done.Version = core.StatusConcluded, core.ResultManualAccept, &amount, 2
	require.NoError(t, s.Put(ctx, done))

	active, err = s.ExistsActiveFor(ctx, "evt1", "org1")
	require.NoError(t, err)
	assert.False(t, active)
	require.NoError(t, s.Put(ctx, b))
}

func TestStore_ListDue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := testutil.PeakSeason()

	for i, in := range []time.Duration{80 * time.Hour, 10 * time.Hour, time.Hour, time.Hour} {
		n := testutil.NewNegotiationBuilder(fmt.Sprintf("n%d", i)).
			Pair(fmt.Sprintf("evt%d", i), "org1").
			TimeoutAt(created.Add(in)).
			Offer(core.PartyCounterparty, 100).
			Build()
		require.NoError(t, s.Put(ctx, n))
	}
	expired := testutil.NewNegotiationBuilder("x").
		Pair("evt-x", "org1").
		TimeoutAt(created).
		Status(core.StatusExpired, 1).
		Build()
	require.NoError(t, s.Put(ctx, expired))

	now := created.Add(24 * time.Hour)

	ids, err := s.ListDue(ctx, now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"n2", "n3", "n1"}, ids)

	ids, err = s.ListDue(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"n2", "n3"}, ids)

	ids, err = s.ListDue(ctx, created, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_BacksEngine(t *testing.T) {
	s := openTestStore(t)
	clk := testutil.NewClock(testutil.PeakSeason())
	eng := engine.New(func(o *engine.Options) {
		o.Store = s
		o.Clock = clk.Now
	})
	ctx := context.Background()

	n, err := eng.Start(ctx, engine.StartRequest{
		SubjectID: "evt1", CounterpartyID: "org1", InitialOffer: 400000,
		Category: "wedding", Location: "Kathmandu",
	})
	require.NoError(t, err)

	out, err := eng.Counter(ctx, engine.CounterRequest{NegotiationID: n.ID, Offer: 420000, ExpectedVersion: 1})
	require.NoError(t, err)
	assert.Equal(t, float64(410000), out.LastOffer().Amount)

	_, err = eng.Counter(ctx, engine.CounterRequest{NegotiationID: n.ID, Offer: 415000, ExpectedVersion: 1})
	assert.ErrorIs(t, err, core.ErrConflict)

	clk.Advance(73 * time.Hour)
	got, err := eng.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusExpired, got.Status)
	assert.Len(t, got.Ledger, 3)

	ids, err := s.ListDue(ctx, clk.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", DialectPostgres.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "a = ?", DialectMySQL.rebind("a = ?"))

	assert.Equal(t, "pgx", DialectPostgres.DriverName())
	assert.Equal(t, "mysql", DialectMySQL.DriverName())
	assert.Equal(t, "sqlite", DialectSQLite.DriverName())

	d, ok := ParseDialect("PostgreSQL")
	assert.True(t, ok)
	assert.Equal(t, DialectPostgres, d)
	_, ok = ParseDialect("oracle")
	assert.False(t, ok)
}
