package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailstore/backend/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisFinancialsCacheRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisFinancialsCache(client, "retailstore:financials:")
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	_, found, err := c.Get(ctx, "rev-1")
	require.NoError(t, err)
	assert.False(t, found)

	snapshot := &domain.Financials{
		Turnover:        decimal.RequireFromString("1.68"),
		CostOfSoldGoods: decimal.RequireFromString("2.00"),
		ReceiptCount:    1,
		SoldItems:       map[string]int{"F1": 1},
	}
	require.NoError(t, c.Set(ctx, "rev-1", snapshot, time.Minute))
	assert.True(t, mr.Exists("retailstore:financials:rev-1"))

	got, found, err := c.Get(ctx, "rev-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Turnover.Equal(snapshot.Turnover))
	assert.Equal(t, 1, got.SoldItems["F1"])

	mr.FastForward(2 * time.Minute)
	_, found, err = c.Get(ctx, "rev-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "rev-2", nil, time.Minute))
	assert.False(t, mr.Exists("retailstore:financials:rev-2"))
}

func TestRedisSequenceIncrementsAndResets(t *testing.T) {
	_, client := newTestClient(t)
	seq := NewRedisSequence(client, "retailstore:receipt-seq")
	ctx := context.Background()

	first, err := seq.Next(ctx)
	require.NoError(t, err)
	second, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	require.NoError(t, seq.Reset(ctx))
	again, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again)
}

func TestRedisSequenceSurfacesConnectionErrors(t *testing.T) {
	mr, client := newTestClient(t)
	seq := NewRedisSequence(client, "seq")
	mr.Close()

	_, err := seq.Next(context.Background())
	assert.Error(t, err)
}

func TestNoopFinancialsCache(t *testing.T) {
	var c FinancialsCache = NoopFinancialsCache{}
	require.NoError(t, c.Set(context.Background(), "k", &domain.Financials{}, time.Minute))
	_, found, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, found)
}
