package storage

import (
	"context"
	"testing"
	"time"

	"github.com/0x3a/crits/core"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// countingStore counts GetIndicator calls that reach the backend
type countingStore struct {
	Store
	gets int
}

func (c *countingStore) GetIndicator(ctx context.Context, id string) (*core.Indicator, error) {
	c.gets++
	return c.Store.GetIndicator(ctx, id)
}

func TestLRUIndicatorCache_ReturnsCopies(t *testing.T) {
	cache := NewLRUIndicatorCache(2, time.Minute)
	ctx := context.Background()

	ind := core.NewIndicator(core.IndicatorTypeString, "value", "tester")
	cache.Set(ctx, ind)
	ind.Value = "mutated after set"

	got, ok := cache.Get(ctx, ind.ID)
	require.True(t, ok)
	assert.Equal(t, "value", got.Value)

	got.Value = "mutated after get"
	again, _ := cache.Get(ctx, ind.ID)
	assert.Equal(t, "value", again.Value)
}

func TestLRUIndicatorCache_EvictsOldest(t *testing.T) {
	cache := NewLRUIndicatorCache(2, time.Minute)
	ctx := context.Background()

	a := core.NewIndicator(core.IndicatorTypeString, "a", "tester")
	b := core.NewIndicator(core.IndicatorTypeString, "b", "tester")
	c := core.NewIndicator(core.IndicatorTypeString, "c", "tester")
	cache.Set(ctx, a)
	cache.Set(ctx, b)
	cache.Set(ctx, c)

	_, ok := cache.Get(ctx, a.ID)
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Len())

	cache.Delete(ctx, b.ID)
	_, ok = cache.Get(ctx, b.ID)
	assert.False(t, ok)
}

func TestCachedStore_ReadThroughAndInvalidate(t *testing.T) {
	backend := &countingStore{Store: setupTestStore(t)}
	store := NewCachedStore(backend, NewLRUIndicatorCache(16, time.Minute))
	ctx := context.Background()

	ind := core.NewIndicator(core.IndicatorTypeString, "value", "tester")
	require.NoError(t, store.CreateIndicator(ctx, ind))

	_, err := store.GetIndicator(ctx, ind.ID)
	require.NoError(t, err)
	got, err := store.GetIndicator(ctx, ind.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.gets, "second read is served from cache")

	got.AddBuckets("phish")
	require.NoError(t, store.UpdateIndicator(ctx, got))

	fresh, err := store.GetIndicator(ctx, ind.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.gets, "update invalidates the cached copy")
	assert.Equal(t, []string{"phish"}, fresh.BucketList)
	assert.Equal(t, int64(1), fresh.Version)

	require.NoError(t, store.DeleteIndicator(ctx, ind.ID))
	_, err = store.GetIndicator(ctx, ind.ID)
	assert.ErrorIs(t, err, ErrIndicatorNotFound)
}

func TestCachedStore_StaleCachedCopyStillConflicts(t *testing.T) {
	store := NewCachedStore(setupTestStore(t), NewLRUIndicatorCache(16, time.Minute))
	ctx := context.Background()

	ind := core.NewIndicator(core.IndicatorTypeString, "value", "tester")
	require.NoError(t, store.CreateIndicator(ctx, ind))

	a, err := store.GetIndicator(ctx, ind.ID)
	require.NoError(t, err)
	b, err := store.GetIndicator(ctx, ind.ID)
	require.NoError(t, err)

	require.NoError(t, store.UpdateIndicator(ctx, a))
	assert.ErrorIs(t, store.UpdateIndicator(ctx, b), ErrConflict)
}

func TestRedisIndicatorCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	logger := zaptest.NewLogger(t).Sugar()
	redis := core.NewRedisCache(mr.Addr(), "", 0, 4, logger)
	defer redis.Close()

	cache := NewRedisIndicatorCache(redis, time.Minute, logger)
	ctx := context.Background()

	ind := core.NewIndicator(core.IndicatorTypeDomain, "evil.example.com", "tester")
	ind.AddCampaign(core.CampaignRef{Name: "APT1", Confidence: core.CampaignConfidenceHigh, Date: core.Now()})
	cache.Set(ctx, ind)

	got, ok := cache.Get(ctx, ind.ID)
	require.True(t, ok)
	assert.Equal(t, ind.Value, got.Value)
	require.Len(t, got.Campaigns, 1)
	assert.Equal(t, core.CampaignConfidenceHigh, got.Campaigns[0].Confidence)

	cache.Delete(ctx, ind.ID)
	_, ok = cache.Get(ctx, ind.ID)
	assert.False(t, ok)

	// A dead server degrades to misses
	mr.Close()
	_, ok = cache.Get(ctx, ind.ID)
	assert.False(t, ok)
}
