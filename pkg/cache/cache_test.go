package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "board", []row{{"a", 90}, {"b", 70}}, time.Minute))

	var got []row
	require.NoError(t, mc.Get(ctx, "board", &got))
	assert.Equal(t, []row{{"a", 90}, {"b", 70}}, got)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, _ := mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCacheFallsBackToL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "k", row{"x", 1}, time.Minute))

	var got row
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, row{"x", 1}, got)

	ok, _ := lc.l1.Exists(ctx, "k")
	assert.True(t, ok, "L2 hit should populate L1")
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]row, error) {
		calls++
		return []row{{"a", 1}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, mc, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, calls)

	_, err := GetOrLoad(ctx, mc, "bad", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "leaderboard:top:10", Key("leaderboard", "top", 10))
}
