package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(zap.NewNop())
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("key", []byte("payload"), 5*time.Minute)

	got, ok := cache.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	now = now.Add(5*time.Minute + time.Second)
	_, ok = cache.Get("key")
	assert.False(t, ok, "expired entry must be a miss")
}

func TestCachePrune(t *testing.T) {
	cache := NewCache(zap.NewNop())
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("fresh", []byte("a"), time.Hour)
	cache.Set("stale", []byte("b"), time.Minute)

	now = now.Add(10 * time.Minute)
	cache.Prune()

	_, ok := cache.Get("fresh")
	assert.True(t, ok)
	cache.mu.RLock()
	_, exists := cache.entries["stale"]
	cache.mu.RUnlock()
	assert.False(t, exists)
}

func TestExpiryAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	at, err := ExpiryAt("5m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), at)

	at, err = ExpiryAt("1h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), at)

	at, err = ExpiryAt("1748779200000", now)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1748779200000), at)

	_, err = ExpiryAt("not-a-spec", now)
	assert.Error(t, err)
}

func TestCachedSkipsFetchOnHit(t *testing.T) {
	cache := NewCache(zap.NewNop())
	calls := 0
	fetchFn := func(context.Context) (string, error) {
		calls++
		return "fetched", nil
	}

	out, err := Cached(context.Background(), cache, "k", time.Minute, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, "fetched", out)
	assert.Equal(t, 1, calls)

	out, err = Cached(context.Background(), cache, "k", time.Minute, fetchFn)
	require.NoError(t, err)
	assert.Equal(t, "fetched", out)
	assert.Equal(t, 1, calls, "second call must be served from cache")
}

func TestCachedPropagatesFetchError(t *testing.T) {
	cache := NewCache(zap.NewNop())
	wantErr := errors.New("provider down")

	_, err := Cached(context.Background(), cache, "k", time.Minute, func(context.Context) (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	_, ok := cache.Get("k")
	assert.False(t, ok, "failed fetch must not be cached")
}

func TestCachedWorksWithoutCache(t *testing.T) {
	out, err := Cached(context.Background(), nil, "k", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out)
}
