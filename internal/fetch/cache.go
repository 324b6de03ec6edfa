// internal/fetch/cache.go
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache is a TTL cache keyed by request shape. Reads are best-effort: a miss
// or an expired entry never fails the surrounding call, only its freshness.
type Cache struct {
	entries map[string]cacheEntry
	mu      sync.RWMutex
	logger  *zap.Logger
	now     func() time.Time
}

type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewCache(logger *zap.Logger) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		logger:  logger.Named("cache"),
		now:     time.Now,
	}
}

// Get returns the cached payload for key when it exists and has not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

// Set stores payload under key until ttl elapses.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) {
	c.SetUntil(key, payload, c.now().Add(ttl))
}

// SetUntil stores payload under key until the absolute expiry instant.
func (c *Cache) SetUntil(key string, payload []byte, expiresAt time.Time) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{payload: payload, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Prune drops expired entries.
func (c *Cache) Prune() {
	now := c.now()
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// ExpiryAt resolves an expiry spec into an absolute instant. The spec is
// either a duration string ("5m", "1h") or an epoch-millisecond timestamp.
func ExpiryAt(spec string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(d), nil
	}
	if ms, err := strconv.ParseInt(spec, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("invalid expiry spec: %q", spec)
}

// Cached decorates fetchFn with get-before-fetch / set-after-fetch
// semantics. The cached value is stored as JSON; a failed cache write is
// logged and swallowed, never failing the fetch.
func Cached[T any](ctx context.Context, cache *Cache, key string, ttl time.Duration, fetchFn func(context.Context) (T, error)) (T, error) {
	var out T

	if cache != nil {
		if payload, ok := cache.Get(key); ok {
			if err := json.Unmarshal(payload, &out); err == nil {
				return out, nil
			}
			// Corrupt entry, fall through to a fresh fetch.
			cache.Delete(key)
		}
	}

	out, err := fetchFn(ctx)
	if err != nil {
		return out, err
	}

	if cache != nil {
		payload, err := json.Marshal(out)
		if err != nil {
			cache.logger.Warn("failed to encode cache entry",
				zap.String("key", key),
				zap.Error(err))
			return out, nil
		}
		cache.Set(key, payload, ttl)
	}

	return out, nil
}
