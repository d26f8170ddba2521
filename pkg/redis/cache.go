package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching under a key prefix
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the backing client is live
func (c *Cache) Enabled() bool {
	return c != nil && c.client.Enabled()
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// DeletePattern removes every key matching pattern (relative to the prefix)
func (c *Cache) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	removed := 0
	iter := c.client.Redis().Scan(ctx, 0, c.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Redis().Del(ctx, iter.Val()).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

// Predefined TTLs
const (
	TTLLatest = 5 * time.Minute // 최신 시세
	TTLSeries = 24 * time.Hour  // 일별 시계열
	TTLRatios = 7 * 24 * time.Hour
)

// SeriesKey is the cache key for one symbol and exact date range
func SeriesKey(symbol, start, end string) string {
	return fmt.Sprintf("series:%s_%s_%s", symbol, start, end)
}

// SeriesPattern matches every cached range for a symbol
func SeriesPattern(symbol string) string {
	return fmt.Sprintf("series:%s_*", symbol)
}

// RatiosKey is the cache key for a ratio snapshot
func RatiosKey(symbol string) string {
	return fmt.Sprintf("ratios:%s", symbol)
}

// ProfileKey is the cache key for a company profile
func ProfileKey(symbol string) string {
	return fmt.Sprintf("profile:%s", symbol)
}

// LatestKey is the cache key for a latest price
func LatestKey(symbol string) string {
	return fmt.Sprintf("latest:%s", symbol)
}
